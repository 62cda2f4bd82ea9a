// Package textnorm provides deterministic text canonicalization shared by
// the heuristic scorer and the classifier's tokenizer. The transformation
// must exactly match the one used when the model vocabulary and weights were
// produced: any drift between training-time and inference-time normalization
// silently degrades accuracy with no error signal, so every step here is
// fixed, ordered, and idempotent.
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Placeholder tokens substituted for classes of variable substrings so the
// model generalizes over them instead of memorizing specific values.
const (
	PlaceholderURL     = "<URL>"
	PlaceholderEmail   = "<EMAIL>"
	PlaceholderPhone   = "<PHONE>"
	PlaceholderNumber  = "<NUM>"
	PlaceholderAmount  = "<AMOUNT>"
	PlaceholderOTP     = "<OTP>"
	PlaceholderBank    = "<BANK>"
	PlaceholderTelco   = "<TELCO>"
	PlaceholderCourier = "<COURIER>"
)

// Pre-compiled patterns, compiled once at package init.
var (
	reWhitespace = regexp.MustCompile(`\s+`)

	// URL-like substrings: explicit scheme, www. prefix, or a bare domain
	// followed by a path (covers shorteners like bit.ly/x).
	reURL = regexp.MustCompile(`(?i)\b(?:https?://[^\s<>]+|www\.[^\s<>]+|[a-z0-9][a-z0-9-]*(?:\.[a-z0-9-]+)+/[^\s<>]*)`)

	reEmail = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// Phone-number-like digit runs: 7-14 digits, optionally grouped by
	// spaces or hyphens, optional international prefix.
	rePhone = regexp.MustCompile(`\+?\b\d(?:[ -]?\d){6,13}\b`)

	// Long digit runs (account numbers, card fragments). Applied after the
	// phone substitution so it never re-matches already-placeheld text.
	reLongNumber = regexp.MustCompile(`\b\d{8,}\b`)

	// Currency code or symbol followed by a decimal number.
	reAmount = regexp.MustCompile(`(?i)(?:\b(?:RM|MYR|USD|SGD|IDR|EUR|GBP)\s?|[$€£]\s?)\d[\d,]*(?:\.\d+)?`)

	// Short digit runs gated by OTP / reference context (steps 9 and 10).
	reShortDigits = regexp.MustCompile(`\b\d{4,8}\b`)
)

// Context words that gate short-digit substitution. A 4-8 digit run is only
// an OTP if the surrounding text talks about one-time codes; otherwise it is
// left untouched so unrelated numbers (years, quantities) survive.
var otpContextWords = []string{
	"otp", "tac", "verification", "verify", "passcode", "pin",
	// Malay
	"pengesahan", "sahkan", "kod",
}

var refContextWords = []string{
	"ref", "reference", "transaction", "invoice", "receipt", "order",
	"tracking", "account",
	// Malay
	"rujukan", "transaksi", "resit", "akaun", "pesanan",
}

// Normalize canonicalizes free-form message text. Pure and total: empty
// input yields empty output, and the transformation is idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	// 1. Unicode canonical-compatibility normalization. Folds full-width
	// forms, ligatures, and compatibility characters used to dodge keyword
	// matching.
	text = norm.NFKC.String(text)

	// 2. Collapse whitespace runs and trim.
	text = strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))

	// 3-5. Structured-substring placeholders, most specific first.
	text = reURL.ReplaceAllString(text, PlaceholderURL)
	text = reEmail.ReplaceAllString(text, PlaceholderEmail)
	text = rePhone.ReplaceAllString(text, PlaceholderPhone)

	// 6. Remaining long digit runs.
	text = reLongNumber.ReplaceAllString(text, PlaceholderNumber)

	// 7. Currency amounts.
	text = reAmount.ReplaceAllString(text, PlaceholderAmount)

	// 8. Known organization names, so the model generalizes over named
	// entities rather than memorizing individual banks or couriers.
	text = replaceOrganizations(text)

	// 9. OTP-context gated short digit runs.
	lower := strings.ToLower(text)
	if containsAnyWord(lower, otpContextWords) {
		text = reShortDigits.ReplaceAllString(text, PlaceholderOTP)
	}

	// 10. Reference/transaction-context gated short digit runs.
	if containsAnyWord(lower, refContextWords) {
		text = reShortDigits.ReplaceAllString(text, PlaceholderNumber)
	}

	return text
}

// ExtractURL returns the first URL-like substring of the raw text, or the
// empty string when none is present.
func ExtractURL(text string) string {
	return reURL.FindString(text)
}

// containsAnyWord reports whether any of the given words appears in the
// lowercased text on a word boundary.
func containsAnyWord(lower string, words []string) bool {
	for _, w := range words {
		idx := 0
		for {
			i := strings.Index(lower[idx:], w)
			if i < 0 {
				break
			}
			start := idx + i
			end := start + len(w)
			if boundaryBefore(lower, start) && boundaryAfter(lower, end) {
				return true
			}
			idx = start + 1
		}
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	return i == 0 || !isWordByte(s[i-1])
}

func boundaryAfter(s string, i int) bool {
	return i >= len(s) || !isWordByte(s[i])
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
