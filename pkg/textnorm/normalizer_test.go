package textnorm

import (
	"strings"
	"testing"
)

func TestNormalizeEmptyInput(t *testing.T) {
	if got := Normalize(""); got != "" {
		t.Errorf("Normalize(\"\") = %q, want empty string", got)
	}
}

func TestNormalizePlaceholders(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "url with scheme",
			in:   "claim at http://bit.ly/x now",
			want: "claim at <URL> now",
		},
		{
			name: "bare shortener domain",
			in:   "go to bit.ly/abc123 today",
			want: "go to <URL> today",
		},
		{
			name: "email",
			in:   "reply to support@secure-bank.com",
			want: "reply to <EMAIL>",
		},
		{
			name: "phone grouped",
			in:   "call 012-345 6789 immediately",
			want: "call <PHONE> immediately",
		},
		{
			name: "phone international",
			in:   "whatsapp +60123456789",
			want: "whatsapp <PHONE>",
		},
		{
			name: "long digit run",
			in:   "acct no 123456789012345678",
			want: "acct no <NUM>",
		},
		{
			name: "currency code",
			in:   "pay RM5,000.00 fine",
			want: "pay <AMOUNT> fine",
		},
		{
			name: "currency symbol",
			in:   "send $250 today",
			want: "send <AMOUNT> today",
		},
		{
			name: "bank name",
			in:   "Your Maybank account",
			want: "Your <BANK> account",
		},
		{
			name: "telco name",
			in:   "Celcom bill overdue",
			want: "<TELCO> bill overdue",
		},
		{
			name: "courier name",
			in:   "Pos Laju parcel held",
			want: "<COURIER> parcel held",
		},
		{
			name: "otp with context",
			in:   "your OTP is 482913",
			want: "your OTP is <OTP>",
		},
		{
			name: "short digits without context untouched",
			in:   "meet me at 1230 tomorrow",
			want: "meet me at 1230 tomorrow",
		},
		{
			name: "reference context",
			in:   "transaction ref 88412",
			want: "transaction ref <NUM>",
		},
		{
			name: "whitespace collapsed",
			in:   "  hello \t\n world  ",
			want: "hello world",
		},
		{
			name: "fullwidth folded by nfkc",
			in:   "ＵＲＧＥＮＴ",
			want: "URGENT",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.in)
			if got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

// Normalization must be idempotent: a second pass over already-normalized
// text must be a no-op, otherwise training/inference drift creeps in.
func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"URGENT: your account has been suspended, verify now at http://bit.ly/x",
		"Your Maybank OTP is 482913, do not share",
		"call 012-345 6789 or pay RM5,000.00 to ref 88412",
		"Happy birthday! Hope you have a great day.",
		"ＵＲＧＥＮＴ　ｖｅｒｉｆｙ　１２３４５６",
		"transfer to support@secure-bank.com before tracking 9001",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("not idempotent for %q:\n  once:  %q\n  twice: %q", in, once, twice)
		}
	}
}

func TestNormalizeOTPRequiresContext(t *testing.T) {
	// Same digit run, with and without a one-time-code context word.
	withContext := Normalize("enter TAC 123456 to proceed")
	if !strings.Contains(withContext, PlaceholderOTP) {
		t.Errorf("expected OTP placeholder with context, got %q", withContext)
	}

	withoutContext := Normalize("the room number is 123456")
	if strings.Contains(withoutContext, PlaceholderOTP) {
		t.Errorf("unexpected OTP placeholder without context: %q", withoutContext)
	}
}

func BenchmarkNormalize(b *testing.B) {
	text := "URGENT: Maybank account 1234567890 suspended. Verify at http://bit.ly/x or call 012-3456789. OTP 482913. Pay RM50.00."
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Normalize(text)
	}
}
