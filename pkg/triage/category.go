package triage

import (
	"github.com/jagalabs/scamguard/pkg/fusion"
	"github.com/jagalabs/scamguard/pkg/keywords"
)

// Coarse scam categories shared with the confirmation contract.
const (
	CategoryNone            = "none"
	CategoryPhishing        = "phishing"
	CategoryImpersonation   = "impersonation"
	CategoryPaymentFraud    = "payment-fraud"
	CategoryThreatExtortion = "threat-extortion"
	CategoryPrizeLottery    = "prize-lottery"
	CategoryOther           = "other"
)

// tacticPriority maps each heuristic tactic to the scam category it most
// strongly indicates, in descending specificity.
var tacticPriority = []struct {
	tactic   keywords.Tactic
	category string
}{
	{keywords.TacticVerification, CategoryPhishing},
	{keywords.TacticGreed, CategoryPrizeLottery},
	{keywords.TacticAuthority, CategoryImpersonation},
	{keywords.TacticThreat, CategoryThreatExtortion},
	{keywords.TacticMoneyPressure, CategoryPaymentFraud},
	{keywords.TacticUrgency, CategoryOther},
}

// CategoryForTactics guesses a coarse scam category from the matched
// tactics. The guess holds until cloud confirmation overrides it.
func CategoryForTactics(tactics []keywords.Tactic) string {
	if len(tactics) == 0 {
		return CategoryNone
	}
	matched := make(map[keywords.Tactic]bool, len(tactics))
	for _, t := range tactics {
		matched[t] = true
	}
	for _, tc := range tacticPriority {
		if matched[tc.tactic] {
			return tc.category
		}
	}
	return CategoryOther
}

// categoryHeadlines are the local fallback headlines shown when no
// confirmation explanation is available.
var categoryHeadlines = map[string]string{
	CategoryPhishing:        "Possible phishing attempt",
	CategoryImpersonation:   "Possible impersonation scam",
	CategoryPaymentFraud:    "Possible payment scam",
	CategoryThreatExtortion: "Possible threat or extortion scam",
	CategoryPrizeLottery:    "Possible prize or lottery scam",
	CategoryOther:           "Suspicious message",
}

// localHeadline builds the fallback headline for a level and category.
func localHeadline(level fusion.RiskLevel, category string) string {
	if level == fusion.RiskLow {
		return "No significant risk detected"
	}
	if h, ok := categoryHeadlines[category]; ok {
		return h
	}
	return "Possible scam detected"
}
