package cloud

import (
	"strings"

	"github.com/jagalabs/scamguard/pkg/fusion"
)

// Explanation is the structured verdict returned by the confirmation
// service. Decoded once at the network boundary; every missing or invalid
// field is replaced with a safe generic value there, so downstream code
// never re-validates.
type Explanation struct {
	Category    string    `json:"category"`
	RiskLevel   string    `json:"riskLevel"`
	Headline    string    `json:"headline"`
	WhyFlagged  []string  `json:"whyFlagged"`
	WhatToDoNow []string  `json:"whatToDoNow"`
	WhatNotToDo []string  `json:"whatNotToDo"`
	Confidence  float64   `json:"confidence"`
	Notes       string    `json:"notes"`

	// Language the explanation was produced in (BCP 47 tag), echoed from
	// the request so the caller can cache it alongside the text.
	Language string `json:"language,omitempty"`
}

// Generic fallbacks for fields the service omitted or mangled.
const (
	defaultCategory = "unknown"
	defaultHeadline = "Possible scam detected"
)

var defaultWhatToDoNow = []string{
	"Do not reply or click any links",
	"Verify through the organization's official channel",
}

var defaultWhatNotToDo = []string{
	"Do not share OTP codes, passwords or banking details",
}

// ParsedRiskLevel maps the service's risk string onto the local levels. An
// unrecognized value reads as MEDIUM, the least surprising label for
// something the service chose to flag.
func (e *Explanation) ParsedRiskLevel() fusion.RiskLevel {
	switch strings.ToUpper(strings.TrimSpace(e.RiskLevel)) {
	case "LOW":
		return fusion.RiskLow
	case "HIGH":
		return fusion.RiskHigh
	default:
		return fusion.RiskMedium
	}
}

// applyDefaults fills missing or out-of-range fields in place.
func (e *Explanation) applyDefaults(language string) {
	if strings.TrimSpace(e.Category) == "" {
		e.Category = defaultCategory
	}
	switch strings.ToUpper(strings.TrimSpace(e.RiskLevel)) {
	case "LOW", "MEDIUM", "HIGH":
		e.RiskLevel = strings.ToUpper(strings.TrimSpace(e.RiskLevel))
	default:
		e.RiskLevel = string(fusion.RiskMedium)
	}
	if strings.TrimSpace(e.Headline) == "" {
		e.Headline = defaultHeadline
	}
	if len(e.WhatToDoNow) == 0 {
		e.WhatToDoNow = append([]string(nil), defaultWhatToDoNow...)
	}
	if len(e.WhatNotToDo) == 0 {
		e.WhatNotToDo = append([]string(nil), defaultWhatNotToDo...)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		e.Confidence = 0.5
	}
	if e.Language == "" {
		e.Language = language
	}
}
