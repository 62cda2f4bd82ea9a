// Package keywords provides a centralized registry of scam-tactic keyword
// groups for the heuristic scoring stage. All keyword patterns are compiled
// once at first use and shared across all scorers.
//
// Design principles:
// - COMPILE ONCE: patterns compiled at init, not per-message
// - DRY: single source of truth for tactic vocabularies
// - MULTILINGUAL: every group carries at least English and Malay terms
// - EXTENSIBLE: groups can be overridden from a YAML seed file
package keywords

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Tactic is a named manipulation pattern detected by the heuristic stage.
type Tactic string

const (
	TacticUrgency       Tactic = "urgency"
	TacticAuthority     Tactic = "authority"
	TacticMoneyPressure Tactic = "money-pressure"
	TacticThreat        Tactic = "threat"
	TacticVerification  Tactic = "verification-request"
	TacticGreed         Tactic = "greed"
)

// AllTactics lists the six groups in their canonical order. The heuristic
// scorer iterates this order so tactic output is deterministic.
var AllTactics = []Tactic{
	TacticUrgency,
	TacticAuthority,
	TacticMoneyPressure,
	TacticThreat,
	TacticVerification,
	TacticGreed,
}

// Group holds the compiled patterns for one tactic.
type Group struct {
	Tactic   Tactic
	Keywords []string         // raw keyword list, for introspection
	patterns []*regexp.Regexp // one word-boundary pattern per keyword
}

// CountMatches returns how many distinct keywords of the group appear in the
// lowercased text, capped at limit.
func (g *Group) CountMatches(lower string, limit int) int {
	count := 0
	for _, p := range g.patterns {
		if p.MatchString(lower) {
			count++
			if count >= limit {
				return count
			}
		}
	}
	return count
}

// Matches reports whether any keyword of the group appears in the text.
func (g *Group) Matches(lower string) bool {
	for _, p := range g.patterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// Registry holds the compiled keyword groups plus the URL detection pattern.
type Registry struct {
	groups []*Group
	byName map[Tactic]*Group
	reURL  *regexp.Regexp
}

var (
	globalRegistry *Registry
	initOnce       sync.Once
)

// Get returns the global keyword registry (singleton). Thread-safe and
// guaranteed to be initialized.
func Get() *Registry {
	initOnce.Do(func() {
		globalRegistry = newRegistry()
	})
	return globalRegistry
}

func newRegistry() *Registry {
	r := &Registry{
		byName: make(map[Tactic]*Group, len(AllTactics)),
		reURL:  regexp.MustCompile(`(?i)\b(?:https?://\S+|www\.\S+|[a-z0-9][a-z0-9-]*(?:\.[a-z0-9-]+)+/\S*|<url>)`),
	}

	seeds := loadKeywordSeeds()
	for _, tactic := range AllTactics {
		words := seeds[tactic]
		r.register(tactic, words)
	}
	return r
}

func (r *Registry) register(tactic Tactic, words []string) {
	g := &Group{
		Tactic:   tactic,
		Keywords: words,
		patterns: make([]*regexp.Regexp, 0, len(words)),
	}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		g.patterns = append(g.patterns,
			regexp.MustCompile(fmt.Sprintf(`\b%s\b`, regexp.QuoteMeta(w))))
	}
	r.groups = append(r.groups, g)
	r.byName[tactic] = g
}

// Groups returns all groups in canonical tactic order.
func (r *Registry) Groups() []*Group {
	return r.groups
}

// Group returns the group for a tactic, or nil if unknown.
func (r *Registry) Group(tactic Tactic) *Group {
	return r.byName[tactic]
}

// ContainsURL reports whether the text contains a URL-like pattern. The
// normalizer's <URL> placeholder also counts, so the check holds for both
// raw and normalized text.
func (r *Registry) ContainsURL(text string) bool {
	return r.reURL.MatchString(text)
}

// TotalKeywords returns the total keyword count across all groups.
func (r *Registry) TotalKeywords() int {
	n := 0
	for _, g := range r.groups {
		n += len(g.Keywords)
	}
	return n
}
