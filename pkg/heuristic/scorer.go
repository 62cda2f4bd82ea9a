// Package heuristic implements the always-on first detection stage: a fast
// keyword/category matcher producing a bounded scam probability and the set
// of matched manipulation tactics. No I/O, no model, deterministic,
// sub-millisecond.
package heuristic

import (
	"strings"

	"github.com/jagalabs/scamguard/pkg/keywords"
)

const (
	// maxPerGroup caps distinct keyword matches counted per tactic group so
	// one verbose group cannot dominate the score.
	maxPerGroup = 3

	// urlBonus is added once when any URL-like pattern is present.
	urlBonus = 2

	// practicalMax is the empirical normalization ceiling: six groups capped
	// at 3 plus the URL bonus rarely exceed 12 on real scam messages.
	practicalMax = 12.0
)

// Scorer evaluates text against the shared keyword registry.
type Scorer struct {
	registry *keywords.Registry
}

// NewScorer creates a scorer backed by the global keyword registry.
func NewScorer() *Scorer {
	return &Scorer{registry: keywords.Get()}
}

// Result holds one heuristic evaluation.
type Result struct {
	Score       float64           // bounded probability in [0,1]
	Tactics     []keywords.Tactic // matched groups, in first-encounter order
	ContainsURL bool
}

// Score evaluates raw message text. It works on its own lowercased copy and
// never consults the network or the classifier.
func (s *Scorer) Score(text string) Result {
	lower := strings.ToLower(text)

	raw := 0
	matchedGroups := 0
	var tactics []keywords.Tactic

	for _, g := range s.registry.Groups() {
		n := g.CountMatches(lower, maxPerGroup)
		if n == 0 {
			continue
		}
		raw += n
		matchedGroups++
		tactics = append(tactics, g.Tactic)
	}

	containsURL := s.registry.ContainsURL(text)
	if containsURL {
		raw += urlBonus
	}

	// Breadth bonus: a message touching several tactic groups at once is a
	// stronger signal than repeated hits within one group.
	raw += matchedGroups

	score := float64(raw) / practicalMax
	if score > 1.0 {
		score = 1.0
	}

	return Result{
		Score:       score,
		Tactics:     tactics,
		ContainsURL: containsURL,
	}
}
