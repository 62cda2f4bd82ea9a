// Package fusion combines the heuristic and neural stage scores into a
// single scam probability and maps it to a coarse risk level.
//
// Two policies are supported:
//   - weighted_sum (default): a fixed convex combination that trusts the
//     trained model more than the keyword counter
//   - noisy_or: treats the two stages as independent detectors; either one
//     alone can drive the fused score high
//
// Both policies degrade identically: when the neural stage is unavailable
// the fused score equals the heuristic score exactly, with no re-weighting.
package fusion

import (
	"fmt"

	"github.com/jagalabs/scamguard/pkg/classifier"
)

// RiskLevel is the coarse verdict attached to a triage result. Ordering is
// meaningful: LOW < MEDIUM < HIGH.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// rank maps levels to their ordering for comparisons.
func rank(l RiskLevel) int {
	switch l {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// Max returns the more severe of two levels.
func Max(a, b RiskLevel) RiskLevel {
	if rank(a) >= rank(b) {
		return a
	}
	return b
}

// Less reports whether a is strictly less severe than b.
func Less(a, b RiskLevel) bool {
	return rank(a) < rank(b)
}

// Policy fuses a heuristic score and a classifier score into one
// probability. The classifier score may be classifier.ScoreUnavailable, in
// which case every policy must return the heuristic score unchanged.
type Policy interface {
	Fuse(heuristic, neural float64) float64
	Name() string
}

// WeightedSum is the default policy: fused = wH*h + wN*n.
type WeightedSum struct {
	HeuristicWeight float64
	NeuralWeight    float64
}

// NewWeightedSum returns the default 0.20 / 0.80 split.
func NewWeightedSum() *WeightedSum {
	return &WeightedSum{HeuristicWeight: 0.20, NeuralWeight: 0.80}
}

func (w *WeightedSum) Name() string { return "weighted_sum" }

func (w *WeightedSum) Fuse(heuristic, neural float64) float64 {
	if neural == classifier.ScoreUnavailable {
		return heuristic
	}
	return clamp01(w.HeuristicWeight*heuristic + w.NeuralWeight*neural)
}

// NoisyOR fuses as 1 - (1-h)(1-n): the probability that at least one of two
// independent detectors fires.
type NoisyOR struct{}

func (NoisyOR) Name() string { return "noisy_or" }

func (NoisyOR) Fuse(heuristic, neural float64) float64 {
	if neural == classifier.ScoreUnavailable {
		return heuristic
	}
	return clamp01(1 - (1-heuristic)*(1-neural))
}

// PolicyFromName resolves a configuration value to a policy.
func PolicyFromName(name string) (Policy, error) {
	switch name {
	case "", "weighted_sum":
		return NewWeightedSum(), nil
	case "noisy_or":
		return NoisyOR{}, nil
	default:
		return nil, fmt.Errorf("unknown fusion policy %q", name)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
