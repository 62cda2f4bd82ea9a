package fusion

import "fmt"

// Gate maps a fused probability to a provisional risk level and decides
// whether the cloud confirmation stage should run.
//
// Invariants enforced at construction: 0 < AlertThreshold <= HighThreshold <= 1.
type Gate struct {
	// AlertThreshold is the minimum fused score that escalates to cloud
	// confirmation. Scores below it resolve LOW locally.
	AlertThreshold float64

	// HighThreshold is the minimum fused score for a provisional HIGH.
	HighThreshold float64
}

// NewGate validates and constructs a gate.
func NewGate(alertThreshold, highThreshold float64) (*Gate, error) {
	if alertThreshold <= 0 || alertThreshold > 1 {
		return nil, fmt.Errorf("alert threshold %v out of range (0,1]", alertThreshold)
	}
	if highThreshold < alertThreshold || highThreshold > 1 {
		return nil, fmt.Errorf("high threshold %v must be in [%v,1]", highThreshold, alertThreshold)
	}
	return &Gate{AlertThreshold: alertThreshold, HighThreshold: highThreshold}, nil
}

// DefaultGate returns the standard operating point.
func DefaultGate() *Gate {
	return &Gate{AlertThreshold: 0.50, HighThreshold: 0.78}
}

// Escalate reports whether the fused score warrants cloud confirmation.
func (g *Gate) Escalate(fused float64) bool {
	return fused >= g.AlertThreshold
}

// Level returns the provisional risk level for a fused score.
func (g *Gate) Level(fused float64) RiskLevel {
	switch {
	case fused >= g.HighThreshold:
		return RiskHigh
	case fused >= g.AlertThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}
