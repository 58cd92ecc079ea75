package ops

import (
	"fmt"
	"strings"
)

// RiskLevel classifies how dangerous an operation is.
type RiskLevel int

const (
	RiskNone RiskLevel = iota // No TOTP required (e.g. /help)
	RiskLow                   // TOTP required as last arg
	RiskHigh                  // TOTP plus an inline Confirm button
)

func (r RiskLevel) String() string {
	switch r {
	case RiskNone:
		return "none"
	case RiskLow:
		return "low"
	case RiskHigh:
		return "high"
	default:
		return fmt.Sprintf("RiskLevel(%d)", int(r))
	}
}

// ParseRisk parses "none", "low" or "high". An empty string is RiskLow.
func ParseRisk(s string) (RiskLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return RiskNone, nil
	case "", "low":
		return RiskLow, nil
	case "high":
		return RiskHigh, nil
	default:
		return RiskLow, fmt.Errorf("unknown risk level %q", s)
	}
}

// RiskClassifier is an optional interface ops may implement to declare
// their risk level. Ops that don't implement it default to RiskLow.
type RiskClassifier interface {
	Risk() RiskLevel
}

// RiskOf returns the risk level of an op. If the op implements
// RiskClassifier, its declared level is used; otherwise RiskLow.
func RiskOf(op Op) RiskLevel {
	if rc, ok := op.(RiskClassifier); ok {
		return rc.Risk()
	}
	return RiskLow
}
