package conversation

import (
	"fmt"
	"time"
)

// Urgency is a coarse tier derived from elapsed time.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Rank orders urgencies low < medium < high < critical. Unknown values rank lowest.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyMedium:
		return 1
	case UrgencyHigh:
		return 2
	case UrgencyCritical:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether u is at or above other.
func (u Urgency) AtLeast(other Urgency) bool {
	return u.Rank() >= other.Rank()
}

// UrgencyThresholds are the tier boundaries in hours since a message was received.
type UrgencyThresholds struct {
	Medium   time.Duration `json:"medium"`
	High     time.Duration `json:"high"`
	Critical time.Duration `json:"critical"`
}

// DefaultUrgencyThresholds returns the 24h/48h/72h boundaries.
func DefaultUrgencyThresholds() UrgencyThresholds {
	return UrgencyThresholds{
		Medium:   24 * time.Hour,
		High:     48 * time.Hour,
		Critical: 72 * time.Hour,
	}
}

// Validate checks that boundaries are positive and strictly increasing.
func (t UrgencyThresholds) Validate() error {
	if t.Medium <= 0 {
		return fmt.Errorf("medium threshold must be positive, got %s", t.Medium)
	}
	if t.High <= t.Medium || t.Critical <= t.High {
		return fmt.Errorf("thresholds must increase: medium=%s high=%s critical=%s", t.Medium, t.High, t.Critical)
	}
	return nil
}

// Tier maps an elapsed duration to an urgency. Negative durations are low.
func (t UrgencyThresholds) Tier(elapsed time.Duration) Urgency {
	switch {
	case elapsed < t.Medium:
		return UrgencyLow
	case elapsed < t.High:
		return UrgencyMedium
	case elapsed < t.Critical:
		return UrgencyHigh
	default:
		return UrgencyCritical
	}
}
