package memory

import (
	"errors"
	"fmt"
)

// Level is a memory pressure classification.
type Level int

const (
	Normal Level = iota
	Medium
	High
	Critical
)

func (l Level) String() string {
	switch l {
	case Normal:
		return "normal"
	case Medium:
		return "medium"
	case High:
		return "high"
	case Critical:
		return "critical"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Thresholds are the usage ratios at which each level begins.
type Thresholds struct {
	Medium   float64
	High     float64
	Critical float64
}

// DefaultThresholds mirror the configuration defaults.
var DefaultThresholds = Thresholds{Medium: 0.7, High: 0.8, Critical: 0.9}

// Validate checks that thresholds ascend strictly within (0, 1].
func (t Thresholds) Validate() error {
	if t.Medium <= 0 || t.Critical > 1 {
		return errors.New("thresholds must lie in (0, 1]")
	}
	if !(t.Medium < t.High && t.High < t.Critical) {
		return fmt.Errorf("thresholds must ascend: medium %.2f, high %.2f, critical %.2f", t.Medium, t.High, t.Critical)
	}
	return nil
}

// Classify maps a usage ratio to a level. The level depends only on ratio,
// so a jump from 0.75 to 0.95 lands on Critical directly.
func Classify(ratio float64, t Thresholds) Level {
	switch {
	case ratio >= t.Critical:
		return Critical
	case ratio >= t.High:
		return High
	case ratio >= t.Medium:
		return Medium
	default:
		return Normal
	}
}
