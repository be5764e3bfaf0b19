package status

import "github.com/hamed0406/statusoverview/internal/domain"

// Classify turns summary counters into a verdict. Down dominates up. When both
// counters are zero no verdict is assigned and ok is false: the pair is left
// for the pending path.
func Classify(down, up int) (s domain.Status, ok bool) {
	switch {
	case down > 0:
		return domain.StatusDown, true
	case up > 0:
		return domain.StatusUp, true
	default:
		return "", false
	}
}
