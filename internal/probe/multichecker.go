package probe

import (
	"context"
	"strings"
)

// MultiChecker runs the first checker and, when it fails, runs the remaining
// ones as diagnostics and appends their verdicts to the failure message.
type MultiChecker struct {
	Checkers []Checker
}

func NewMultiChecker(checkers ...Checker) *MultiChecker {
	return &MultiChecker{Checkers: checkers}
}

func (m *MultiChecker) Check(ctx context.Context, target string) CheckResult {
	if len(m.Checkers) == 0 {
		return CheckResult{Success: false, Message: "no checkers configured"}
	}
	out := m.Checkers[0].Check(ctx, target)
	if out.Success {
		return out
	}
	notes := []string{out.Message}
	for _, c := range m.Checkers[1:] {
		d := c.Check(ctx, target)
		notes = append(notes, strings.ToLower(d.Name)+"="+d.Message)
	}
	out.Message = strings.TrimSpace(strings.Join(notes, " "))
	return out
}
