package probe

import (
	"context"
	"fmt"
	"time"
)

// RetryChecker re-runs a failing check with exponential backoff, so a single
// dropped connection does not turn into a down ping.
type RetryChecker struct {
	Inner    Checker
	Attempts int
	Backoff  time.Duration
	// MaxBackoff caps the doubled wait. Zero means no cap.
	MaxBackoff time.Duration
}

func (r *RetryChecker) wait(attempt int) time.Duration {
	d := r.Backoff << attempt
	if d < 0 || (r.MaxBackoff > 0 && d > r.MaxBackoff) {
		return r.MaxBackoff
	}
	return d
}

// Check retries the inner checker until it succeeds, the attempts run out or
// ctx is done.
func (r *RetryChecker) Check(ctx context.Context, target string) CheckResult {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var last CheckResult
	for i := 0; i < attempts; i++ {
		last = r.Inner.Check(ctx, target)
		if last.Success {
			return last
		}
		if i == attempts-1 {
			break
		}
		t := time.NewTimer(r.wait(i))
		select {
		case <-ctx.Done():
			t.Stop()
			last.Message += fmt.Sprintf(" (retry aborted after %d attempts)", i+1)
			return last
		case <-t.C:
		}
	}
	if attempts > 1 {
		last.Message += fmt.Sprintf(" (after %d attempts)", attempts)
	}
	return last
}
