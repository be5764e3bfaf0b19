package probe

import "time"

// NewDefault builds the checker agents use: an HTTP check retried on failure,
// with a DNS diagnosis appended when it still fails. location is announced to
// targets in a request header.
func NewDefault(timeout time.Duration, attempts int, backoff time.Duration, location string) Checker {
	hc := NewHTTPChecker(timeout)
	hc.Location = location
	return NewMultiChecker(
		&RetryChecker{Inner: hc, Attempts: attempts, Backoff: backoff, MaxBackoff: 5 * time.Second},
		NewDNSChecker(),
	)
}
