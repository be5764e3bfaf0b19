package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultUserAgent identifies agent traffic in the monitored sites' logs.
const DefaultUserAgent = "statusoverview-agent/1"

const maxRedirects = 5

type HTTPChecker struct {
	Client    *http.Client
	UserAgent string
	// Location is sent as X-Monitor-Location so targets can tell agents apart.
	Location string
}

func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	return &HTTPChecker{
		Client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		UserAgent: DefaultUserAgent,
	}
}

// Check issues a GET and treats 2xx and 3xx as up. At most 64KiB of the body
// is drained so the connection can be reused.
func (h *HTTPChecker) Check(ctx context.Context, target string) CheckResult {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return CheckResult{Name: "http", Message: err.Error()}
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}
	if h.Location != "" {
		req.Header.Set("X-Monitor-Location", h.Location)
	}

	resp, err := h.Client.Do(req)
	latency := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "timeout: " + msg
		}
		return CheckResult{Name: "http", Message: msg, LatencyMS: latency}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return CheckResult{
		Name:       "http",
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 400,
		Message:    resp.Status,
		StatusCode: resp.StatusCode,
		LatencyMS:  latency,
	}
}
