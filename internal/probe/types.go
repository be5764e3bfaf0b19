package probe

import (
	"context"
	"time"

	"github.com/hamed0406/statusoverview/internal/domain"
)

// CheckResult is the unified result of a single probe.
//
// StatusCode is the HTTP status when available and 0 for transport or DNS
// errors.
type CheckResult struct {
	Name       string  `json:"name"`
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	StatusCode int     `json:"status_code,omitempty"`
	LatencyMS  float64 `json:"latency_ms,omitempty"`
}

// Checker performs a single check for a given target URL.
type Checker interface {
	Check(ctx context.Context, target string) CheckResult
}

// Ping turns the result of checking m from location into a summary ping:
// up=1 on success, down=1 with the failure message otherwise.
func (r CheckResult) Ping(m domain.Monitor, location string, at time.Time) *domain.Ping {
	p := &domain.Ping{
		Timestamp: at.UTC(),
		MonitorID: m.QueryID,
		ConfigID:  m.ConfigID,
		Location:  location,
		Summary:   &domain.Summary{},
		URL:       m.URL,
		LatencyMS: r.LatencyMS,
	}
	if r.Success {
		p.Summary.Up = 1
	} else {
		p.Summary.Down = 1
		p.Error = r.Message
	}
	return p
}
