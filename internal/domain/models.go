package domain

import "time"

// MonitorID identifies a monitor's query-level configuration. It may change
// across versions of the same logical monitor.
type MonitorID string

// ConfigID is the stable identity of a monitor across renames.
type ConfigID string

type Monitor struct {
	ConfigID  ConfigID  `json:"config_id"`
	QueryID   MonitorID `json:"query_id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Locations []string  `json:"locations"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// HasLocation reports whether the monitor is configured to run from loc.
func (m Monitor) HasLocation(loc string) bool {
	for _, l := range m.Locations {
		if l == loc {
			return true
		}
	}
	return false
}

type Summary struct {
	Up   int `json:"up"`
	Down int `json:"down"`
}

// Ping is a single observation recorded by an agent. Only pings carrying a
// Summary take part in status queries.
type Ping struct {
	Timestamp time.Time `json:"@timestamp"`
	MonitorID MonitorID `json:"monitor_id"`
	ConfigID  ConfigID  `json:"config_id,omitempty"`
	Location  string    `json:"location"`
	Summary   *Summary  `json:"summary,omitempty"`
	URL       string    `json:"url,omitempty"`
	Error     string    `json:"error,omitempty"`
	LatencyMS float64   `json:"latency_ms,omitempty"`
}

// Counts returns the summary counters, zero when the ping has no summary.
func (p Ping) Counts() (down, up int) {
	if p.Summary == nil {
		return 0, 0
	}
	return p.Summary.Down, p.Summary.Up
}

// TimeRange bounds a status query. Both ends are inclusive.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}
