package status

import (
	"context"
	"fmt"

	"github.com/hamed0406/statusoverview/internal/domain"
)

// Query asks the backend for the latest summary ping per (monitor, location).
type Query struct {
	Range      domain.TimeRange
	MonitorIDs []domain.MonitorID
	// Locations is the allow-list. Empty means no location filter.
	Locations []string
	// Size is the page size the planner used; backends may use it to bound
	// their aggregation buckets.
	Size int
}

// Hit is the latest matching ping for one (monitor, location) pair.
type Hit struct {
	MonitorID domain.MonitorID
	Location  string
	Ping      domain.Ping
}

// Backend executes one paged status query. It returns at most one Hit per
// (MonitorID, Location) and makes no ordering guarantee.
type Backend interface {
	Search(ctx context.Context, q Query) ([]Hit, error)
}

// BackendError reports a failed or timed-out page query. It is fatal for the
// whole reconciliation.
type BackendError struct {
	Page int
	Err  error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("status backend page %d: %v", e.Page, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
