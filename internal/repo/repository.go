package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/statusoverview/internal/domain"
	"github.com/hamed0406/statusoverview/internal/status"
)

// ErrDuplicate is returned when a monitor's query id is already registered.
var ErrDuplicate = errors.New("duplicate monitor")

// Ports (interfaces). Any DB adapter can implement them.
type MonitorStore interface {
	AddMonitor(ctx context.Context, m *domain.Monitor) error
	ListMonitors(ctx context.Context) ([]domain.Monitor, error)
}

// PingStore records agent pings and answers status queries over them.
type PingStore interface {
	status.Backend
	AppendPing(ctx context.Context, p *domain.Ping) error
}

// PrepareMonitor fills in generated fields before a monitor is stored: a
// random ConfigID, a QueryID equal to the ConfigID, and the creation time.
func PrepareMonitor(m *domain.Monitor) {
	if m.ConfigID == "" {
		m.ConfigID = domain.ConfigID(uuid.NewString())
	}
	if m.QueryID == "" {
		m.QueryID = domain.MonitorID(m.ConfigID)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
}
