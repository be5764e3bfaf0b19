package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hamed0406/statusoverview/internal/domain"
	"github.com/hamed0406/statusoverview/internal/repo"
	"github.com/hamed0406/statusoverview/internal/status"
)

type Store struct {
	mu       sync.RWMutex
	monitors []domain.Monitor
	byQuery  map[domain.MonitorID]int
	pings    []domain.Ping
	alerts   map[string]repo.AlertRecord
}

func New() *Store {
	return &Store{
		byQuery: make(map[domain.MonitorID]int),
		pings:   make([]domain.Ping, 0, 128),
		alerts:  make(map[string]repo.AlertRecord),
	}
}

// ---- MonitorStore ----

func (m *Store) AddMonitor(ctx context.Context, mon *domain.Monitor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	repo.PrepareMonitor(mon)
	if _, ok := m.byQuery[mon.QueryID]; ok {
		return repo.ErrDuplicate
	}
	cp := *mon
	cp.Locations = append([]string(nil), mon.Locations...)
	m.byQuery[mon.QueryID] = len(m.monitors)
	m.monitors = append(m.monitors, cp)
	return nil
}

func (m *Store) ListMonitors(ctx context.Context) ([]domain.Monitor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Monitor, len(m.monitors))
	for i, mon := range m.monitors {
		mon.Locations = append([]string(nil), mon.Locations...)
		out[i] = mon
	}
	return out, nil
}

// ---- PingStore ----

func (m *Store) AppendPing(ctx context.Context, p *domain.Ping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	cp := *p
	if p.Summary != nil {
		s := *p.Summary
		cp.Summary = &s
	}
	m.pings = append(m.pings, cp)
	return nil
}

type pairKey struct {
	id  domain.MonitorID
	loc string
}

// Search returns the latest summary ping per (monitor, location) inside the
// range. On equal timestamps the first appended ping wins.
func (m *Store) Search(ctx context.Context, q status.Query) ([]status.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[domain.MonitorID]struct{}, len(q.MonitorIDs))
	for _, id := range q.MonitorIDs {
		want[id] = struct{}{}
	}
	var allow map[string]struct{}
	if len(q.Locations) > 0 {
		allow = make(map[string]struct{}, len(q.Locations))
		for _, l := range q.Locations {
			allow[l] = struct{}{}
		}
	}

	m.mu.RLock()
	latest := make(map[pairKey]domain.Ping)
	for _, p := range m.pings {
		if p.Summary == nil || !q.Range.Contains(p.Timestamp) {
			continue
		}
		if _, ok := want[p.MonitorID]; !ok {
			continue
		}
		if allow != nil {
			if _, ok := allow[p.Location]; !ok {
				continue
			}
		}
		k := pairKey{id: p.MonitorID, loc: p.Location}
		if cur, ok := latest[k]; !ok || p.Timestamp.After(cur.Timestamp) {
			latest[k] = p
		}
	}
	m.mu.RUnlock()

	out := make([]status.Hit, 0, len(latest))
	for k, p := range latest {
		out = append(out, status.Hit{MonitorID: k.id, Location: k.loc, Ping: p})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MonitorID != out[j].MonitorID {
			return out[i].MonitorID < out[j].MonitorID
		}
		return out[i].Location < out[j].Location
	})
	return out, nil
}

// ---- AlertStore ----

func (m *Store) GetAlert(ctx context.Context, key string) (*repo.AlertRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.alerts[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *Store) SetAlert(ctx context.Context, key string, last domain.Status, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ts *time.Time
	if !sentAt.IsZero() {
		ts = &sentAt
	} else if prev, ok := m.alerts[key]; ok {
		ts = prev.LastSentAt
	}
	m.alerts[key] = repo.AlertRecord{Key: key, LastStatus: last, LastSentAt: ts}
	return nil
}
