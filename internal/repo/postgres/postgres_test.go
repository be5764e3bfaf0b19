package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/statusoverview/internal/domain"
	"github.com/hamed0406/statusoverview/internal/repo"
	"github.com/hamed0406/statusoverview/internal/status"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := New(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("New store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestPostgresStore_Monitors(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	// unique ids per run to avoid UNIQUE collisions with previous runs
	qid := domain.MonitorID(fmt.Sprintf("test-%d", time.Now().UTC().UnixNano()))
	mon := &domain.Monitor{
		QueryID:   qid,
		Name:      "pg test",
		URL:       "https://example.com",
		Locations: []string{"eu", "us"},
		Enabled:   true,
	}
	if err := store.AddMonitor(ctx, mon); err != nil {
		t.Fatalf("AddMonitor: %v", err)
	}
	if mon.ConfigID == "" {
		t.Fatalf("expected ConfigID to be generated")
	}
	if err := store.AddMonitor(ctx, &domain.Monitor{QueryID: qid, URL: "https://x.example"}); !errors.Is(err, repo.ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}

	list, err := store.ListMonitors(ctx)
	if err != nil {
		t.Fatalf("ListMonitors: %v", err)
	}
	var found *domain.Monitor
	for i := range list {
		if list[i].QueryID == qid {
			found = &list[i]
		}
	}
	if found == nil {
		t.Fatalf("added monitor not found in list; got %d rows", len(list))
	}
	if len(found.Locations) != 2 || found.Locations[1] != "us" {
		t.Fatalf("unexpected locations: %v", found.Locations)
	}
}

func TestPostgresStore_SearchLatest(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	id := domain.MonitorID(fmt.Sprintf("search-%d", time.Now().UTC().UnixNano()))
	base := time.Now().UTC().Truncate(time.Second)
	pings := []*domain.Ping{
		{MonitorID: id, ConfigID: "cfg", Location: "eu", Timestamp: base.Add(-20 * time.Minute), Summary: &domain.Summary{Up: 1}},
		{MonitorID: id, ConfigID: "cfg", Location: "eu", Timestamp: base.Add(-5 * time.Minute), Summary: &domain.Summary{Down: 1}, Error: "boom"},
		{MonitorID: id, ConfigID: "cfg", Location: "eu", Timestamp: base.Add(-1 * time.Minute)},
		{MonitorID: id, ConfigID: "cfg", Location: "ap", Timestamp: base.Add(-1 * time.Minute), Summary: &domain.Summary{Up: 1}},
	}
	for _, p := range pings {
		if err := store.AppendPing(ctx, p); err != nil {
			t.Fatalf("AppendPing: %v", err)
		}
	}

	hits, err := store.Search(ctx, status.Query{
		Range:      domain.TimeRange{From: base.Add(-time.Hour), To: base},
		MonitorIDs: []domain.MonitorID{id},
		Locations:  []string{"eu"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("want 1 hit, got %d", len(hits))
	}
	h := hits[0]
	if h.Location != "eu" || h.Ping.Summary == nil || h.Ping.Summary.Down != 1 || h.Ping.Error != "boom" {
		t.Fatalf("unexpected hit: %+v", h)
	}

	all, err := store.Search(ctx, status.Query{
		Range:      domain.TimeRange{From: base.Add(-time.Hour), To: base},
		MonitorIDs: []domain.MonitorID{id},
	})
	if err != nil {
		t.Fatalf("Search without locations: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("want 2 hits without location filter, got %d", len(all))
	}
}

func TestPostgresStore_Alerts(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	key := fmt.Sprintf("cfg-%d-eu", time.Now().UTC().UnixNano())

	rec, err := store.GetAlert(ctx, key)
	if err != nil || rec != nil {
		t.Fatalf("expected nil, got %+v err=%v", rec, err)
	}

	now := time.Now().UTC()
	if err := store.SetAlert(ctx, key, domain.StatusDown, now); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.SetAlert(ctx, key, domain.StatusUp, time.Time{}); err != nil {
		t.Fatalf("set2: %v", err)
	}
	rec, err = store.GetAlert(ctx, key)
	if err != nil || rec == nil || rec.LastStatus != domain.StatusUp || rec.LastSentAt == nil {
		t.Fatalf("unexpected: %+v err=%v", rec, err)
	}
}
