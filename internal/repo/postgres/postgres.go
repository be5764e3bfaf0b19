package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/statusoverview/internal/domain"
	"github.com/hamed0406/statusoverview/internal/repo"
	"github.com/hamed0406/statusoverview/internal/status"
)

var _ repo.MonitorStore = (*Store)(nil)
var _ repo.PingStore = (*Store)(nil)

// Schema creates the tables the store needs. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS monitors (
  config_id  TEXT PRIMARY KEY,
  query_id   TEXT NOT NULL UNIQUE,
  name       TEXT NOT NULL DEFAULT '',
  url        TEXT NOT NULL,
  locations  TEXT[] NOT NULL DEFAULT '{}',
  enabled    BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pings (
  id           BIGSERIAL PRIMARY KEY,
  monitor_id   TEXT NOT NULL,
  config_id    TEXT NOT NULL DEFAULT '',
  location     TEXT NOT NULL,
  ts           TIMESTAMPTZ NOT NULL,
  summary_up   INTEGER NULL,
  summary_down INTEGER NULL,
  url          TEXT NOT NULL DEFAULT '',
  error        TEXT NOT NULL DEFAULT '',
  latency_ms   DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_pings_monitor_location_ts ON pings (monitor_id, location, ts DESC);

CREATE TABLE IF NOT EXISTS alerts (
  key          TEXT PRIMARY KEY,
  last_status  TEXT NOT NULL,
  last_sent_at TIMESTAMPTZ NULL
);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// ---- MonitorStore ----

func (s *Store) AddMonitor(ctx context.Context, m *domain.Monitor) error {
	repo.PrepareMonitor(m)
	locs := m.Locations
	if locs == nil {
		locs = []string{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO monitors (config_id, query_id, name, url, locations, enabled, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(m.ConfigID), string(m.QueryID), m.Name, m.URL, locs, m.Enabled, m.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repo.ErrDuplicate
		}
		return fmt.Errorf("insert monitor: %w", err)
	}
	return nil
}

func (s *Store) ListMonitors(ctx context.Context) ([]domain.Monitor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT config_id, query_id, name, url, locations, enabled, created_at
		   FROM monitors
		  ORDER BY created_at, config_id`)
	if err != nil {
		return nil, fmt.Errorf("list monitors: %w", err)
	}
	defer rows.Close()

	var out []domain.Monitor
	for rows.Next() {
		var (
			configID, queryID string
			m                 domain.Monitor
		)
		if err := rows.Scan(&configID, &queryID, &m.Name, &m.URL, &m.Locations, &m.Enabled, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan monitor: %w", err)
		}
		m.ConfigID = domain.ConfigID(configID)
		m.QueryID = domain.MonitorID(queryID)
		out = append(out, m)
	}
	return out, rows.Err()
}

// ---- PingStore ----

func (s *Store) AppendPing(ctx context.Context, p *domain.Ping) error {
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	var up, down *int
	if p.Summary != nil {
		up, down = &p.Summary.Up, &p.Summary.Down
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pings
		   (monitor_id, config_id, location, ts, summary_up, summary_down, url, error, latency_ms)
		 VALUES
		   ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(p.MonitorID), string(p.ConfigID), p.Location, p.Timestamp, up, down, p.URL, p.Error, p.LatencyMS,
	)
	if err != nil {
		return fmt.Errorf("insert ping: %w", err)
	}
	return nil
}

// Search picks the latest summary ping per (monitor, location). DISTINCT ON
// keeps the first row of each group, so ties on ts go to the lowest id.
func (s *Store) Search(ctx context.Context, q status.Query) ([]status.Hit, error) {
	ids := make([]string, len(q.MonitorIDs))
	for i, id := range q.MonitorIDs {
		ids[i] = string(id)
	}
	locs := q.Locations
	if locs == nil {
		locs = []string{}
	}

	rows, err := s.pool.Query(ctx, `
SELECT DISTINCT ON (monitor_id, location)
       monitor_id, config_id, location, ts, summary_up, summary_down, url, error, latency_ms
  FROM pings
 WHERE monitor_id = ANY($1)
   AND ts BETWEEN $2 AND $3
   AND summary_up IS NOT NULL
   AND (cardinality($4::text[]) = 0 OR location = ANY($4))
 ORDER BY monitor_id, location, ts DESC, id ASC`,
		ids, q.Range.From, q.Range.To, locs)
	if err != nil {
		return nil, fmt.Errorf("search pings: %w", err)
	}
	defer rows.Close()

	var out []status.Hit
	for rows.Next() {
		var (
			monitorID, configID string
			p                   domain.Ping
			up, down            *int
		)
		if err := rows.Scan(&monitorID, &configID, &p.Location, &p.Timestamp, &up, &down, &p.URL, &p.Error, &p.LatencyMS); err != nil {
			return nil, fmt.Errorf("scan ping: %w", err)
		}
		p.MonitorID = domain.MonitorID(monitorID)
		p.ConfigID = domain.ConfigID(configID)
		if up != nil {
			p.Summary = &domain.Summary{Up: *up}
			if down != nil {
				p.Summary.Down = *down
			}
		}
		out = append(out, status.Hit{MonitorID: p.MonitorID, Location: p.Location, Ping: p})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search pings: %w", err)
	}
	if s.log != nil {
		s.log.Debug("pg_search", zap.Int("monitors", len(ids)), zap.Int("hits", len(out)))
	}
	return out, nil
}
