package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hamed0406/statusoverview/internal/domain"
	"github.com/hamed0406/statusoverview/internal/repo"
)

var _ repo.AlertStore = (*Store)(nil)

func (s *Store) GetAlert(ctx context.Context, key string) (*repo.AlertRecord, error) {
	const q = `SELECT last_status, last_sent_at FROM alerts WHERE key=$1`
	r := repo.AlertRecord{Key: key}
	var last string
	err := s.pool.QueryRow(ctx, q, key).Scan(&last, &r.LastSentAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get alert: %w", err)
	}
	r.LastStatus = domain.Status(last)
	return &r, nil
}

func (s *Store) SetAlert(ctx context.Context, key string, last domain.Status, sentAt time.Time) error {
	const q = `
		INSERT INTO alerts (key, last_status, last_sent_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (key)
		DO UPDATE SET last_status=EXCLUDED.last_status,
		              last_sent_at=COALESCE(EXCLUDED.last_sent_at, alerts.last_sent_at)
	`
	var ts *time.Time
	if !sentAt.IsZero() {
		ts = &sentAt
	}
	if _, err := s.pool.Exec(ctx, q, key, string(last), ts); err != nil {
		return fmt.Errorf("set alert: %w", err)
	}
	return nil
}
