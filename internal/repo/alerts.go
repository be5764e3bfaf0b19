package repo

import (
	"context"
	"time"

	"github.com/hamed0406/statusoverview/internal/domain"
)

// AlertRecord holds the last status we saw for a "{ConfigID}-{Location}" key
// and the last time we sent a notification for it (used for cooldown).
type AlertRecord struct {
	Key        string
	LastStatus domain.Status
	LastSentAt *time.Time
}

// AlertStore is implemented by a persistence layer to store alert state.
type AlertStore interface {
	// GetAlert returns nil, nil if there's no record yet.
	GetAlert(ctx context.Context, key string) (*AlertRecord, error)
	// SetAlert upserts the record. If sentAt.IsZero() the previous
	// last_sent_at is kept.
	SetAlert(ctx context.Context, key string, last domain.Status, sentAt time.Time) error
}
