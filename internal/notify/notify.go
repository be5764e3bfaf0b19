package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/statusoverview/internal/domain"
)

// Alert is a status transition of one "{ConfigID}-{Location}" pair.
type Alert struct {
	Key      string
	Previous domain.Status // empty for the first verdict seen
	Meta     domain.StatusMeta
}

// Recovered reports whether the pair came back up after being down.
func (a Alert) Recovered() bool {
	return a.Meta.Status == domain.StatusUp && a.Previous == domain.StatusDown
}

func (a Alert) Title() string {
	if a.Recovered() {
		return "🟢 Monitor RECOVERED"
	}
	return "🔴 Monitor DOWN"
}

func (a Alert) Text() string {
	url := a.Meta.Ping.URL
	if url == "" {
		url = "n/a"
	}
	reason := a.Meta.Ping.Error
	if reason == "" {
		reason = "n/a"
	}
	return fmt.Sprintf(
		"Monitor: %s\nLocation: %s\nURL: %s\nReason: %s\nChecked: %s",
		a.Meta.ConfigID, a.Meta.Location, url, reason, a.Meta.Timestamp.Format(time.RFC3339),
	)
}

type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// Multi sends to every notifier and returns all failures combined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, a Alert) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Notify(ctx, a))
	}
	return err
}

// Log writes every alert to the service log, so transitions are recorded
// even when no chat integration is configured.
type Log struct {
	Logger *zap.Logger
}

func (l Log) Notify(_ context.Context, a Alert) error {
	l.Logger.Warn("status_alert",
		zap.String("key", a.Key),
		zap.String("status", string(a.Meta.Status)),
		zap.String("previous", string(a.Previous)),
		zap.String("url", a.Meta.Ping.URL),
		zap.String("reason", a.Meta.Ping.Error),
		zap.Time("checked_at", a.Meta.Timestamp),
	)
	return nil
}
