package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/statusoverview/internal/domain"
	"github.com/hamed0406/statusoverview/internal/notify"
	"github.com/hamed0406/statusoverview/internal/repo"
	"github.com/hamed0406/statusoverview/internal/status"
)

type AlerterConfig struct {
	AlertOnRecovery bool
	Cooldown        time.Duration
	PollInterval    time.Duration
	// Window is how far back each scan looks for pings.
	Window time.Duration
	// Locations is the allow-list passed to every reconciliation.
	Locations []string
}

// Reconciler produces the status overview the alerter scans.
type Reconciler interface {
	Reconcile(ctx context.Context, req status.Request) (*domain.OverviewReport, error)
}

// Alerter reconciles monitor status periodically and notifies when a
// (config, location) pair goes down or recovers.
type Alerter struct {
	logger     *zap.Logger
	monitors   repo.MonitorStore
	reconciler Reconciler
	alertDB    repo.AlertStore
	notifier   notify.Notifier
	cfg        AlerterConfig
	now        func() time.Time
}

func NewAlerter(
	logger *zap.Logger,
	monitors repo.MonitorStore,
	reconciler Reconciler,
	alertDB repo.AlertStore,
	notifier notify.Notifier,
	cfg AlerterConfig,
) *Alerter {
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	return &Alerter{
		logger:     logger,
		monitors:   monitors,
		reconciler: reconciler,
		alertDB:    alertDB,
		notifier:   notifier,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (a *Alerter) Run(ctx context.Context) error {
	if a.cfg.PollInterval <= 0 {
		a.logger.Info("alerter_disabled")
		return nil
	}
	t := time.NewTicker(a.cfg.PollInterval)
	defer t.Stop()

	// initial pass
	a.logScan(a.scanOnce(ctx))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			a.logScan(a.scanOnce(ctx))
		}
	}
}

func (a *Alerter) logScan(err error) {
	if err != nil {
		a.logger.Warn("alerter_scan_error", zap.Error(err))
	}
}

func (a *Alerter) scanOnce(ctx context.Context) error {
	ms, err := a.monitors.ListMonitors(ctx)
	if err != nil {
		return fmt.Errorf("list monitors: %w", err)
	}
	now := a.now().UTC()
	req := status.RequestFromMonitors(ms, a.cfg.Locations, domain.TimeRange{From: now.Add(-a.cfg.Window), To: now})
	report, err := a.reconciler.Reconcile(ctx, req)
	if err != nil {
		// no partial report: keep the previous alert state untouched
		return err
	}

	metas := make([]domain.StatusMeta, 0, report.Up+report.Down)
	for _, m := range report.DownConfigs {
		metas = append(metas, m)
	}
	for _, m := range report.UpConfigs {
		metas = append(metas, m)
	}
	sort.Slice(metas, func(i, j int) bool {
		return domain.StatusKey(metas[i].ConfigID, metas[i].Location) < domain.StatusKey(metas[j].ConfigID, metas[j].Location)
	})

	for _, m := range metas {
		a.evaluate(ctx, now, m)
	}
	return nil
}

func (a *Alerter) evaluate(ctx context.Context, now time.Time, m domain.StatusMeta) {
	key := domain.StatusKey(m.ConfigID, m.Location)
	rec, err := a.alertDB.GetAlert(ctx, key)
	if err != nil {
		a.logger.Warn("alerter_get_error", zap.String("key", key), zap.Error(err))
		return
	}

	// Has the up/down state changed compared to what we last recorded?
	stateChanged := rec == nil || rec.LastStatus != m.Status

	// Cooldown only matters for DOWN alerts (suppresses noisy repeats).
	cooled := true
	if rec != nil && rec.LastSentAt != nil {
		cooled = now.Sub(*rec.LastSentAt) >= a.cfg.Cooldown
	}

	isDown := m.Status == domain.StatusDown
	downAlert := stateChanged && isDown && cooled
	// a first-ever up is not a recovery
	recoveryAlert := stateChanged && !isDown && rec != nil && rec.LastStatus == domain.StatusDown && a.cfg.AlertOnRecovery

	if downAlert || recoveryAlert {
		alert := notify.Alert{Key: key, Meta: m}
		if rec != nil {
			alert.Previous = rec.LastStatus
		}
		if err := a.notifier.Notify(ctx, alert); err != nil {
			// state stays as it was so the next scan retries the send
			a.logger.Warn("alerter_send_error", zap.String("key", key), zap.Error(err))
			return
		}
		a.logger.Info("alerter_sent", zap.String("key", key), zap.String("status", string(m.Status)))
		a.record(ctx, key, m.Status, now)
		return
	}

	// If state changed but we did not send (e.g., DOWN within cooldown or
	// recovery alerts disabled), still record the new state without a send time.
	if stateChanged {
		a.record(ctx, key, m.Status, time.Time{})
	}
}

func (a *Alerter) record(ctx context.Context, key string, st domain.Status, sentAt time.Time) {
	if err := a.alertDB.SetAlert(ctx, key, st, sentAt); err != nil {
		a.logger.Warn("alerter_set_error", zap.String("key", key), zap.Error(err))
	}
}
