package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/statusoverview/internal/domain"
	"github.com/hamed0406/statusoverview/internal/probe"
	"github.com/hamed0406/statusoverview/internal/repo"
)

// PingWriter is the part of a ping store the prober needs.
type PingWriter interface {
	AppendPing(ctx context.Context, p *domain.Ping) error
}

// Prober checks every enabled monitor configured for its location and records
// one summary ping per check.
type Prober struct {
	Logger      *zap.Logger
	Monitors    repo.MonitorStore
	Pings       PingWriter
	Checker     probe.Checker
	Location    string
	Interval    time.Duration
	Timeout     time.Duration
	Concurrency int
	// OnCheck, when set, is called after every check.
	OnCheck func(up bool)
}

func NewProber(
	logger *zap.Logger,
	ms repo.MonitorStore,
	pw PingWriter,
	checker probe.Checker,
	location string,
	interval time.Duration,
	timeout time.Duration,
	concurrency int,
) *Prober {
	if concurrency < 1 {
		concurrency = 1
	}
	if interval < 0 {
		interval = 0
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Prober{
		Logger:      logger,
		Monitors:    ms,
		Pings:       pw,
		Checker:     checker,
		Location:    location,
		Interval:    interval,
		Timeout:     timeout,
		Concurrency: concurrency,
	}
}

// Run starts the loop. It does an immediate pass, then runs each tick.
// Stops when ctx is cancelled.
func (p *Prober) Run(ctx context.Context) {
	if p.Interval == 0 || p.Location == "" {
		p.Logger.Info("prober_disabled")
		return
	}
	t := time.NewTicker(p.Interval)
	defer t.Stop()

	p.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			p.Logger.Info("prober_stopped")
			return
		case <-t.C:
			p.runOnce(ctx)
		}
	}
}

func (p *Prober) runOnce(ctx context.Context) {
	ms, err := p.Monitors.ListMonitors(ctx)
	if err != nil {
		p.Logger.Warn("prober_list_error", zap.Error(err))
		return
	}

	sem := make(chan struct{}, p.Concurrency)
	var wg sync.WaitGroup

	for _, m := range ms {
		if !m.Enabled || !m.HasLocation(p.Location) {
			continue
		}
		m := m // per-iteration copy (Go 1.22 loopvar semantics on go1.21)
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() { <-sem }()
			defer wg.Done()
			p.check(ctx, m)
		}()
	}

	wg.Wait()
}

func (p *Prober) check(ctx context.Context, m domain.Monitor) {
	cctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	out := p.Checker.Check(cctx, m.URL)
	ping := out.Ping(m, p.Location, time.Now())
	if p.OnCheck != nil {
		p.OnCheck(out.Success)
	}

	if err := p.Pings.AppendPing(ctx, ping); err != nil {
		p.Logger.Warn("prober_append_error",
			zap.String("monitor_id", string(m.QueryID)),
			zap.String("url", m.URL),
			zap.Error(err),
		)
		return
	}
	p.Logger.Debug("prober_checked",
		zap.String("monitor_id", string(m.QueryID)),
		zap.String("location", p.Location),
		zap.String("url", m.URL),
		zap.Int("status", out.StatusCode),
		zap.Bool("up", out.Success),
		zap.Float64("latency_ms", out.LatencyMS),
		zap.String("reason", out.Message),
	)
}
