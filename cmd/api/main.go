package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/hamed0406/statusoverview/internal/config"
	"github.com/hamed0406/statusoverview/internal/httpapi"
	apimw "github.com/hamed0406/statusoverview/internal/httpapi/middleware"
	"github.com/hamed0406/statusoverview/internal/logging"
	"github.com/hamed0406/statusoverview/internal/metrics"
	"github.com/hamed0406/statusoverview/internal/notify"
	"github.com/hamed0406/statusoverview/internal/probe"
	"github.com/hamed0406/statusoverview/internal/repo"
	"github.com/hamed0406/statusoverview/internal/repo/memory"
	"github.com/hamed0406/statusoverview/internal/repo/postgres"
	"github.com/hamed0406/statusoverview/internal/scheduler"
	"github.com/hamed0406/statusoverview/internal/status"
)

type store interface {
	repo.MonitorStore
	repo.PingStore
	repo.AlertStore
}

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(logging.Options{Dir: cfg.LogDir, Level: cfg.LogLevel, Console: cfg.LogConsole})
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store_open_error", zap.Error(err))
	}
	defer closeStore()

	if cfg.MonitorsFile != "" {
		seedMonitors(ctx, logger, st, cfg.MonitorsFile)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	rec := status.NewReconciler(logger, st, cfg.MaxBucketSize, cfg.QueryConcurrency, cfg.QueryTimeout)
	rec.Observer = m

	checker := probe.NewDefault(cfg.HTTPTimeout, cfg.RetryAttempts, cfg.RetryBackoff, cfg.AgentLocation)

	prober := scheduler.NewProber(logger, st, st, checker, cfg.AgentLocation, cfg.CheckInterval, cfg.HTTPTimeout, cfg.MaxConcurrentChecks)
	prober.OnCheck = m.CheckRun
	go prober.Run(ctx)

	notifiers := notify.Multi{notify.Log{Logger: logger}}
	if slack := notify.NewSlack(cfg.SlackWebhookURL); slack != nil {
		notifiers = append(notifiers, slack)
	}
	alerter := scheduler.NewAlerter(logger, st, rec, st, notifiers, scheduler.AlerterConfig{
		AlertOnRecovery: cfg.AlertOnRecovery,
		Cooldown:        cfg.AlertCooldown,
		PollInterval:    cfg.AlertInterval,
		Window:          cfg.DefaultWindow,
		Locations:       cfg.DefaultLocations,
	})
	go func() {
		if err := alerter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("alerter_stopped", zap.Error(err))
		}
	}()

	api := httpapi.NewServer(logger, st, st, rec)
	api.Checker = checker
	api.Location = cfg.AgentLocation
	api.Metrics = m
	api.DefaultLocations = cfg.DefaultLocations
	api.DefaultWindow = cfg.DefaultWindow

	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	if len(keys.Public) == 0 && len(keys.Admin) == 0 {
		logger.Warn("auth_disabled", zap.String("hint", "set PUBLIC_API_KEYS and ADMIN_API_KEYS"))
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst, cfg.AdminRPM, cfg.AdminBurst),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("api_listen",
		zap.String("addr", cfg.Addr),
		zap.String("agent_location", cfg.AgentLocation),
		zap.Strings("default_locations", cfg.DefaultLocations),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("api_listen_error", zap.Error(err))
	}
	logger.Info("api_stopped")
}

// openStore uses PostgreSQL when DATABASE_URL is set, otherwise memory.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info("store_memory")
		return memory.New(), func() {}, nil
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pg, err := postgres.New(pctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.Migrate(pctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	logger.Info("store_postgres")
	return pg, pg.Close, nil
}

func seedMonitors(ctx context.Context, logger *zap.Logger, ms repo.MonitorStore, path string) {
	monitors, err := config.LoadMonitors(path)
	if err != nil {
		logger.Fatal("monitors_file_error", zap.String("path", path), zap.Error(err))
	}
	added := 0
	for i := range monitors {
		err := ms.AddMonitor(ctx, &monitors[i])
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			// already registered on a previous start
		case err != nil:
			logger.Warn("seed_monitor_error", zap.String("url", monitors[i].URL), zap.Error(err))
		default:
			added++
		}
	}
	logger.Info("monitors_seeded", zap.String("path", path), zap.Int("added", added), zap.Int("total", len(monitors)))
}
