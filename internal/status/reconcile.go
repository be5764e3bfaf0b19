package status

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/statusoverview/internal/domain"
)

// Request is the input of one reconciliation.
//
// Expected and ConfigIDs are trusted: they are not validated beyond falling
// back to the raw MonitorID when a ConfigID mapping is missing. Pairs are only
// reported if they appear in Expected, and a stale Expected matrix shows up
// as extra or missing pending entries.
type Request struct {
	Range domain.TimeRange
	// Locations is the allow-list. Empty means every expected location.
	Locations  []string
	MonitorIDs []domain.MonitorID
	Expected   map[domain.MonitorID][]string
	ConfigIDs  map[domain.MonitorID]domain.ConfigID
}

// Observer receives the outcome of every reconciliation.
type Observer interface {
	ObserveReconcile(elapsed time.Duration, pages int, report *domain.OverviewReport, err error)
}

// Reconciler turns paged backend queries into an OverviewReport.
type Reconciler struct {
	Logger        *zap.Logger
	Backend       Backend
	MaxBucketSize int
	Concurrency   int
	Timeout       time.Duration
	Observer      Observer
}

func NewReconciler(
	logger *zap.Logger,
	backend Backend,
	maxBucketSize int,
	concurrency int,
	timeout time.Duration,
) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBucketSize < 1 {
		maxBucketSize = DefaultMaxBucketSize
	}
	if concurrency < 1 {
		concurrency = 4
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Reconciler{
		Logger:        logger,
		Backend:       backend,
		MaxBucketSize: maxBucketSize,
		Concurrency:   concurrency,
		Timeout:       timeout,
	}
}

// Reconcile runs one reconciliation with default settings.
func Reconcile(ctx context.Context, backend Backend, req Request) (*domain.OverviewReport, error) {
	return NewReconciler(nil, backend, 0, 0, 0).Reconcile(ctx, req)
}

// Reconcile queries the backend page by page and reports every expected
// (monitor, location) pair as up, down or pending. A failed page aborts the
// call with a *BackendError and no report.
func (r *Reconciler) Reconcile(ctx context.Context, req Request) (*domain.OverviewReport, error) {
	start := time.Now()
	locations := distinct(req.Locations)
	pages := PlanPages(req.MonitorIDs, len(locations), r.MaxBucketSize)

	report, err := r.reconcile(ctx, req, locations, pages)
	if r.Observer != nil {
		r.Observer.ObserveReconcile(time.Since(start), len(pages), report, err)
	}
	return report, err
}

func (r *Reconciler) reconcile(
	ctx context.Context,
	req Request,
	locations []string,
	pages [][]domain.MonitorID,
) (*domain.OverviewReport, error) {
	results, err := r.fetch(ctx, req.Range, locations, pages)
	if err != nil {
		r.Logger.Warn("status_reconcile_failed",
			zap.Int("pages", len(pages)),
			zap.Error(err),
		)
		return nil, err
	}

	allow := newLocationFilter(locations)
	t := newTracker(req.Expected, allow)
	agg := newAggregator(req.Expected, allow)
	for _, hits := range results {
		agg.merge(hits)
	}

	asm := newAssembler()
	unclassified := agg.resolve(t, asm, req.ConfigIDs)
	gaps := 0
	for _, meta := range t.pending(req.ConfigIDs, func(id domain.MonitorID) {
		gaps++
		r.Logger.Warn("status_mapping_gap", zap.String("monitor_id", string(id)))
	}) {
		asm.addPending(meta)
	}
	report := asm.report(req.MonitorIDs)

	r.Logger.Info("status_reconciled",
		zap.Int("pages", len(pages)),
		zap.Int("up", report.Up),
		zap.Int("down", report.Down),
		zap.Int("pending", report.Pending),
		zap.Int("discarded_hits", agg.discarded),
		zap.Int("unclassified_hits", unclassified),
		zap.Int("mapping_gaps", gaps),
	)
	return report, nil
}

// fetch runs the page queries on a bounded pool. Every page writes only its
// own slot, and the first failure cancels the rest.
func (r *Reconciler) fetch(
	ctx context.Context,
	rng domain.TimeRange,
	locations []string,
	pages [][]domain.MonitorID,
) ([][]Hit, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	size := PageSize(r.MaxBucketSize, len(locations))
	results := make([][]Hit, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Concurrency)

	for i, ids := range pages {
		i, ids := i, ids // per-iteration copy (Go 1.22 loopvar semantics on go1.21)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return &BackendError{Page: i, Err: err}
			}
			hits, err := r.Backend.Search(gctx, Query{
				Range:      rng,
				MonitorIDs: ids,
				Locations:  locations,
				Size:       size,
			})
			if err != nil {
				return &BackendError{Page: i, Err: err}
			}
			results[i] = hits
			r.Logger.Debug("status_page_fetched",
				zap.Int("page", i),
				zap.Int("monitors", len(ids)),
				zap.Int("hits", len(hits)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// RequestFromMonitors builds a Request from the enabled monitors of a registry.
func RequestFromMonitors(monitors []domain.Monitor, locations []string, rng domain.TimeRange) Request {
	req := Request{
		Range:      rng,
		Locations:  locations,
		MonitorIDs: make([]domain.MonitorID, 0, len(monitors)),
		Expected:   make(map[domain.MonitorID][]string, len(monitors)),
		ConfigIDs:  make(map[domain.MonitorID]domain.ConfigID, len(monitors)),
	}
	for _, m := range monitors {
		if !m.Enabled {
			continue
		}
		req.MonitorIDs = append(req.MonitorIDs, m.QueryID)
		req.Expected[m.QueryID] = append([]string(nil), m.Locations...)
		req.ConfigIDs[m.QueryID] = m.ConfigID
	}
	return req
}

func distinct(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
