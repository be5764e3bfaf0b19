package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hamed0406/statusoverview/internal/domain"
)

type Metrics struct {
	reg                prometheus.Gatherer
	httpRequestsTotal  *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	reconcileDuration  prometheus.Histogram
	reconcileErrors    prometheus.Counter
	reconcilePages     prometheus.Histogram
	statusPairs        *prometheus.GaugeVec
	pingsIngestedTotal prometheus.Counter
	checksTotal        *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// to avoid clashing with the default registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		reg: reg,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		reconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "status_reconcile_duration_seconds",
			Help:    "Histogram of status reconciliation durations.",
			Buckets: prometheus.DefBuckets,
		}),
		reconcileErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "status_reconcile_errors_total",
			Help: "Total reconciliations aborted by a backend error.",
		}),
		reconcilePages: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "status_reconcile_pages",
			Help:    "Number of backend pages queried per reconciliation.",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		}),
		statusPairs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "status_pairs",
			Help: "Monitor/location pairs by status in the last reconciliation.",
		}, []string{"status"}),
		pingsIngestedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pings_ingested_total",
			Help: "Total pings accepted by the ingestion endpoint.",
		}),
		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "probe_checks_total",
			Help: "Total probe checks run by this agent, by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.reconcileDuration,
		m.reconcileErrors,
		m.reconcilePages,
		m.statusPairs,
		m.pingsIngestedTotal,
		m.checksTotal,
	)
	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// ObserveReconcile implements status.Observer.
func (m *Metrics) ObserveReconcile(elapsed time.Duration, pages int, report *domain.OverviewReport, err error) {
	if m == nil {
		return
	}
	m.reconcileDuration.Observe(elapsed.Seconds())
	m.reconcilePages.Observe(float64(pages))
	if err != nil {
		m.reconcileErrors.Inc()
		return
	}
	m.statusPairs.WithLabelValues(string(domain.StatusUp)).Set(float64(report.Up))
	m.statusPairs.WithLabelValues(string(domain.StatusDown)).Set(float64(report.Down))
	m.statusPairs.WithLabelValues(string(domain.StatusPending)).Set(float64(report.Pending))
}

func (m *Metrics) PingIngested() {
	if m == nil {
		return
	}
	m.pingsIngestedTotal.Inc()
}

func (m *Metrics) CheckRun(up bool) {
	if m == nil {
		return
	}
	result := "down"
	if up {
		result = "up"
	}
	m.checksTotal.WithLabelValues(result).Inc()
}
