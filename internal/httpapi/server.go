package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/statusoverview/internal/domain"
	apimw "github.com/hamed0406/statusoverview/internal/httpapi/middleware"
	"github.com/hamed0406/statusoverview/internal/metrics"
	"github.com/hamed0406/statusoverview/internal/probe"
	"github.com/hamed0406/statusoverview/internal/repo"
	"github.com/hamed0406/statusoverview/internal/status"
)

// Reconciler answers overview queries.
type Reconciler interface {
	Reconcile(ctx context.Context, req status.Request) (*domain.OverviewReport, error)
}

type Server struct {
	Logger     *zap.Logger
	Monitors   repo.MonitorStore
	Pings      repo.PingStore
	Reconciler Reconciler
	// Checker and Location, when both set, run one check from this instance
	// right after a monitor is registered.
	Checker  probe.Checker
	Location string
	Metrics  *metrics.Metrics

	DefaultLocations []string
	DefaultWindow    time.Duration

	now func() time.Time
}

func NewServer(l *zap.Logger, ms repo.MonitorStore, ps repo.PingStore, rc Reconciler) *Server {
	return &Server{
		Logger:        l,
		Monitors:      ms,
		Pings:         ps,
		Reconciler:    rc,
		DefaultWindow: 15 * time.Minute,
	}
}

// Router wires routes and middleware. Reader routes accept public or admin
// keys, write routes need an admin key.
func (s *Server) Router(keys apimw.Keys, allowedOrigins []string, publicRPM, publicBurst, adminRPM, adminBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(apimw.RequestLog(s.Logger))
	if len(allowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(apimw.RateLimit(publicRPM, publicBurst))
			r.Use(apimw.RequireAny(keys))
			r.Method(http.MethodGet, "/overview", s.Metrics.WrapHandler("overview", http.HandlerFunc(s.handleOverview)))
			r.Method(http.MethodGet, "/monitors", s.Metrics.WrapHandler("list_monitors", http.HandlerFunc(s.handleListMonitors)))
		})
		r.Group(func(r chi.Router) {
			r.Use(apimw.RateLimit(adminRPM, adminBurst))
			r.Use(apimw.RequireAdmin(keys))
			r.Method(http.MethodPost, "/monitors", s.Metrics.WrapHandler("add_monitor", http.HandlerFunc(s.handleAddMonitor)))
			r.Method(http.MethodPost, "/pings", s.Metrics.WrapHandler("ingest_ping", http.HandlerFunc(s.handleIngestPing)))
		})
	})

	return r
}

type overviewResponse struct {
	*domain.OverviewReport
	AllMonitorsCount int `json:"allMonitorsCount"`
	DisabledCount    int `json:"disabledCount"`
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	now := s.clock().UTC()

	rng, err := parseRange(q.Get("from"), q.Get("to"), now, s.DefaultWindow)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	locations := splitList(q.Get("locations"))
	if len(locations) == 0 {
		locations = s.DefaultLocations
	}

	ms, err := s.Monitors.ListMonitors(r.Context())
	if err != nil {
		s.Logger.Error("list_monitors_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}

	report, err := s.Reconciler.Reconcile(r.Context(), status.RequestFromMonitors(ms, locations, rng))
	if err != nil {
		var be *status.BackendError
		if errors.As(err, &be) {
			writeError(w, http.StatusBadGateway, be.Error())
			return
		}
		s.Logger.Error("overview_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "overview error")
		return
	}

	disabled := 0
	for _, m := range ms {
		if !m.Enabled {
			disabled++
		}
	}
	writeJSON(w, http.StatusOK, overviewResponse{
		OverviewReport:   report,
		AllMonitorsCount: len(ms),
		DisabledCount:    disabled,
	})
}

func (s *Server) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Server) handleListMonitors(w http.ResponseWriter, r *http.Request) {
	ms, err := s.Monitors.ListMonitors(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

type addPayload struct {
	Name      string   `json:"name"`
	URL       string   `json:"url"`
	Locations []string `json:"locations"`
	ConfigID  string   `json:"config_id"`
	QueryID   string   `json:"query_id"`
	Enabled   *bool    `json:"enabled"`
}

func (s *Server) handleAddMonitor(w http.ResponseWriter, r *http.Request) {
	var p addPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.URL == "" {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	if !isValidHTTPURL(p.URL) {
		writeError(w, http.StatusBadRequest, "url must be http(s) with a host")
		return
	}
	locations := distinctNonEmpty(p.Locations)
	if len(locations) == 0 {
		locations = s.DefaultLocations
	}
	if len(locations) == 0 {
		writeError(w, http.StatusBadRequest, "at least one location is required")
		return
	}

	m := &domain.Monitor{
		ConfigID:  domain.ConfigID(strings.TrimSpace(p.ConfigID)),
		QueryID:   domain.MonitorID(strings.TrimSpace(p.QueryID)),
		Name:      strings.TrimSpace(p.Name),
		URL:       normalizeHTTPURL(p.URL),
		Locations: locations,
		Enabled:   p.Enabled == nil || *p.Enabled,
	}
	if err := s.Monitors.AddMonitor(r.Context(), m); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			writeError(w, http.StatusConflict, "monitor already exists")
			return
		}
		s.Logger.Error("add_monitor_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not add")
		return
	}

	// Run a single check for immediate feedback when this instance probes
	// one of the monitor's locations.
	var ping *domain.Ping
	if s.Checker != nil && s.Location != "" && m.Enabled && m.HasLocation(s.Location) {
		ping = s.checkNow(r.Context(), m)
	}

	s.Logger.Info("added_monitor",
		zap.String("config_id", string(m.ConfigID)),
		zap.String("query_id", string(m.QueryID)),
		zap.String("url", m.URL),
		zap.Strings("locations", m.Locations),
	)
	writeJSON(w, http.StatusCreated, map[string]any{"monitor": m, "ping": ping})
}

func (s *Server) checkNow(ctx context.Context, m *domain.Monitor) *domain.Ping {
	p := s.Checker.Check(ctx, m.URL).Ping(*m, s.Location, s.clock())
	if err := s.Pings.AppendPing(ctx, p); err != nil {
		s.Logger.Warn("append_ping_error", zap.Error(err))
		return nil
	}
	return p
}

func (s *Server) handleIngestPing(w http.ResponseWriter, r *http.Request) {
	var p domain.Ping
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	p.Location = strings.TrimSpace(p.Location)
	if p.MonitorID == "" || p.Location == "" {
		writeError(w, http.StatusBadRequest, "monitor_id and location are required")
		return
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = s.clock().UTC()
	}
	if err := s.Pings.AppendPing(r.Context(), &p); err != nil {
		s.Logger.Error("append_ping_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not store ping")
		return
	}
	s.Metrics.PingIngested()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// parseRange accepts RFC3339 times or a negative duration relative to now
// ("-15m"). Missing ends default to [now-window, now].
func parseRange(from, to string, now time.Time, window time.Duration) (domain.TimeRange, error) {
	rng := domain.TimeRange{From: now.Add(-window), To: now}
	var err error
	if to != "" {
		if rng.To, err = parseTime(to, now); err != nil {
			return rng, errors.New("invalid to: " + err.Error())
		}
	}
	if from != "" {
		if rng.From, err = parseTime(from, now); err != nil {
			return rng, errors.New("invalid from: " + err.Error())
		}
	} else if to != "" {
		rng.From = rng.To.Add(-window)
	}
	if rng.From.After(rng.To) {
		return rng, errors.New("from must not be after to")
	}
	return rng, nil
}

func parseTime(v string, now time.Time) (time.Time, error) {
	if strings.HasPrefix(v, "-") {
		d, err := time.ParseDuration(v)
		if err != nil {
			return time.Time{}, err
		}
		return now.Add(d), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	return distinctNonEmpty(strings.Split(v, ","))
}

func distinctNonEmpty(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func isValidHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Hostname() != ""
}

// normalizeHTTPURL lowercases scheme and host, strips default ports and a
// bare trailing slash.
func normalizeHTTPURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	switch {
	case port != "":
		host = net.JoinHostPort(host, port)
	case strings.Contains(host, ":"):
		host = "[" + host + "]"
	}
	u.Host = host
	if u.Path == "/" {
		u.Path = ""
	}
	return u.String()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
