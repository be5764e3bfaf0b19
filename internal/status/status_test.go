package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/hamed0406/statusoverview/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ---- fakes ----

var t0 = time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)

type fakeBackend struct {
	mu      sync.Mutex
	hits    map[domain.MonitorID][]Hit
	failOn  domain.MonitorID
	queries []Query
}

func (f *fakeBackend) Search(ctx context.Context, q Query) ([]Hit, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	var out []Hit
	for _, id := range q.MonitorIDs {
		if f.failOn != "" && id == f.failOn {
			return nil, errors.New("search exploded")
		}
		out = append(out, f.hits[id]...)
	}
	// reverse to make sure nothing depends on backend order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

type blockingBackend struct{}

func (blockingBackend) Search(ctx context.Context, q Query) ([]Hit, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type recordingObserver struct {
	pages int
	err   error
	calls int
}

func (o *recordingObserver) ObserveReconcile(_ time.Duration, pages int, _ *domain.OverviewReport, err error) {
	o.calls++
	o.pages = pages
	o.err = err
}

func hit(id domain.MonitorID, cfg domain.ConfigID, loc string, down, up int) Hit {
	return Hit{
		MonitorID: id,
		Location:  loc,
		Ping: domain.Ping{
			Timestamp: t0,
			MonitorID: id,
			ConfigID:  cfg,
			Location:  loc,
			Summary:   &domain.Summary{Up: up, Down: down},
		},
	}
}

func singleMonitorRequest(locs ...string) Request {
	return Request{
		Range:      domain.TimeRange{From: t0.Add(-time.Hour), To: t0},
		Locations:  locs,
		MonitorIDs: []domain.MonitorID{"m1"},
		Expected:   map[domain.MonitorID][]string{"m1": locs},
		ConfigIDs:  map[domain.MonitorID]domain.ConfigID{"m1": "c1"},
	}
}

// ---- planner ----

func TestPlanPages_SplitsUnderBucketCeiling(t *testing.T) {
	ids := make([]domain.MonitorID, 25000)
	for i := range ids {
		ids[i] = domain.MonitorID(fmt.Sprintf("m%05d", i))
	}

	require.Equal(t, 3333, PageSize(10000, 3))
	pages := PlanPages(ids, 3, 10000)
	require.Len(t, pages, 8)

	var joined []domain.MonitorID
	for _, p := range pages {
		require.LessOrEqual(t, len(p), 3333)
		joined = append(joined, p...)
	}
	if diff := cmp.Diff(ids, joined); diff != "" {
		t.Fatalf("pages do not reproduce ids (-want +got):\n%s", diff)
	}
}

func TestPageSize_Degenerate(t *testing.T) {
	require.Equal(t, 10000, PageSize(10000, 0))
	require.Equal(t, 1, PageSize(2, 5))
	require.Empty(t, PlanPages(nil, 3, 10000))

	pages := PlanPages([]domain.MonitorID{"a", "b", "c"}, 0, 2)
	require.Equal(t, [][]domain.MonitorID{{"a", "b"}, {"c"}}, pages)
}

// ---- classifier ----

func TestClassify(t *testing.T) {
	cases := []struct {
		down, up int
		want     domain.Status
		ok       bool
	}{
		{1, 0, domain.StatusDown, true},
		{0, 1, domain.StatusUp, true},
		{2, 3, domain.StatusDown, true},
		{0, 0, "", false},
	}
	for _, c := range cases {
		got, ok := Classify(c.down, c.up)
		require.Equal(t, c.want, got, "down=%d up=%d", c.down, c.up)
		require.Equal(t, c.ok, ok, "down=%d up=%d", c.down, c.up)
	}
}

// ---- reconcile ----

func TestReconcile_SingleMonitorVerdicts(t *testing.T) {
	cases := []struct {
		name     string
		down, up int
		want     domain.Status
	}{
		{"down", 1, 0, domain.StatusDown},
		{"up", 0, 1, domain.StatusUp},
		{"zero counts is pending", 0, 0, domain.StatusPending},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			be := &fakeBackend{hits: map[domain.MonitorID][]Hit{
				"m1": {hit("m1", "c1", "eu", c.down, c.up)},
			}}
			rep, err := Reconcile(context.Background(), be, singleMonitorRequest("eu"))
			require.NoError(t, err)

			switch c.want {
			case domain.StatusDown:
				require.Equal(t, 1, rep.Down)
				require.Equal(t, domain.StatusDown, rep.DownConfigs["c1-eu"].Status)
				require.Equal(t, t0, rep.DownConfigs["c1-eu"].Timestamp)
			case domain.StatusUp:
				require.Equal(t, 1, rep.Up)
				require.Equal(t, domain.MonitorID("m1"), rep.UpConfigs["c1-eu"].MonitorQueryID)
			case domain.StatusPending:
				require.Equal(t, 1, rep.Pending)
				require.Equal(t, domain.StatusPending, rep.PendingConfigs["c1-eu"].Status)
			}
			require.Equal(t, 1, rep.Up+rep.Down+rep.Pending)
		})
	}
}

func TestReconcile_NoDataIsAllPending(t *testing.T) {
	req := Request{
		Locations:  []string{"eu", "us"},
		MonitorIDs: []domain.MonitorID{"m1", "m2"},
		Expected: map[domain.MonitorID][]string{
			"m1": {"eu", "us"},
			"m2": {"us"},
		},
		ConfigIDs: map[domain.MonitorID]domain.ConfigID{"m1": "c1", "m2": "c2"},
	}
	rep, err := Reconcile(context.Background(), &fakeBackend{}, req)
	require.NoError(t, err)
	require.Equal(t, 3, rep.Pending)
	require.Empty(t, rep.UpConfigs)
	require.Empty(t, rep.DownConfigs)
	require.Contains(t, rep.PendingConfigs, "c1-eu")
	require.Contains(t, rep.PendingConfigs, "c1-us")
	require.Contains(t, rep.PendingConfigs, "c2-us")
}

func TestReconcile_EveryExpectedPairReportedOnceAcrossPages(t *testing.T) {
	locs := []string{"eu", "us", "ap"}
	req := Request{
		Locations: locs,
		Expected:  map[domain.MonitorID][]string{},
		ConfigIDs: map[domain.MonitorID]domain.ConfigID{},
	}
	be := &fakeBackend{hits: map[domain.MonitorID][]Hit{}}
	for i := 0; i < 40; i++ {
		id := domain.MonitorID(fmt.Sprintf("m%02d", i))
		cfg := domain.ConfigID(fmt.Sprintf("c%02d", i))
		req.MonitorIDs = append(req.MonitorIDs, id)
		req.Expected[id] = locs
		req.ConfigIDs[id] = cfg
		switch i % 4 {
		case 0:
			be.hits[id] = []Hit{hit(id, cfg, "eu", 0, 1), hit(id, cfg, "us", 1, 0)}
		case 1:
			be.hits[id] = []Hit{hit(id, cfg, "ap", 0, 0)}
		case 2:
			be.hits[id] = []Hit{hit(id, cfg, "eu", 0, 1), hit(id, cfg, "us", 0, 1), hit(id, cfg, "ap", 1, 1)}
		}
	}

	// ceiling 10 with 3 locations -> 3 ids per page -> 14 pages
	r := NewReconciler(zap.NewNop(), be, 10, 3, time.Second)
	rep, err := r.Reconcile(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, be.queries, 14)
	for _, q := range be.queries {
		require.Equal(t, 3, q.Size)
		require.Equal(t, locs, q.Locations)
	}

	for id, cfg := range req.ConfigIDs {
		for _, loc := range req.Expected[id] {
			key := domain.StatusKey(cfg, loc)
			n := 0
			if _, ok := rep.UpConfigs[key]; ok {
				n++
			}
			if _, ok := rep.DownConfigs[key]; ok {
				n++
			}
			if _, ok := rep.PendingConfigs[key]; ok {
				n++
			}
			require.Equal(t, 1, n, "key %s present in %d maps", key, n)
		}
	}
	require.Equal(t, len(rep.UpConfigs), rep.Up)
	require.Equal(t, len(rep.DownConfigs), rep.Down)
	require.Equal(t, len(rep.PendingConfigs), rep.Pending)
	require.Equal(t, 120, rep.Up+rep.Down+rep.Pending)
	require.Equal(t, 10+20, rep.Up)
	require.Equal(t, 10+10, rep.Down)
}

func TestReconcile_DiscardsUnexpectedAndDisallowedLocations(t *testing.T) {
	be := &fakeBackend{hits: map[domain.MonitorID][]Hit{
		"m1": {
			hit("m1", "c1", "eu", 0, 1),
			hit("m1", "c1", "us", 1, 0), // allowed, not expected for m1
			hit("m1", "c1", "ap", 1, 0), // expected, not allowed
			hit("m1", "c1", "xx", 1, 0), // neither
		},
	}}
	req := Request{
		Locations:  []string{"eu", "us"},
		MonitorIDs: []domain.MonitorID{"m1"},
		Expected:   map[domain.MonitorID][]string{"m1": {"eu", "ap"}},
		ConfigIDs:  map[domain.MonitorID]domain.ConfigID{"m1": "c1"},
	}
	rep, err := Reconcile(context.Background(), be, req)
	require.NoError(t, err)

	want := map[string]bool{"c1-eu": true}
	for _, m := range []map[string]domain.StatusMeta{rep.UpConfigs, rep.DownConfigs} {
		for k := range m {
			require.True(t, want[k], "unexpected key %s", k)
		}
	}
	require.Empty(t, rep.PendingConfigs)
	require.Equal(t, 1, rep.Up)
	require.Equal(t, 0, rep.Down)
}

func TestReconcile_EmptyAllowListMeansNoFilter(t *testing.T) {
	be := &fakeBackend{hits: map[domain.MonitorID][]Hit{
		"m1": {hit("m1", "c1", "eu", 1, 0)},
	}}
	req := Request{
		MonitorIDs: []domain.MonitorID{"m1"},
		Expected:   map[domain.MonitorID][]string{"m1": {"eu", "us"}},
		ConfigIDs:  map[domain.MonitorID]domain.ConfigID{"m1": "c1"},
	}
	rep, err := Reconcile(context.Background(), be, req)
	require.NoError(t, err)
	require.Contains(t, rep.DownConfigs, "c1-eu")
	require.Contains(t, rep.PendingConfigs, "c1-us")
	require.Nil(t, be.queries[0].Locations)
	require.Equal(t, DefaultMaxBucketSize, be.queries[0].Size)
}

func TestReconcile_MappingGapUsesMonitorID(t *testing.T) {
	be := &fakeBackend{hits: map[domain.MonitorID][]Hit{
		"m2": {hit("m2", "", "eu", 0, 1)},
	}}
	req := Request{
		Locations:  []string{"eu"},
		MonitorIDs: []domain.MonitorID{"m1", "m2"},
		Expected:   map[domain.MonitorID][]string{"m1": {"eu"}, "m2": {"eu"}},
		ConfigIDs:  map[domain.MonitorID]domain.ConfigID{},
	}
	rep, err := Reconcile(context.Background(), be, req)
	require.NoError(t, err)
	require.Equal(t, domain.ConfigID("m1"), rep.PendingConfigs["m1-eu"].ConfigID)
	require.Equal(t, domain.ConfigID("m2"), rep.UpConfigs["m2-eu"].ConfigID)
}

func TestReconcile_SharedConfigIDDownWins(t *testing.T) {
	be := &fakeBackend{hits: map[domain.MonitorID][]Hit{
		"old": {hit("old", "c1", "eu", 0, 1)},
		"new": {hit("new", "c1", "eu", 1, 0)},
	}}
	req := Request{
		Locations:  []string{"eu", "us"},
		MonitorIDs: []domain.MonitorID{"old", "new"},
		Expected:   map[domain.MonitorID][]string{"old": {"eu", "us"}, "new": {"eu"}},
		ConfigIDs:  map[domain.MonitorID]domain.ConfigID{"old": "c1", "new": "c1"},
	}
	rep, err := Reconcile(context.Background(), be, req)
	require.NoError(t, err)
	require.Empty(t, rep.UpConfigs)
	require.Equal(t, domain.MonitorID("new"), rep.DownConfigs["c1-eu"].MonitorQueryID)
	require.Contains(t, rep.PendingConfigs, "c1-us")
	require.Equal(t, 2, rep.Down+rep.Pending)
}

func TestReconcile_IsDeterministic(t *testing.T) {
	be := &fakeBackend{hits: map[domain.MonitorID][]Hit{}}
	req := Request{
		Locations: []string{"eu", "us"},
		Expected:  map[domain.MonitorID][]string{},
		ConfigIDs: map[domain.MonitorID]domain.ConfigID{},
	}
	for i := 0; i < 25; i++ {
		id := domain.MonitorID(fmt.Sprintf("m%d", i))
		req.MonitorIDs = append(req.MonitorIDs, id)
		req.Expected[id] = []string{"eu", "us"}
		req.ConfigIDs[id] = domain.ConfigID(fmt.Sprintf("c%d", i))
		if i%3 != 0 {
			be.hits[id] = []Hit{hit(id, req.ConfigIDs[id], "eu", i%2, 1)}
		}
	}
	r := NewReconciler(zap.NewNop(), be, 4, 8, time.Second)

	first, err := r.Reconcile(context.Background(), req)
	require.NoError(t, err)
	second, err := r.Reconcile(context.Background(), req)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, string(a), string(b))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("reports differ (-first +second):\n%s", diff)
	}
}

func TestReconcile_BackendErrorAbortsWithoutReport(t *testing.T) {
	be := &fakeBackend{
		hits:   map[domain.MonitorID][]Hit{"m1": {hit("m1", "c1", "eu", 0, 1)}},
		failOn: "m3",
	}
	req := Request{
		Locations:  []string{"eu"},
		MonitorIDs: []domain.MonitorID{"m1", "m2", "m3", "m4"},
		Expected:   map[domain.MonitorID][]string{"m1": {"eu"}, "m2": {"eu"}, "m3": {"eu"}, "m4": {"eu"}},
	}
	obs := &recordingObserver{}
	r := NewReconciler(zap.NewNop(), be, 1, 2, time.Second)
	r.Observer = obs

	rep, err := r.Reconcile(context.Background(), req)
	require.Nil(t, rep)
	var be2 *BackendError
	require.True(t, errors.As(err, &be2), "want *BackendError, got %T", err)
	require.Equal(t, 2, be2.Page)
	require.Equal(t, 1, obs.calls)
	require.Equal(t, 4, obs.pages)
	require.Error(t, obs.err)
}

func TestReconcile_TimeoutIsBackendError(t *testing.T) {
	r := NewReconciler(zap.NewNop(), blockingBackend{}, 0, 1, 20*time.Millisecond)
	rep, err := r.Reconcile(context.Background(), singleMonitorRequest("eu"))
	require.Nil(t, rep)
	var be *BackendError
	require.ErrorAs(t, err, &be)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReconcile_EchoesQueriedIDs(t *testing.T) {
	req := singleMonitorRequest("eu")
	rep, err := Reconcile(context.Background(), &fakeBackend{}, req)
	require.NoError(t, err)
	require.Equal(t, []domain.MonitorID{"m1"}, rep.EnabledMonitorQueryIDs)
}

func TestRequestFromMonitors_SkipsDisabled(t *testing.T) {
	ms := []domain.Monitor{
		{ConfigID: "c1", QueryID: "m1", Locations: []string{"eu"}, Enabled: true},
		{ConfigID: "c2", QueryID: "m2", Locations: []string{"us"}, Enabled: false},
	}
	req := RequestFromMonitors(ms, []string{"eu"}, domain.TimeRange{})
	require.Equal(t, []domain.MonitorID{"m1"}, req.MonitorIDs)
	require.Equal(t, map[domain.MonitorID][]string{"m1": {"eu"}}, req.Expected)
	require.Equal(t, map[domain.MonitorID]domain.ConfigID{"m1": "c1"}, req.ConfigIDs)
}

// ---- tracker ----

func TestTracker_ResolveDropsEmptyMonitors(t *testing.T) {
	expected := map[domain.MonitorID][]string{"m1": {"eu", "us", "eu"}, "m2": {"ap"}}
	tr := newTracker(expected, newLocationFilter([]string{"eu", "us"}))
	require.Equal(t, 2, tr.size())
	require.NotContains(t, tr.remaining, domain.MonitorID("m2"))

	tr.resolve("m1", "eu")
	require.Equal(t, []string{"us"}, tr.remaining["m1"])
	tr.resolve("m1", "us")
	require.NotContains(t, tr.remaining, domain.MonitorID("m1"))
	require.Equal(t, 0, tr.size())

	// the caller's matrix is untouched
	require.Equal(t, []string{"eu", "us", "eu"}, expected["m1"])
}
