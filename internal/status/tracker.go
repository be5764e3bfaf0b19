package status

import (
	"sort"

	"github.com/hamed0406/statusoverview/internal/domain"
)

// locationFilter is the caller's allow-list. A nil filter allows everything.
type locationFilter map[string]struct{}

func newLocationFilter(locations []string) locationFilter {
	if len(locations) == 0 {
		return nil
	}
	f := make(locationFilter, len(locations))
	for _, l := range locations {
		f[l] = struct{}{}
	}
	return f
}

func (f locationFilter) allows(loc string) bool {
	if f == nil {
		return true
	}
	_, ok := f[loc]
	return ok
}

// tracker holds the (monitor, location) pairs not yet resolved to up or down.
// It is owned by a single reconciliation and never shared between goroutines.
type tracker struct {
	remaining map[domain.MonitorID][]string
}

// newTracker deep-copies expected, keeping only allowed locations.
func newTracker(expected map[domain.MonitorID][]string, allow locationFilter) *tracker {
	t := &tracker{remaining: make(map[domain.MonitorID][]string, len(expected))}
	for id, locs := range expected {
		kept := make([]string, 0, len(locs))
		seen := make(map[string]struct{}, len(locs))
		for _, loc := range locs {
			if _, dup := seen[loc]; dup || !allow.allows(loc) {
				continue
			}
			seen[loc] = struct{}{}
			kept = append(kept, loc)
		}
		if len(kept) > 0 {
			t.remaining[id] = kept
		}
	}
	return t
}

// resolve drops loc from id's remaining list, and id itself once empty.
func (t *tracker) resolve(id domain.MonitorID, loc string) {
	locs, ok := t.remaining[id]
	if !ok {
		return
	}
	for i, l := range locs {
		if l == loc {
			locs = append(locs[:i:i], locs[i+1:]...)
			break
		}
	}
	if len(locs) == 0 {
		delete(t.remaining, id)
		return
	}
	t.remaining[id] = locs
}

func (t *tracker) size() int {
	n := 0
	for _, locs := range t.remaining {
		n += len(locs)
	}
	return n
}

// pending emits one PendingMeta per unresolved pair. MonitorIDs without a
// ConfigID mapping are keyed by their raw id and reported through gap.
func (t *tracker) pending(configIDs map[domain.MonitorID]domain.ConfigID, gap func(domain.MonitorID)) []domain.PendingMeta {
	ids := make([]domain.MonitorID, 0, len(t.remaining))
	for id := range t.remaining {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]domain.PendingMeta, 0, t.size())
	for _, id := range ids {
		cfg, ok := configIDs[id]
		if !ok {
			cfg = domain.ConfigID(id)
			if gap != nil {
				gap(id)
			}
		}
		for _, loc := range t.remaining[id] {
			out = append(out, domain.PendingMeta{
				Status:         domain.StatusPending,
				ConfigID:       cfg,
				MonitorQueryID: id,
				Location:       loc,
			})
		}
	}
	return out
}
