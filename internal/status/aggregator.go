package status

import (
	"sort"

	"github.com/hamed0406/statusoverview/internal/domain"
)

type pairKey struct {
	id  domain.MonitorID
	loc string
}

// aggregator merges page results into one observation per (monitor, location).
type aggregator struct {
	expected  map[domain.MonitorID][]string
	allow     locationFilter
	observed  map[pairKey]domain.Ping
	discarded int
}

func newAggregator(expected map[domain.MonitorID][]string, allow locationFilter) *aggregator {
	return &aggregator{
		expected: expected,
		allow:    allow,
		observed: make(map[pairKey]domain.Ping),
	}
}

// merge keeps hits whose location is both allowed and expected for the
// monitor. Pages target disjoint monitor slices, so keys never collide; if
// they do, the last write wins.
func (a *aggregator) merge(hits []Hit) {
	for _, h := range hits {
		if !a.allow.allows(h.Location) || !containsLocation(a.expected[h.MonitorID], h.Location) {
			a.discarded++
			continue
		}
		a.observed[pairKey{id: h.MonitorID, loc: h.Location}] = h.Ping
	}
}

// resolve classifies every observed pair in key order, hands verdicts to the
// assembler and removes resolved pairs from the tracker. Zero-count
// observations stay in the tracker and surface as pending. It returns the
// number of such observations.
func (a *aggregator) resolve(t *tracker, asm *assembler, configIDs map[domain.MonitorID]domain.ConfigID) int {
	keys := make([]pairKey, 0, len(a.observed))
	for k := range a.observed {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].id != keys[j].id {
			return keys[i].id < keys[j].id
		}
		return keys[i].loc < keys[j].loc
	})

	unclassified := 0
	for _, k := range keys {
		ping := a.observed[k]
		verdict, ok := Classify(ping.Counts())
		if !ok {
			unclassified++
			continue
		}
		asm.add(domain.StatusMeta{
			Status:         verdict,
			ConfigID:       configIDFor(ping, k.id, configIDs),
			MonitorQueryID: k.id,
			Location:       k.loc,
			Timestamp:      ping.Timestamp,
			Ping:           ping,
		})
		t.resolve(k.id, k.loc)
	}
	return unclassified
}

// configIDFor prefers the id recorded on the ping, then the caller's mapping,
// then the raw monitor id.
func configIDFor(p domain.Ping, id domain.MonitorID, configIDs map[domain.MonitorID]domain.ConfigID) domain.ConfigID {
	if p.ConfigID != "" {
		return p.ConfigID
	}
	if cfg, ok := configIDs[id]; ok {
		return cfg
	}
	return domain.ConfigID(id)
}

func containsLocation(locs []string, loc string) bool {
	for _, l := range locs {
		if l == loc {
			return true
		}
	}
	return false
}
