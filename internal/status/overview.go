package status

import "github.com/hamed0406/statusoverview/internal/domain"

// assembler collects verdicts into the three report maps.
type assembler struct {
	up      map[string]domain.StatusMeta
	down    map[string]domain.StatusMeta
	pending map[string]domain.PendingMeta
}

func newAssembler() *assembler {
	return &assembler{
		up:      make(map[string]domain.StatusMeta),
		down:    make(map[string]domain.StatusMeta),
		pending: make(map[string]domain.PendingMeta),
	}
}

// add records an up or down verdict. Keys collide only when several monitor
// ids share a ConfigID: down wins over up, and within one status the newer
// observation wins.
func (a *assembler) add(meta domain.StatusMeta) {
	key := domain.StatusKey(meta.ConfigID, meta.Location)
	switch meta.Status {
	case domain.StatusDown:
		if prev, ok := a.down[key]; ok && prev.Timestamp.After(meta.Timestamp) {
			return
		}
		delete(a.up, key)
		a.down[key] = meta
	case domain.StatusUp:
		if _, ok := a.down[key]; ok {
			return
		}
		if prev, ok := a.up[key]; ok && prev.Timestamp.After(meta.Timestamp) {
			return
		}
		a.up[key] = meta
	}
}

// addPending records a pending pair unless the key already has a verdict.
func (a *assembler) addPending(meta domain.PendingMeta) {
	key := domain.StatusKey(meta.ConfigID, meta.Location)
	if _, ok := a.up[key]; ok {
		return
	}
	if _, ok := a.down[key]; ok {
		return
	}
	a.pending[key] = meta
}

// report derives the counts from the map sizes.
func (a *assembler) report(queried []domain.MonitorID) *domain.OverviewReport {
	ids := make([]domain.MonitorID, len(queried))
	copy(ids, queried)
	return &domain.OverviewReport{
		Up:                     len(a.up),
		Down:                   len(a.down),
		Pending:                len(a.pending),
		UpConfigs:              a.up,
		DownConfigs:            a.down,
		PendingConfigs:         a.pending,
		EnabledMonitorQueryIDs: ids,
	}
}
