package status

import "github.com/hamed0406/statusoverview/internal/domain"

// DefaultMaxBucketSize is the backend's per-query bucket ceiling.
const DefaultMaxBucketSize = 10000

// PageSize returns how many monitor ids fit in one query so that
// ids*locations stays under the bucket ceiling. Zero locations means no
// location filter and counts as one.
func PageSize(ceiling, locationCount int) int {
	if locationCount < 1 {
		locationCount = 1
	}
	n := ceiling / locationCount
	if n < 1 {
		return 1
	}
	return n
}

// PlanPages splits ids into contiguous, non-overlapping pages of at most
// PageSize(ceiling, locationCount) ids each.
func PlanPages(ids []domain.MonitorID, locationCount, ceiling int) [][]domain.MonitorID {
	size := PageSize(ceiling, locationCount)
	count := (len(ids) + size - 1) / size
	pages := make([][]domain.MonitorID, 0, count)
	for i := 0; i < count; i++ {
		start := i * size
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		pages = append(pages, ids[start:end:end])
	}
	return pages
}
