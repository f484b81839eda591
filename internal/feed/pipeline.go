// Package feed derives the visible page of a vault activity feed from a raw
// activity snapshot and the caller's view state.
//
// The stages are pure functions composed in a fixed order:
//
//	raw → Filter → Sort → CorrectPage → Paginate
//
// View wraps them for a long-lived owner that mutates filter, sort and page
// over time and receives new snapshots as the activity source refreshes.
package feed

import (
	"slices"

	"github.com/simp-lee/vaultfeed/internal/domain"
)

// PageSize is the number of activities shown per page.
const PageSize = 6

// Filter returns the activities whose type matches the filter, preserving
// input order. FilterAll, and any filter not bound to a type, returns the
// input slice itself.
func Filter(activities []domain.Activity, filter domain.ActivityFilter) []domain.Activity {
	want, ok := filter.Type()
	if !ok {
		return activities
	}

	out := make([]domain.Activity, 0, len(activities))
	for _, a := range activities {
		if a.Type == want {
			out = append(out, a)
		}
	}
	return out
}

// Sort returns the activities ordered by date. Activities with equal dates
// keep their input order. Unknown orders return the input unchanged.
// The input slice is never reordered.
func Sort(activities []domain.Activity, sortBy domain.SortBy) []domain.Activity {
	var cmp func(a, b domain.Activity) int
	switch sortBy {
	case domain.SortLatestFirst:
		cmp = func(a, b domain.Activity) int { return b.Date.Compare(a.Date) }
	case domain.SortOldestFirst:
		cmp = func(a, b domain.Activity) int { return a.Date.Compare(b.Date) }
	default:
		return activities
	}

	out := slices.Clone(activities)
	slices.SortStableFunc(out, cmp)
	return out
}

// TotalPages returns ceil(count / pageSize), or 0 when there is nothing to
// show or pageSize is not positive.
func TotalPages(count, pageSize int) int {
	if count <= 0 || pageSize <= 0 {
		return 0
	}
	return (count + pageSize - 1) / pageSize
}

// CorrectPage clamps page into [1, max(1, TotalPages(count, pageSize))].
// changed is false when page was already in range, so callers can skip
// redundant writes.
func CorrectPage(page, count, pageSize int) (corrected int, changed bool) {
	maxPage := TotalPages(count, pageSize)
	switch {
	case page > maxPage:
		corrected = max(maxPage, 1)
	case page < 1:
		corrected = 1
	default:
		return page, false
	}
	return corrected, corrected != page
}

// Paginate returns the half-open window [(page-1)*pageSize, page*pageSize)
// clipped to the bounds of activities. Out-of-range pages yield an empty
// slice. The result shares the input's backing array but has its capacity
// clipped, so appending to it cannot overwrite the input.
func Paginate(activities []domain.Activity, page, pageSize int) []domain.Activity {
	// Pages outside [1, TotalPages] have windows entirely before or after the
	// input; rejecting them up front also keeps page*pageSize from overflowing.
	if page < 1 || page > TotalPages(len(activities), pageSize) {
		return []domain.Activity{}
	}

	start := (page - 1) * pageSize
	end := min(start+pageSize, len(activities))
	return activities[start:end:end]
}
