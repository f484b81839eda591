package feed

import (
	"encoding/json"

	"github.com/simp-lee/vaultfeed/internal/domain"
)

// State is the caller-owned view state.
type State struct {
	Filter domain.ActivityFilter `json:"filter"`
	SortBy domain.SortBy         `json:"sort_by"`
	Page   int                   `json:"page"`
}

// DefaultState is the state a new view starts in: no filter, latest first,
// first page.
func DefaultState() State {
	return State{
		Filter: domain.ActivityFilters[0],
		SortBy: domain.SortOrders[0],
		Page:   1,
	}
}

// Snapshot is one observation of the activity source. Activities is replaced
// wholesale on every refresh and must not be mutated after publication.
// Version identifies the Activities instance: equal non-zero versions mean
// the same list, and zero means no list has been loaded yet.
type Snapshot struct {
	Activities []domain.Activity
	Loading    bool
	Version    uint64
}

// Status is the coarse state of a rendered view. A view leaves
// StatusLoading once the first list arrives and never returns to it;
// later refreshes only show up in Output.Loading.
type Status int

const (
	StatusLoading Status = iota
	StatusEmpty
	StatusPopulated
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusEmpty:
		return "empty"
	case StatusPopulated:
		return "populated"
	default:
		return "unknown"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Output is what the presentation layer receives.
type Output struct {
	State
	Activities  []domain.Activity `json:"activities"`
	TotalPages  int               `json:"total_pages"`
	ResultCount int               `json:"result_count"`
	Loading     bool              `json:"loading"`
	Status      Status            `json:"status"`
}

// Derive runs the whole pipeline once. It returns the output together with
// the page-corrected state.
func Derive(snap Snapshot, state State) (Output, State) {
	ordered := Sort(Filter(snap.Activities, state.Filter), state.SortBy)
	state.Page, _ = CorrectPage(state.Page, len(ordered), PageSize)
	return render(ordered, state, snap), state
}

func render(ordered []domain.Activity, state State, snap Snapshot) Output {
	status := StatusPopulated
	switch {
	case snap.Loading && snap.Version == 0:
		status = StatusLoading
	case len(ordered) == 0:
		status = StatusEmpty
	}

	return Output{
		State:       state,
		Activities:  Paginate(ordered, state.Page, PageSize),
		TotalPages:  TotalPages(len(ordered), PageSize),
		ResultCount: len(ordered),
		Loading:     snap.Loading,
		Status:      status,
	}
}
