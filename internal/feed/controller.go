package feed

import "github.com/simp-lee/vaultfeed/internal/domain"

// Observer receives every output a View produces.
type Observer interface {
	Observe(Output)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Output)

func (f ObserverFunc) Observe(out Output) { f(out) }

// Hooks are optional callbacks for instrumentation.
type Hooks struct {
	// Recomputed fires when Filter and Sort were rerun.
	Recomputed func()
	// PageCorrected fires when the page was clamped into range.
	PageCorrected func(from, to int)
}

// derivation identifies the inputs of the filtered and sorted list.
type derivation struct {
	version uint64
	filter  domain.ActivityFilter
	sortBy  domain.SortBy
}

// View owns one feed's state and its latest snapshot. It re-evaluates the
// pipeline synchronously on every change. A View is not safe for concurrent
// use; callers sharing one must serialize access.
type View struct {
	state     State
	snap      Snapshot
	ordered   []domain.Activity
	derived   derivation
	fresh     bool
	last      Output
	hooks     Hooks
	observers []Observer
}

// NewView creates a view in the given state with an empty, loading snapshot.
func NewView(state State, hooks Hooks) *View {
	v := &View{
		state: state,
		snap:  Snapshot{Loading: true},
		hooks: hooks,
	}
	v.evaluate()
	return v
}

// Subscribe registers o and immediately delivers the current output to it.
func (v *View) Subscribe(o Observer) {
	v.observers = append(v.observers, o)
	o.Observe(v.last)
}

// State returns the current, already corrected, view state.
func (v *View) State() State { return v.state }

// Output returns the most recent output.
func (v *View) Output() Output { return v.last }

// SetFilter changes the filter and re-evaluates.
func (v *View) SetFilter(f domain.ActivityFilter) Output {
	v.state.Filter = f
	return v.evaluate()
}

// SetSortBy changes the sort order and re-evaluates.
func (v *View) SetSortBy(s domain.SortBy) Output {
	v.state.SortBy = s
	return v.evaluate()
}

// SetPage moves the page cursor and re-evaluates. Out-of-range pages are
// corrected before rendering.
func (v *View) SetPage(page int) Output {
	v.state.Page = page
	return v.evaluate()
}

// Apply replaces the view state in one step, as if filter, sort and page
// had been set together.
func (v *View) Apply(state State) Output {
	v.state = state
	return v.evaluate()
}

// Update installs a new source snapshot and re-evaluates.
func (v *View) Update(snap Snapshot) Output {
	v.snap = snap
	return v.evaluate()
}

func (v *View) evaluate() Output {
	key := derivation{version: v.snap.Version, filter: v.state.Filter, sortBy: v.state.SortBy}
	if !v.fresh || key.version == 0 || key != v.derived {
		v.ordered = Sort(Filter(v.snap.Activities, v.state.Filter), v.state.SortBy)
		v.derived = key
		v.fresh = true
		if v.hooks.Recomputed != nil {
			v.hooks.Recomputed()
		}
	}

	// Correction reads count and page from the list settled above.
	if page, changed := CorrectPage(v.state.Page, len(v.ordered), PageSize); changed {
		if v.hooks.PageCorrected != nil {
			v.hooks.PageCorrected(v.state.Page, page)
		}
		v.state.Page = page
	}

	v.last = render(v.ordered, v.state, v.snap)
	for _, o := range v.observers {
		o.Observe(v.last)
	}
	return v.last
}
