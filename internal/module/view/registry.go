// Package view keeps long-lived feed views addressable over HTTP. Each view
// owns its filter, sort order and page cursor and follows its vault's
// snapshots as the source publishes them.
package view

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/simp-lee/vaultfeed/internal/domain"
	"github.com/simp-lee/vaultfeed/internal/feed"
	"github.com/simp-lee/vaultfeed/internal/presentation"
	"github.com/simp-lee/vaultfeed/internal/source"
)

// Snapshots is the part of source.Source the registry needs.
type Snapshots interface {
	Refresh(ctx context.Context, vault string) error
	Snapshot(vault string) feed.Snapshot
	Loaded(vault string) bool
	Subscribe(fn source.Subscriber)
}

// Rendered is one view's current output.
type Rendered struct {
	ID          string
	Vault       string
	Output      feed.Output
	LoadingText string
}

// Patch changes some of a view's state. Nil fields are left alone.
type Patch struct {
	Filter *domain.ActivityFilter
	SortBy *domain.SortBy
	Page   *int
}

type entry struct {
	id      string
	vault   string
	loading *presentation.LoadingText

	mu      sync.Mutex
	view    *feed.View
	version uint64
	touched time.Time
}

func (e *entry) render() Rendered {
	return Rendered{
		ID:          e.id,
		Vault:       e.vault,
		Output:      e.view.Output(),
		LoadingText: e.loading.Text(),
	}
}

// Registry owns every open view.
type Registry struct {
	snapshots Snapshots
	hooks     feed.Hooks
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger

	mu    sync.RWMutex
	views map[string]*entry
}

// Option configures a Registry.
type Option func(*Registry)

// WithHooks instruments every view the registry creates.
func WithHooks(h feed.Hooks) Option {
	return func(r *Registry) { r.hooks = h }
}

// WithTTL drops views that have not been read or changed for ttl.
// Zero keeps views until deleted.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) { r.ttl = ttl }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates a Registry and subscribes it to snapshots.
func NewRegistry(snapshots Snapshots, opts ...Option) *Registry {
	r := &Registry{
		snapshots: snapshots,
		now:       time.Now,
		logger:    slog.Default(),
		views:     make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	snapshots.Subscribe(r.onSnapshot)
	return r
}

// Create opens a view of vault in state. A vault that was never loaded is
// loaded first; the view is only created once a list is available. A vault
// with no activity gets an empty view and starts following the vault once
// activity is recorded for it.
func (r *Registry) Create(ctx context.Context, vault string, state feed.State) (Rendered, error) {
	if !domain.ValidVault(vault) {
		return Rendered{}, domain.NewAppError(domain.CodeValidation, fmt.Sprintf("invalid vault %q", vault), nil)
	}
	if _, err := source.Load(ctx, r.snapshots, vault); err != nil {
		return Rendered{}, err
	}

	e := &entry{
		id:      uuid.NewString(),
		vault:   vault,
		loading: presentation.NewLoadingText(r.now),
		touched: r.now(),
	}
	e.view = feed.NewView(state, r.hooks)
	e.view.Subscribe(e.loading)

	// Hold the entry lock across registration so a snapshot published in
	// between is applied after the one read here.
	e.mu.Lock()
	defer e.mu.Unlock()

	r.mu.Lock()
	r.views[e.id] = e
	r.mu.Unlock()

	// An untracked vault has no activity yet: start empty, not loading.
	var snap feed.Snapshot
	if r.snapshots.Loaded(vault) {
		snap = r.snapshots.Snapshot(vault)
	}
	e.version = snap.Version
	e.view.Update(snap)

	r.logger.DebugContext(ctx, "view created",
		slog.String("view_id", e.id),
		slog.String("vault", vault),
	)
	return e.render(), nil
}

// Get returns the view's current output.
func (r *Registry) Get(id string) (Rendered, error) {
	e, err := r.lookup(id)
	if err != nil {
		return Rendered{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touched = r.now()
	return e.render(), nil
}

// Update applies p to the view's state in one step and returns the
// re-evaluated output.
func (r *Registry) Update(id string, p Patch) (Rendered, error) {
	e, err := r.lookup(id)
	if err != nil {
		return Rendered{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	state := e.view.State()
	if p.Filter != nil {
		state.Filter = *p.Filter
	}
	if p.SortBy != nil {
		state.SortBy = *p.SortBy
	}
	if p.Page != nil {
		state.Page = *p.Page
	}
	e.view.Apply(state)
	e.touched = r.now()
	return e.render(), nil
}

// Delete closes the view.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.views[id]; !ok {
		return domain.ErrViewNotFound
	}
	delete(r.views, id)
	return nil
}

// Len returns the number of open views.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views)
}

// Prune drops views idle for longer than the TTL and returns how many were
// dropped.
func (r *Registry) Prune() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.views {
		e.mu.Lock()
		idle := e.touched.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(r.views, id)
			n++
		}
	}
	return n
}

// RunJanitor prunes idle views every interval until ctx is cancelled. The
// returned channel is closed when it stops.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if r.ttl <= 0 || interval <= 0 {
			<-ctx.Done()
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.Prune(); n > 0 {
					r.logger.Debug("idle views pruned", slog.Int("count", n))
				}
			}
		}
	}()
	return done
}

func (r *Registry) lookup(id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.views[id]
	if !ok {
		return nil, domain.ErrViewNotFound
	}
	return e, nil
}

// onSnapshot pushes a published snapshot into every view of its vault.
// Snapshots older than the one a view already holds are dropped.
func (r *Registry) onSnapshot(vault string, snap feed.Snapshot) {
	r.mu.RLock()
	targets := make([]*entry, 0)
	for _, e := range r.views {
		if e.vault == vault {
			targets = append(targets, e)
		}
	}
	r.mu.RUnlock()

	for _, e := range targets {
		e.mu.Lock()
		if snap.Version >= e.version {
			e.version = snap.Version
			e.view.Update(snap)
		}
		e.mu.Unlock()
	}
}
