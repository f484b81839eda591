// Package source keeps the latest activity snapshot of every vault and
// publishes a new one whenever a refresh replaces the list.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/simp-lee/vaultfeed/internal/domain"
	"github.com/simp-lee/vaultfeed/internal/feed"
)

// Fetcher loads the full activity list of a vault.
type Fetcher interface {
	ListByVault(ctx context.Context, vault string) ([]domain.Activity, error)
}

// Recorder is notified after every refresh.
type Recorder interface {
	Refreshed(vault string, size int, err error)
}

// Loader is the read side of a Source used by Load.
type Loader interface {
	Refresh(ctx context.Context, vault string) error
	Snapshot(vault string) feed.Snapshot
	Loaded(vault string) bool
}

// Load returns the vault's snapshot, loading it on first use. A load that
// succeeds without tracking the vault means it has no activity, which
// yields an empty snapshot that is not loading. A first load that fails
// reports domain.ErrFeedUnavailable.
func Load(ctx context.Context, l Loader, vault string) (feed.Snapshot, error) {
	if l.Loaded(vault) {
		return l.Snapshot(vault), nil
	}
	if err := l.Refresh(ctx, vault); err != nil && !l.Loaded(vault) {
		return feed.Snapshot{}, domain.NewAppError(domain.CodeUnavailable, domain.ErrFeedUnavailable.Message, err)
	}
	if !l.Loaded(vault) {
		return feed.Snapshot{}, nil
	}
	return l.Snapshot(vault), nil
}

// Subscriber receives every snapshot published for a vault. It is called
// without any Source lock held.
type Subscriber func(vault string, snap feed.Snapshot)

// Status describes a vault's snapshot for diagnostics.
type Status struct {
	Vault     string    `json:"vault"`
	Size      int       `json:"size"`
	Loading   bool      `json:"loading"`
	Version   uint64    `json:"version"`
	FetchedAt time.Time `json:"fetched_at"`
	LastError string    `json:"last_error,omitempty"`
}

type entry struct {
	snap      feed.Snapshot
	fetchedAt time.Time
	err       error
}

// DefaultFetchTimeout bounds a shared fetch when no WithFetchTimeout is set.
const DefaultFetchTimeout = 30 * time.Second

// Source owns the per-vault snapshots. Only vaults whose fetch returned at
// least one activity are tracked; an empty vault is never stored, so the
// set of tracked vaults is bounded by the stored data.
type Source struct {
	fetcher      Fetcher
	logger       *slog.Logger
	recorder     Recorder
	now          func() time.Time
	fetchTimeout time.Duration

	group singleflight.Group

	mu          sync.Mutex
	entries     map[string]*entry
	version     uint64
	subscribers []Subscriber
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the refresh recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Source) { s.recorder = r }
}

// WithFetchTimeout bounds each shared fetch. The fetch runs detached from
// the callers' cancellation, so this is its only deadline. Zero or negative
// leaves the fetch unbounded.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Source) { s.fetchTimeout = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Source) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Source backed by fetcher.
func New(fetcher Fetcher, opts ...Option) *Source {
	s := &Source{
		fetcher:      fetcher,
		logger:       slog.Default(),
		now:          time.Now,
		fetchTimeout: DefaultFetchTimeout,
		entries:      make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn for all future snapshots.
func (s *Source) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Snapshot returns the latest snapshot of vault. A vault that was never
// refreshed reports an empty, loading snapshot.
func (s *Source) Snapshot(vault string) feed.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[vault]; ok {
		return e.snap
	}
	return feed.Snapshot{Loading: true}
}

// Loaded reports whether vault has a snapshot from a successful refresh.
func (s *Source) Loaded(vault string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[vault]
	return ok && e.snap.Version != 0
}

// Vaults returns every vault the source tracks.
func (s *Source) Vaults() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for v := range s.entries {
		out = append(out, v)
	}
	return out
}

// Statuses returns diagnostics for every tracked vault, ordered by vault.
func (s *Source) Statuses() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Status, 0, len(s.entries))
	for v, e := range s.entries {
		st := Status{
			Vault:     v,
			Size:      len(e.snap.Activities),
			Loading:   e.snap.Loading,
			Version:   e.snap.Version,
			FetchedAt: e.fetchedAt,
		}
		if e.err != nil {
			st.LastError = e.err.Error()
		}
		out = append(out, st)
	}
	slices.SortFunc(out, func(a, b Status) int { return strings.Compare(a.Vault, b.Vault) })
	return out
}

// Refresh fetches the vault's activities and publishes the result.
// Subscribers first see the previous list with Loading set, then the new
// list. On failure the previous list is kept and the error returned.
//
// A vault that is not tracked yet starts being tracked only once a fetch
// returns activities. An empty or failed first fetch stores and publishes
// nothing, and Loaded stays false.
//
// Concurrent refreshes of one vault share a single fetch. The fetch keeps
// the first caller's context values but not its cancellation, and each
// caller stops waiting when its own ctx is done.
func (s *Source) Refresh(ctx context.Context, vault string) error {
	ch := s.group.DoChan(vault, func() (any, error) {
		fetchCtx, cancel := s.fetchContext(ctx)
		defer cancel()
		return nil, s.refresh(fetchCtx, vault)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Source) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if s.fetchTimeout > 0 {
		return context.WithTimeout(detached, s.fetchTimeout)
	}
	return context.WithCancel(detached)
}

func (s *Source) refresh(ctx context.Context, vault string) error {
	if snap, ok := s.markLoading(vault); ok {
		s.publish(vault, snap)
	}

	activities, err := s.fetcher.ListByVault(ctx, vault)
	if err != nil {
		err = fmt.Errorf("refresh vault %s: %w", vault, err)
		s.logger.WarnContext(ctx, "activity refresh failed",
			slog.String("vault", vault),
			slog.Any("error", err),
		)
	}

	snap, tracked := s.commit(vault, activities, err)
	if !tracked {
		if err == nil {
			s.logger.DebugContext(ctx, "vault has no activity; snapshot not kept",
				slog.String("vault", vault),
			)
		}
		return err
	}

	if s.recorder != nil {
		s.recorder.Refreshed(vault, len(activities), err)
	}
	if err == nil {
		s.logger.DebugContext(ctx, "activity snapshot replaced",
			slog.String("vault", vault),
			slog.Int("activities", len(activities)),
			slog.Uint64("version", snap.Version),
		)
	}

	s.publish(vault, snap)
	return err
}

// markLoading flags a tracked vault's snapshot as loading.
func (s *Source) markLoading(vault string) (feed.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[vault]
	if !ok {
		return feed.Snapshot{}, false
	}
	e.snap.Loading = true
	return e.snap, true
}

// commit applies a fetch result. It reports false, storing nothing, when
// the vault is untracked and the fetch failed or came back empty.
func (s *Source) commit(vault string, activities []domain.Activity, err error) (feed.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[vault]
	if !ok {
		if err != nil || len(activities) == 0 {
			return feed.Snapshot{}, false
		}
		e = &entry{}
		s.entries[vault] = e
	}

	e.snap.Loading = false
	e.err = err
	if err == nil {
		s.version++
		e.snap = feed.Snapshot{Activities: activities, Version: s.version}
		e.fetchedAt = s.now()
	}
	return e.snap, true
}

func (s *Source) publish(vault string, snap feed.Snapshot) {
	s.mu.Lock()
	subs := append([]Subscriber(nil), s.subscribers...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(vault, snap)
	}
}
