package source

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule is returned when the refresh schedule cannot be parsed.
var ErrInvalidSchedule = errors.New("invalid refresh schedule")

// VaultLister reports the vaults that have stored activity.
type VaultLister interface {
	Vaults(ctx context.Context) ([]string, error)
}

// Refresher refreshes every known vault on a cron schedule.
//
//	r, err := source.NewRefresher("@every 1m", src, repo, nil, 10*time.Second, logger)
//	r.Start(ctx) // returns immediately
//	<-r.Done()   // closed after ctx is cancelled
type Refresher struct {
	schedule cron.Schedule
	source   *Source
	lister   VaultLister
	static   []string
	timeout  time.Duration
	logger   *slog.Logger
	done     chan struct{}
}

// NewRefresher parses spec (five cron fields or a descriptor such as
// "@every 30s") and returns a Refresher. static lists vaults that are
// refreshed even before they have any stored activity. A non-positive
// timeout means refreshes only end with ctx.
func NewRefresher(spec string, src *Source, lister VaultLister, static []string, timeout time.Duration, logger *slog.Logger) (*Refresher, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidSchedule, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Refresher{
		schedule: schedule,
		source:   src,
		lister:   lister,
		static:   static,
		timeout:  timeout,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Start refreshes all vaults once, then keeps refreshing on schedule in a
// background goroutine until ctx is cancelled. It must be called once.
func (r *Refresher) Start(ctx context.Context) {
	go r.loop(ctx)
}

// Done is closed when the background goroutine has exited.
func (r *Refresher) Done() <-chan struct{} {
	return r.done
}

// NextRun returns the next scheduled refresh time from now.
func (r *Refresher) NextRun() time.Time {
	return r.schedule.Next(time.Now())
}

func (r *Refresher) loop(ctx context.Context) {
	defer close(r.done)

	r.run(ctx)
	for {
		nextRun := r.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(nextRun))

		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("activity refresher shutting down")
			return
		case <-timer.C:
			r.run(ctx)
		}
	}
}

func (r *Refresher) run(ctx context.Context) {
	if err := r.RefreshAll(ctx); err != nil {
		r.logger.Warn("scheduled activity refresh completed with errors", slog.Any("error", err))
	}
}

// RefreshAll refreshes the union of static, stored and tracked vaults.
// It keeps going past failures and returns them joined.
func (r *Refresher) RefreshAll(ctx context.Context) error {
	vaults, err := r.vaults(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, vault := range vaults {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if err := r.refreshOne(ctx, vault); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Refresher) refreshOne(ctx context.Context, vault string) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.source.Refresh(ctx, vault)
}

func (r *Refresher) vaults(ctx context.Context) ([]string, error) {
	vaults := slices.Clone(r.static)
	vaults = append(vaults, r.source.Vaults()...)
	if r.lister != nil {
		stored, err := r.lister.Vaults(ctx)
		if err != nil {
			return nil, err
		}
		vaults = append(vaults, stored...)
	}
	slices.Sort(vaults)
	return slices.Compact(vaults), nil
}
