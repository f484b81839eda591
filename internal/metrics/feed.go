package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/simp-lee/vaultfeed/internal/feed"
)

const namespace = "vaultfeed"

// Feed holds the activity feed metrics.
type Feed struct {
	recomputations  Counter
	pageCorrections Counter
	refreshes       CounterVec
	snapshotSize    GaugeVec
}

// NewFeed registers the feed metrics on r.
func NewFeed(r *Registry) (*Feed, error) {
	recomputations, err := r.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_recomputations_total",
		Help:      "Number of times a view re-ran filter and sort.",
	})
	if err != nil {
		return nil, err
	}

	pageCorrections, err := r.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "page_corrections_total",
		Help:      "Number of times a view page cursor was clamped into range.",
	})
	if err != nil {
		return nil, err
	}

	refreshes, err := r.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_refreshes_total",
		Help:      "Activity source refreshes by outcome.",
	}, []string{"vault", "outcome"})
	if err != nil {
		return nil, err
	}

	snapshotSize, err := r.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "snapshot_activities",
		Help:      "Number of activities in the latest snapshot of a vault.",
	}, []string{"vault"})
	if err != nil {
		return nil, err
	}

	return &Feed{
		recomputations:  recomputations,
		pageCorrections: pageCorrections,
		refreshes:       refreshes,
		snapshotSize:    snapshotSize,
	}, nil
}

// Hooks returns view hooks that record into f. A nil f yields no-op hooks.
func (f *Feed) Hooks() feed.Hooks {
	if f == nil {
		return feed.Hooks{}
	}
	return feed.Hooks{
		Recomputed:    f.recomputations.Inc,
		PageCorrected: func(int, int) { f.pageCorrections.Inc() },
	}
}

// Refreshed records the outcome of one source refresh.
func (f *Feed) Refreshed(vault string, size int, err error) {
	if f == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	} else {
		f.snapshotSize.With(prometheus.Labels{"vault": vault}).Set(float64(size))
	}
	f.refreshes.With(prometheus.Labels{"vault": vault, "outcome": outcome}).Inc()
}
