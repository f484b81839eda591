// Package metrics exposes feed and source instrumentation through a
// Prometheus scrape registry.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Gauge is a metric that represents a single numerical value that can go up and down.
type Gauge interface {
	Set(float64)
}

// Counter is a metric that represents a single monotonically increasing counter.
type Counter interface {
	Inc()
	Add(float64)
}

// Observer is a metric that samples observations into buckets.
type Observer interface {
	Observe(float64)
}

// GaugeVec is a Gauge with labels.
type GaugeVec interface {
	With(prometheus.Labels) Gauge
}

// CounterVec is a Counter with labels.
type CounterVec interface {
	With(prometheus.Labels) Counter
}

// Registry creates and registers metrics.
type Registry struct {
	prom *prometheus.Registry
}

// NewRegistry creates a Registry with the standard Go and process collectors.
func NewRegistry() (*Registry, error) {
	reg := prometheus.NewRegistry()

	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("registering go collector: %w", err)
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("registering process collector: %w", err)
	}

	return &Registry{prom: reg}, nil
}

// Handler returns an http.Handler for the metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// NewGaugeVec creates and registers a new GaugeVec.
func (r *Registry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error) {
	g := prometheus.NewGaugeVec(opts, labels)
	if err := r.prom.Register(g); err != nil {
		return nil, fmt.Errorf("registering gauge vec %q: %w", opts.Name, err)
	}
	return &gaugeVec{vec: g}, nil
}

// NewCounter creates and registers a new Counter.
func (r *Registry) NewCounter(opts prometheus.CounterOpts) (Counter, error) {
	c := prometheus.NewCounter(opts)
	if err := r.prom.Register(c); err != nil {
		return nil, fmt.Errorf("registering counter %q: %w", opts.Name, err)
	}
	return c, nil
}

// NewCounterVec creates and registers a new CounterVec.
func (r *Registry) NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error) {
	c := prometheus.NewCounterVec(opts, labels)
	if err := r.prom.Register(c); err != nil {
		return nil, fmt.Errorf("registering counter vec %q: %w", opts.Name, err)
	}
	return &counterVec{vec: c}, nil
}

// HistogramVec is an Observer with labels.
type HistogramVec interface {
	With(prometheus.Labels) Observer
}

// NewHistogramVec creates and registers a new HistogramVec.
func (r *Registry) NewHistogramVec(opts prometheus.HistogramOpts, labels []string) (HistogramVec, error) {
	h := prometheus.NewHistogramVec(opts, labels)
	if err := r.prom.Register(h); err != nil {
		return nil, fmt.Errorf("registering histogram vec %q: %w", opts.Name, err)
	}
	return &histogramVec{vec: h}, nil
}

type histogramVec struct {
	vec *prometheus.HistogramVec
}

func (h *histogramVec) With(labels prometheus.Labels) Observer {
	return h.vec.With(labels)
}

type gaugeVec struct {
	vec *prometheus.GaugeVec
}

func (g *gaugeVec) With(labels prometheus.Labels) Gauge {
	return g.vec.With(labels)
}

type counterVec struct {
	vec *prometheus.CounterVec
}

func (c *counterVec) With(labels prometheus.Labels) Counter {
	return c.vec.With(labels)
}
