package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTP holds per-route request metrics.
type HTTP struct {
	requests HistogramVec
}

// NewHTTP registers the HTTP request metrics on r.
func NewHTTP(r *Registry) (*HTTP, error) {
	requests, err := r.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route, method and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	if err != nil {
		return nil, err
	}
	return &HTTP{requests: requests}, nil
}

// ObserveRequest records one served request. route is the matched route
// template, never the raw path.
func (h *HTTP) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if h == nil {
		return
	}
	h.requests.With(prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}).Observe(elapsed.Seconds())
}
