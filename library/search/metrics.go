package search

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestsTotal counts engine calls by engine and outcome.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rango_search_requests_total",
			Help: "Search engine calls",
		},
		[]string{"engine", "status"},
	)

	// RequestDuration records engine latency in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rango_search_duration_seconds",
			Help:    "Search engine latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"engine"},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal, RequestDuration)
}

const (
	statusOK            = "ok"
	statusConfiguration = "configuration_error"
	statusUpstream      = "upstream_error"
	statusError         = "error"
)

type instrumentedEngine struct {
	Engine
}

// Instrument wraps engine so every call is counted and timed.
// Results and errors pass through untouched.
func Instrument(engine Engine) Engine {
	if engine == nil {
		return nil
	}
	if _, ok := engine.(*instrumentedEngine); ok {
		return engine
	}
	return &instrumentedEngine{Engine: engine}
}

func (e *instrumentedEngine) Search(ctx context.Context, query string) ([]SearchResult, error) {
	startAt := time.Now()
	results, err := e.Engine.Search(ctx, query)
	RequestDuration.WithLabelValues(e.Name()).Observe(time.Since(startAt).Seconds())
	RequestsTotal.WithLabelValues(e.Name(), statusOf(err)).Inc()
	return results, err
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return statusOK
	case IsConfigurationError(err):
		return statusConfiguration
	default:
		if _, ok := AsUpstreamError(err); ok {
			return statusUpstream
		}
		return statusError
	}
}
