// Package metrics exports guarded-execution outcomes to Prometheus.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/guardkit/guard/pkg/guard"
)

// Outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeFailure = "failure"
)

// Recorder counts Results per source. A nil *Recorder is a valid no-op.
type Recorder struct {
	reg      *prom.Registry
	outcomes *prom.CounterVec
	duration *prom.HistogramVec
}

// New registers the guard metrics on reg, or on a fresh registry when reg is nil.
func New(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		reg: reg,
		outcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "guard",
			Name:      "outcomes_total",
			Help:      "Guarded executions by source, outcome and error code",
		}, []string{"source", "outcome", "code"}),
		duration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "guard",
			Name:      "duration_seconds",
			Help:      "Duration of guarded executions",
			Buckets:   prom.DefBuckets,
		}, []string{"source"}),
	}
	reg.MustRegister(r.outcomes, r.duration)
	return r
}

// Observe records one settled execution; err is nil on success.
func (r *Recorder) Observe(source string, d time.Duration, err *guard.Error) {
	if r == nil {
		return
	}
	if err == nil {
		r.outcomes.WithLabelValues(source, OutcomeOK, "").Inc()
	} else {
		r.outcomes.WithLabelValues(source, OutcomeFailure, string(err.Code())).Inc()
	}
	r.duration.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveResult is Observe for a Result.
func ObserveResult[T any](r *Recorder, source string, d time.Duration, res guard.Result[T]) {
	r.Observe(source, d, res.Err)
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prom.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
