// Package metrics exposes Prometheus collectors for the polling pipelines.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ringwatch"

// Pipeline labels
const (
	PipelineStatus = "status"
	PipelineDings  = "dings"
)

// Poller records what the update coordinator does. A nil *Poller is valid
// and records nothing.
type Poller struct {
	fetches        *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	dropped        *prometheus.CounterVec
	staleResults   prometheus.Counter
	trackedCameras prometheus.Gauge
	dings          prometheus.Counter
}

// NewPoller creates the collectors and registers them with reg
func NewPoller(reg prometheus.Registerer) *Poller {
	p := &Poller{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_fetches_total",
			Help:      "Fetches issued by the polling pipelines, by outcome.",
		}, []string{"pipeline", "result"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_fetch_duration_seconds",
			Help:      "Time from fetch start to resolution.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"pipeline"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_triggers_dropped_total",
			Help:      "Triggers dropped by the 500ms rate limiter, by source.",
		}, []string{"source"}),
		staleResults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_stale_results_total",
			Help:      "Status fetches superseded by a newer fetch before resolving.",
		}),
		trackedCameras: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_cameras",
			Help:      "Cameras kept fresh by the status pipeline.",
		}),
		dings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dings_dispatched_total",
			Help:      "Active dings delivered to cameras.",
		}),
	}

	reg.MustRegister(p.fetches, p.fetchDuration, p.dropped, p.staleResults, p.trackedCameras, p.dings)
	return p
}

// FetchCompleted records one resolved fetch
func (p *Poller) FetchCompleted(pipeline string, took time.Duration, err error) {
	if p == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.fetches.WithLabelValues(pipeline, result).Inc()
	p.fetchDuration.WithLabelValues(pipeline).Observe(took.Seconds())
}

// TriggerDropped records a trigger swallowed by a rate limiter
func (p *Poller) TriggerDropped(source string) {
	if p == nil {
		return
	}
	p.dropped.WithLabelValues(source).Inc()
}

// StaleResult records a superseded status fetch
func (p *Poller) StaleResult() {
	if p == nil {
		return
	}
	p.staleResults.Inc()
}

// SetTrackedCameras sets the tracked camera gauge
func (p *Poller) SetTrackedCameras(n int) {
	if p == nil {
		return
	}
	p.trackedCameras.Set(float64(n))
}

// DingsDispatched records delivered dings
func (p *Poller) DingsDispatched(n int) {
	if p == nil {
		return
	}
	p.dings.Add(float64(n))
}
