// Package prompush adapts metrics.Backend to Prometheus, pushing collected
// series to a Pushgateway instead of exposing a scrape endpoint. The loaders
// are short-lived batch jobs, so push is the only shape that works.
package prompush

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	pusher *push.Pusher

	stepCounter   *prometheus.CounterVec
	stepDuration  *prometheus.SummaryVec
	recordCounter *prometheus.CounterVec
}

var _ metrics.Backend = (*Backend)(nil)

// NewBackend constructs the backend. job becomes the Pushgateway grouping
// key; gatewayURL is the base URL of the Pushgateway server.
func NewBackend(job, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if job == "" {
		job = "hospital_load"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "load_step_total",
		Help: "Loader stage executions, partitioned by loader, step, and status.",
	}, []string{"loader", "step", "status"})

	stepDuration := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: "load_step_duration_seconds",
		Help: "Loader stage duration in seconds.",
	}, []string{"loader", "step", "status"})

	recordCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "load_records_total",
		Help: "Record-level outcomes, partitioned by loader and kind.",
	}, []string{"loader", "kind"})

	reg.MustRegister(stepCounter, stepDuration, recordCounter)

	return &Backend{
		pusher:        push.New(gatewayURL, job).Gatherer(reg),
		stepCounter:   stepCounter,
		stepDuration:  stepDuration,
		recordCounter: recordCounter,
	}, nil
}

// IncCounter routes the generic counter names onto the registered vectors.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "load_step_total":
		b.stepCounter.With(prometheus.Labels(labels)).Add(delta)
	case "load_records_total":
		b.recordCounter.With(prometheus.Labels(labels)).Add(delta)
	}
}

// ObserveDuration records a stage duration.
func (b *Backend) ObserveDuration(name string, d time.Duration, labels metrics.Labels) {
	if name == "load_step_duration_seconds" {
		b.stepDuration.With(prometheus.Labels(labels)).Observe(d.Seconds())
	}
}

// Flush pushes everything collected so far to the Pushgateway.
func (b *Backend) Flush() error {
	return b.pusher.Push()
}
