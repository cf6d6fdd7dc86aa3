// Package metrics is a small, backend-agnostic layer for recording loader
// metrics. The global backend defaults to a no-op, so instrumentation calls
// are always safe; cmd installs a real backend (see prompush) when asked.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface a metrics sink implements.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveDuration(name string, d time.Duration, labels Labels)
	// Flush pushes collected metrics for backends that batch (Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)            {}
func (nopBackend) ObserveDuration(string, time.Duration, Labels) {}
func (nopBackend) Flush() error                                  { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the current one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error { return backend.Flush() }

// RecordStep records one pipeline stage execution: a counter partitioned by
// outcome plus its duration.
func RecordStep(loader, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"loader": loader, "step": step, "status": status}
	backend.IncCounter("load_step_total", 1, lbls)
	backend.ObserveDuration("load_step_duration_seconds", d, lbls)
}

// RecordRows counts record-level outcomes, e.g. "parsed", "deduped",
// "inserted".
func RecordRows(loader, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("load_records_total", float64(delta), Labels{"loader": loader, "kind": kind})
}
