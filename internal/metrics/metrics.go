// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from the sheet pipeline.
//
// The package is intentionally minimal and opinionated:
//
//   - It exposes a narrow interface (Backend) focused on counters and timing
//     data.
//   - It provides a global, pluggable backend that defaults to a no-op
//     implementation, so metrics are always safe to call even when no real
//     backend is configured.
//   - The rest of the codebase depends only on this interface; concrete
//     metric systems are isolated in subpackages (see prompush).
//
// The primary use case is instrumentation of batch runs (count, duration,
// rows in/out) without coupling the engine to a specific metrics system.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends. It is intentionally
// generic so Prometheus, StatsD, etc. can be plugged in.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordRun measures one batch run: latency plus a success/failure counter.
func RecordRun(job string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "status": status}
	backend.IncCounter("sheetpipe_run_total", 1, lbls)
	backend.ObserveHistogram("sheetpipe_run_duration_seconds", d.Seconds(), lbls)
}

// RecordRows increments a row-level counter for the given job and kind.
//
// Typical kinds mirror the run summary fields: "in" (pre-filter rows) and
// "out" (post-derive rows).
func RecordRows(job, kind string, delta int) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("sheetpipe_rows_total", float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}
