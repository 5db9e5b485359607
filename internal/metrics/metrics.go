// Package metrics exposes bridge counters to Prometheus.
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the bridge collectors.
type Metrics struct {
	ImportCalls    *prometheus.CounterVec
	HostExceptions *prometheus.CounterVec
	LiveRefs       prometheus.Gauge
	LiveClosures   prometheus.Gauge
	Destructors    prometheus.Counter
	PendingTimers  prometheus.Gauge
	Microtasks     prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ImportCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wasm_bridge_import_calls_total",
				Help: "Host imports serviced, by canonical import name",
			},
			[]string{"import"},
		),
		HostExceptions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wasm_bridge_host_exceptions_total",
				Help: "Host exceptions captured into the exception register",
			},
			[]string{"import"},
		),
		LiveRefs: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "wasm_bridge_live_references",
				Help: "Allocated non-sentinel reference table slots",
			},
		),
		LiveClosures: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "wasm_bridge_live_closures",
				Help: "Closures whose module-side environment has not been destroyed",
			},
		),
		Destructors: f.NewCounter(
			prometheus.CounterOpts{
				Name: "wasm_bridge_closure_destructors_total",
				Help: "Module-side closure destructors executed",
			},
		),
		PendingTimers: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "wasm_bridge_pending_timers",
				Help: "Scheduled timeouts that have not fired",
			},
		),
		Microtasks: f.NewCounter(
			prometheus.CounterOpts{
				Name: "wasm_bridge_microtasks_total",
				Help: "Microtasks executed by the event loop",
			},
		),
	}
}

// ImportCall counts one serviced import.
func (m *Metrics) ImportCall(name string) {
	if m == nil {
		return
	}
	m.ImportCalls.WithLabelValues(name).Inc()
}

// HostException counts one captured host exception.
func (m *Metrics) HostException(name string) {
	if m == nil {
		return
	}
	m.HostExceptions.WithLabelValues(name).Inc()
}

// SetLiveRefs records the table occupancy.
func (m *Metrics) SetLiveRefs(n int) {
	if m == nil {
		return
	}
	m.LiveRefs.Set(float64(n))
}

// ClosureCreated records a new closure.
func (m *Metrics) ClosureCreated() {
	if m == nil {
		return
	}
	m.LiveClosures.Inc()
}

// DestructorRan records a destructor call and the end of a closure.
func (m *Metrics) DestructorRan() {
	if m == nil {
		return
	}
	m.Destructors.Inc()
	m.LiveClosures.Dec()
}

// TimerScheduled adjusts the pending timer gauge by delta.
func (m *Metrics) TimerScheduled(delta int) {
	if m == nil {
		return
	}
	m.PendingTimers.Add(float64(delta))
}

// MicrotaskRan counts one microtask.
func (m *Metrics) MicrotaskRan() {
	if m == nil {
		return
	}
	m.Microtasks.Inc()
}
