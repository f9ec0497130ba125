// Package metrics exposes a small Counter/Gauge registry abstraction so the
// storage engine's core never forces an HTTP listener on an embedder; the
// default implementation is backed by prometheus/client_golang.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Counter is a monotonically increasing observability value.
type Counter interface {
	Inc()
	Add(delta float64)
}

// Gauge is an observability value that can move in either direction.
type Gauge interface {
	Set(v float64)
	Inc()
	Dec()
}

// Registry hands out named counters and gauges. The constructors in this
// module that accept a Registry treat a nil one as Noop, whose
// instruments discard every observation.
type Registry interface {
	Counter(name, help string) Counter
	Gauge(name, help string, labels ...string) Gauge
}

// PrometheusRegistry adapts a *prometheus.Registry to the Registry
// interface, lazily registering collectors the first time each name is
// requested.
type PrometheusRegistry struct {
	reg      *prometheus.Registry
	counters map[string]prometheus.Counter
	gauges   map[string]*prometheus.GaugeVec
}

// NewPrometheusRegistry wraps reg (or a fresh prometheus.NewRegistry() if
// reg is nil) as a metrics.Registry.
func NewPrometheusRegistry(reg *prometheus.Registry) *PrometheusRegistry {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &PrometheusRegistry{
		reg:      reg,
		counters: make(map[string]prometheus.Counter),
		gauges:   make(map[string]*prometheus.GaugeVec),
	}
}

func (r *PrometheusRegistry) Counter(name, help string) Counter {
	if c, ok := r.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	r.reg.MustRegister(c)
	r.counters[name] = c
	return c
}

func (r *PrometheusRegistry) Gauge(name, help string, labels ...string) Gauge {
	key := name
	gv, ok := r.gauges[key]
	if !ok {
		gv = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labelNames(labels))
		r.reg.MustRegister(gv)
		r.gauges[key] = gv
	}
	if len(labels) == 0 {
		return gv.WithLabelValues()
	}
	return gv.WithLabelValues(labels...)
}

func labelNames(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	names := make([]string, len(labels))
	for i := range labels {
		names[i] = "bin"
	}
	return names
}

// Registerer exposes the underlying prometheus.Registry so an embedder can
// mount it under its own http.Handler.
func (r *PrometheusRegistry) Registerer() *prometheus.Registry { return r.reg }

type noopCounter struct{}

func (noopCounter) Inc()           {}
func (noopCounter) Add(float64)    {}

type noopGauge struct{}

func (noopGauge) Set(float64) {}
func (noopGauge) Inc()        {}
func (noopGauge) Dec()        {}

type noopRegistry struct{}

func (noopRegistry) Counter(string, string) Counter            { return noopCounter{} }
func (noopRegistry) Gauge(string, string, ...string) Gauge     { return noopGauge{} }

// Noop is a Registry whose instruments discard every observation; used
// when a caller constructs a BufferPool/FSM without metrics wiring.
var Noop Registry = noopRegistry{}
