package prometrics

import (
	"sync"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// Registry exposes the subset of Prometheus registry functionality needed by the application.
type Registry interface {
	Counter(name string, help string, labelKeys ...string) observability.Counter
	Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram
}

type registry struct {
	counters   sync.Map // name -> *prometheus.CounterVec
	histograms sync.Map // name -> *prometheus.HistogramVec
	namespace  string
	subsystem  string
	reg        prometheus.Registerer
}

// New returns a Registry registering its vectors on reg, or on the default registerer when reg is nil.
func New(namespace, subsystem string, reg prometheus.Registerer) Registry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &registry{namespace: namespace, subsystem: subsystem, reg: reg}
}

type counter struct{ v *prometheus.CounterVec }

func (c *counter) Add(d float64, labels ...observability.Label) {
	c.v.With(labelMap(labels)).Add(d)
}

type histogram struct{ v *prometheus.HistogramVec }

func (h *histogram) Observe(v float64, labels ...observability.Label) {
	h.v.With(labelMap(labels)).Observe(v)
}

func labelMap(ls []observability.Label) prometheus.Labels {
	m := make(prometheus.Labels, len(ls))
	for _, l := range ls {
		m[l.Key] = l.Value
	}
	return m
}

func (r *registry) Counter(name string, help string, labelKeys ...string) observability.Counter {
	// ensure only registered once
	if v, ok := r.counters.Load(name); ok {
		return &counter{v: v.(*prometheus.CounterVec)}
	}
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace, Subsystem: r.subsystem, Name: name, Help: help,
	}, labelKeys)
	r.reg.MustRegister(cv)
	r.counters.Store(name, cv)
	return &counter{v: cv}
}

func (r *registry) Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram {
	if v, ok := r.histograms.Load(name); ok {
		return &histogram{v: v.(*prometheus.HistogramVec)}
	}
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace, Subsystem: r.subsystem, Name: name, Help: help, Buckets: buckets,
	}, labelKeys)
	r.reg.MustRegister(hv)
	r.histograms.Store(name, hv)
	return &histogram{v: hv}
}

// Instruments registers every entry of observability.Catalog and returns them keyed for observability.New.
func Instruments(r Registry) (map[observability.MetricKey]observability.Counter, map[observability.MetricKey]observability.Histogram) {
	counters := make(map[observability.MetricKey]observability.Counter)
	histograms := make(map[observability.MetricKey]observability.Histogram)
	for _, spec := range observability.Catalog {
		switch spec.Kind {
		case observability.KindCounter:
			counters[spec.Key] = r.Counter(string(spec.Key), spec.Help, spec.Labels...)
		case observability.KindHistogram:
			buckets := spec.Buckets
			if buckets == nil {
				buckets = prometheus.DefBuckets
			}
			histograms[spec.Key] = r.Histogram(string(spec.Key), spec.Help, buckets, spec.Labels...)
		}
	}
	return counters, histograms
}
