package observability

import (
	"sync"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability"
)

// Provider hands every use case the same tracer, logger and instruments.
type Provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics *instruments
}

// New builds a Provider. Nil parts fall back to no-ops; so does any metric key asked for
// but not registered, which is logged once.
func New(
	tracer observability.Tracer,
	logger observability.Logger,
	counters map[observability.MetricKey]observability.Counter,
	histograms map[observability.MetricKey]observability.Histogram,
) *Provider {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	m := &instruments{
		counters:   make(map[observability.MetricKey]observability.Counter, len(counters)),
		histograms: make(map[observability.MetricKey]observability.Histogram, len(histograms)),
		log:        logger,
	}
	for k, c := range counters {
		if c != nil {
			m.counters[k] = c
		}
	}
	for k, h := range histograms {
		if h != nil {
			m.histograms[k] = h
		}
	}
	return &Provider{tracer: tracer, logger: logger, metrics: m}
}

func (p *Provider) Tracer() observability.Tracer   { return p.tracer }
func (p *Provider) Logger() observability.Logger   { return p.logger }
func (p *Provider) Metrics() observability.Metrics { return p.metrics }

type instruments struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
	log        observability.Logger
	missing    sync.Map // MetricKey -> struct{}
}

func (m *instruments) Counter(name observability.MetricKey) observability.Counter {
	if c, ok := m.counters[name]; ok {
		return c
	}
	m.reportMissing(name, "counter")
	return observability.NopCounter()
}

func (m *instruments) Histogram(name observability.MetricKey) observability.Histogram {
	if h, ok := m.histograms[name]; ok {
		return h
	}
	m.reportMissing(name, "histogram")
	return observability.NopHistogram()
}

func (m *instruments) reportMissing(name observability.MetricKey, kind string) {
	// an empty provider is a nop setup
	if len(m.counters) == 0 && len(m.histograms) == 0 {
		return
	}
	if _, seen := m.missing.LoadOrStore(name, struct{}{}); seen {
		return
	}
	m.log.Warn("metric_not_registered",
		observability.F("metric", string(name)),
		observability.F("kind", kind),
	)
}
