// Package pmetrics contains the Prometheus counters
// exported by the food factory and its pantries.
//
// A nil *Metrics is valid and records nothing,
// so components can be wired without metrics in tests.
package pmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures [New].
type Config struct {
	// Namespace is the metrics namespace (default: "pantry").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Metrics holds the registered collectors.
type Metrics struct {
	ticksGenerated prometheus.Counter
	ticksDelivered prometheus.Counter
	ticksDropped   prometheus.Counter

	itemsAppended  *prometheus.CounterVec
	ticksDiscarded *prometheus.CounterVec

	signalsFired     *prometheus.CounterVec
	streamsCompleted *prometheus.CounterVec
}

// New registers the collectors on cfg.Registry and returns them.
// It panics if registration fails, like promauto.
func New(cfg Config) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "pantry"
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(cfg.Registry)

	return &Metrics{
		ticksGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   "source",
			Name:        "ticks_generated_total",
			Help:        "Total number of items generated by the source",
			ConstLabels: cfg.ConstLabels,
		}),
		ticksDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   "source",
			Name:        "ticks_delivered_total",
			Help:        "Total number of generated items multicast to subscribers",
			ConstLabels: cfg.ConstLabels,
		}),
		ticksDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   "source",
			Name:        "ticks_dropped_total",
			Help:        "Generated items discarded because the source closed before delivery",
			ConstLabels: cfg.ConstLabels,
		}),

		itemsAppended: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   "consumer",
			Name:        "items_appended_total",
			Help:        "Items appended to a consumer collection",
			ConstLabels: cfg.ConstLabels,
		}, []string{"consumer"}),
		ticksDiscarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   "consumer",
			Name:        "ticks_discarded_total",
			Help:        "Delivered items ignored by a consumer whose gate was closed",
			ConstLabels: cfg.ConstLabels,
		}, []string{"consumer"}),

		signalsFired: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "signals_fired_total",
			Help:        "One-shot signals fired, by name",
			ConstLabels: cfg.ConstLabels,
		}, []string{"signal"}),
		streamsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "streams_completed_total",
			Help:        "Streams that reached completion, by name",
			ConstLabels: cfg.ConstLabels,
		}, []string{"stream"}),
	}
}

func (m *Metrics) TickGenerated() {
	if m == nil {
		return
	}
	m.ticksGenerated.Inc()
}

func (m *Metrics) TickDelivered() {
	if m == nil {
		return
	}
	m.ticksDelivered.Inc()
}

func (m *Metrics) TicksDropped(n int) {
	if m == nil || n == 0 {
		return
	}
	m.ticksDropped.Add(float64(n))
}

func (m *Metrics) ItemAppended(consumer string) {
	if m == nil {
		return
	}
	m.itemsAppended.WithLabelValues(consumer).Inc()
}

func (m *Metrics) TickDiscarded(consumer string) {
	if m == nil {
		return
	}
	m.ticksDiscarded.WithLabelValues(consumer).Inc()
}

func (m *Metrics) SignalFired(signal string) {
	if m == nil {
		return
	}
	m.signalsFired.WithLabelValues(signal).Inc()
}

func (m *Metrics) StreamCompleted(stream string) {
	if m == nil {
		return
	}
	m.streamsCompleted.WithLabelValues(stream).Inc()
}
