// Package metrics exposes per-cycle counters and gauges on a dedicated
// Prometheus registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "downwatch"

const (
	LabelOutcome = "outcome"
	LabelKind    = "kind"
	LabelResult  = "result"
	LabelCommand = "command"
)

type Metrics struct {
	registry *prometheus.Registry

	cycles        *prometheus.CounterVec
	notifications *prometheus.CounterVec
	commands      *prometheus.CounterVec
	probeDuration prometheus.Histogram
	targetUp      prometheus.Gauge
	muted         prometheus.Gauge
	downFor       prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cycles_total",
			Help:      "Evaluation cycles by outcome.",
		}, []string{LabelOutcome}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "notifications_total",
			Help:      "Outbound messages by kind and delivery result.",
		}, []string{LabelKind, LabelResult}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "commands_total",
			Help:      "Recognised inbound chat commands.",
		}, []string{LabelCommand}),
		probeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "probe_duration_seconds",
			Help:      "Wall time of the availability probe.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		targetUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "target_up",
			Help:      "1 if the last probe was up, 0 otherwise.",
		}),
		muted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "muted",
			Help:      "1 while down alerts and reminders are muted.",
		}),
		downFor: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "down_for_seconds",
			Help:      "Length of the open down streak, 0 when none.",
		}),
	}
	m.registry.MustRegister(
		m.cycles, m.notifications, m.commands,
		m.probeDuration, m.targetUp, m.muted, m.downFor,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Cycle(outcome string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Notification(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.notifications.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Command(name string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(name).Inc()
}

func (m *Metrics) Probe(d time.Duration, up bool) {
	if m == nil {
		return
	}
	m.probeDuration.Observe(d.Seconds())
	m.targetUp.Set(boolFloat(up))
}

func (m *Metrics) State(muted bool, downFor time.Duration) {
	if m == nil {
		return
	}
	m.muted.Set(boolFloat(muted))
	m.downFor.Set(downFor.Seconds())
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
