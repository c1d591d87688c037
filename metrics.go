package netlab

//
// Prometheus metrics
//

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "netlab"
	metricsSubsystem = "realizer"
)

// Label names used by [Metrics].
const (
	labelResult   = "result"
	labelKind     = "kind"
	labelStage    = "stage"
	labelStrategy = "strategy"
)

// Kinds of reload recorded by [Metrics.Reloads].
const (
	ReloadNoop    = "noop"
	ReloadRebuild = "rebuild"
	ReloadExpand  = "expand"
	ReloadShrink  = "shrink"
)

// Metrics contains the [Realizer] Prometheus metrics. All methods are
// safe to call on a nil *Metrics, which disables metrics.
type Metrics struct {
	// Builds counts the build attempts by result ("ok" or "error").
	Builds *prometheus.CounterVec

	// Reloads counts the reloads by kind (noop, rebuild, expand, shrink).
	Reloads *prometheus.CounterVec

	// Commands counts the host commands issued by setup stage.
	Commands *prometheus.CounterVec

	// Degradations counts the failed host commands by setup stage.
	Degradations *prometheus.CounterVec

	// RoutingFailures counts the routing setup failures by strategy.
	RoutingFailures *prometheus.CounterVec

	// Hosts is the number of provisioned hosts.
	Hosts prometheus.Gauge

	// Links is the number of realized links.
	Links prometheus.Gauge
}

// NewMetrics creates the [Metrics] and registers them with reg. If reg is
// nil, we use prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "builds_total",
			Help:      "Total network builds by result.",
		}, []string{labelResult}),

		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "reloads_total",
			Help:      "Total network reloads by kind.",
		}, []string{labelKind}),

		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "commands_total",
			Help:      "Total host commands issued by setup stage.",
		}, []string{labelStage}),

		Degradations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "degradations_total",
			Help:      "Total failed host commands by setup stage.",
		}, []string{labelStage}),

		RoutingFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "routing_failures_total",
			Help:      "Total routing setup failures by strategy.",
		}, []string{labelStrategy}),

		Hosts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "hosts",
			Help:      "Number of provisioned hosts.",
		}),

		Links: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "links",
			Help:      "Number of realized links.",
		}),
	}
	reg.MustRegister(
		m.Builds,
		m.Reloads,
		m.Commands,
		m.Degradations,
		m.RoutingFailures,
		m.Hosts,
		m.Links,
	)
	return m
}

func (m *Metrics) recordBuild(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Builds.WithLabelValues(result).Inc()
}

func (m *Metrics) recordReload(kind string) {
	if m != nil {
		m.Reloads.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) recordCommand(stage string, err error) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(stage).Inc()
	if err != nil {
		m.Degradations.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) recordRoutingFailure(strategy string) {
	if m != nil {
		m.RoutingFailures.WithLabelValues(strategy).Inc()
	}
}

func (m *Metrics) setSize(hosts, links int) {
	if m != nil {
		m.Hosts.Set(float64(hosts))
		m.Links.Set(float64(links))
	}
}
