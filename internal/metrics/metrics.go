// Package metrics exposes server counters in Prometheus format
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "moonkv"

// Metrics holds every collector of the server, registered on a private registry
type Metrics struct {
	registry *prometheus.Registry

	commands         *prometheus.CounterVec
	commandErrors    *prometheus.CounterVec
	connectedClients prometheus.Gauge
	expiredKeys      prometheus.Counter
	pubsubDropped    prometheus.Counter
}

// New creates the collectors. keyCount is sampled on every scrape
func New(keyCount func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total number of processed commands",
		}, []string{"command"}),

		commandErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_errors_total",
			Help:      "Total number of commands answered with an error",
		}, []string{"command"}),

		connectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_clients",
			Help:      "Number of client connections",
		}),

		expiredKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_keys_total",
			Help:      "Keys removed by the active expiration cycle",
		}),

		pubsubDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pubsub_dropped_total",
			Help:      "Messages dropped because a subscriber queue was full",
		}),
	}

	keys := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "keys",
		Help:      "Number of live keys",
	}, func() float64 {
		return float64(keyCount())
	})

	m.registry.MustRegister(
		m.commands,
		m.commandErrors,
		m.connectedClients,
		m.expiredKeys,
		m.pubsubDropped,
		keys,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// CommandProcessed counts one executed command, failed reports an error reply
func (m *Metrics) CommandProcessed(command string, failed bool) {
	m.commands.WithLabelValues(command).Inc()
	if failed {
		m.commandErrors.WithLabelValues(command).Inc()
	}
}

// ClientConnected increments the connected clients gauge
func (m *Metrics) ClientConnected() {
	m.connectedClients.Inc()
}

// ClientDisconnected decrements the connected clients gauge
func (m *Metrics) ClientDisconnected() {
	m.connectedClients.Dec()
}

// KeysExpired adds keys removed by the expiration cycle
func (m *Metrics) KeysExpired(n int) {
	m.expiredKeys.Add(float64(n))
}

// MessageDropped counts one pub/sub overflow drop
func (m *Metrics) MessageDropped() {
	m.pubsubDropped.Inc()
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
