// Package metrics exposes the server's Prometheus instrumentation. It is
// always collected regardless of whether the HTTP exposition endpoint is
// enabled, since the cost of a handful of counters and gauges is
// negligible next to running the scrape endpoint itself.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every collector the server updates during normal
// operation.
type Metrics struct {
	Registry           *prometheus.Registry
	CommandsTotal      *prometheus.CounterVec
	ConnectionsTotal   prometheus.Counter
	ConnectionsActive  prometheus.Gauge
	AOFQueueDepth      prometheus.Gauge
	AOFSyncsTotal      prometheus.Counter
	ReplicationLagHits prometheus.Counter
}

// New constructs a Metrics bundle registered against a fresh registry, so
// multiple Server instances in the same process (as in tests) never
// collide on Prometheus's global default registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stormkv_commands_total",
			Help: "Total commands executed, by command name.",
		}, []string{"command"}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stormkv_connections_total",
			Help: "Total connections accepted.",
		}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stormkv_connections_active",
			Help: "Currently open connections.",
		}),
		AOFQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stormkv_aof_queue_depth",
			Help: "Pending writes queued for the AOF writer.",
		}),
		AOFSyncsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stormkv_aof_syncs_total",
			Help: "Total fsync calls issued by the AOF writer.",
		}),
		ReplicationLagHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stormkv_replication_lag_total",
			Help: "Times a replica stream dropped a command because its queue was full.",
		}),
	}
	reg.MustRegister(
		m.CommandsTotal,
		m.ConnectionsTotal,
		m.ConnectionsActive,
		m.AOFQueueDepth,
		m.AOFSyncsTotal,
		m.ReplicationLagHits,
	)
	return m
}
