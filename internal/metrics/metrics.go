// Package metrics exposes the daemon's Prometheus registry: decision
// counts, replication traffic, kicks, and store sizes.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds every metric the daemon exports.
type Registry struct {
	// Scoring/decision metrics
	DecisionsTotal *prometheus.CounterVec
	ScoreHistogram *prometheus.HistogramVec

	// Kick metrics
	KicksIssued    *prometheus.CounterVec
	KicksSkipped   *prometheus.CounterVec

	// Replication metrics
	ReplicationSent     *prometheus.CounterVec
	ReplicationReceived *prometheus.CounterVec
	ReplicationErrors   *prometheus.CounterVec
	CryptoErrors        prometheus.Counter

	// Event bus metrics
	EventsPublished prometheus.Counter
	EventsDropped   prometheus.Counter

	// Store metrics
	StoreProbes  prometheus.Gauge
	StoreClients prometheus.Gauge
	StoreAPs     prometheus.Gauge
	StoreDenied  prometheus.Gauge

	// Control loop metrics
	TaskDuration *prometheus.HistogramVec
	TaskErrors   *prometheus.CounterVec

	// RPC metrics
	RPCRequests *prometheus.CounterVec
	RPCLatency  *prometheus.HistogramVec
}

// Get returns the global metrics registry, creating it on first use.
func Get() *Registry {
	once.Do(func() {
		registry = newRegistry()
	})
	return registry
}

func newRegistry() *Registry {
	r := &Registry{}

	r.DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steerd_decisions_total",
		Help: "Total steering decisions by kind and verdict",
	}, []string{"kind", "verdict"})

	r.ScoreHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "steerd_ap_score",
		Help:    "Distribution of AP scores computed during decisions",
		Buckets: prometheus.LinearBuckets(-50, 10, 15),
	}, []string{"bssid"})

	r.KicksIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steerd_kicks_issued_total",
		Help: "Total client kicks issued, by bssid",
	}, []string{"bssid"})

	r.KicksSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steerd_kicks_skipped_total",
		Help: "Total kick candidates skipped, by reason",
	}, []string{"reason"})

	r.ReplicationSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steerd_replication_sent_total",
		Help: "Total replication messages sent, by method",
	}, []string{"method"})

	r.ReplicationReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steerd_replication_received_total",
		Help: "Total replication messages received, by method",
	}, []string{"method"})

	r.ReplicationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steerd_replication_errors_total",
		Help: "Total replication transport errors, by stage",
	}, []string{"stage"})

	r.CryptoErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steerd_crypto_errors_total",
		Help: "Total replication frames dropped for failing authentication or decryption",
	})

	r.EventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steerd_events_published_total",
		Help: "Total events published on the local event bus",
	})

	r.EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steerd_events_dropped_total",
		Help: "Total events dropped because a subscriber's channel was full",
	})

	r.StoreProbes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "steerd_store_probes",
		Help: "Current number of probe rows in the observation store",
	})
	r.StoreClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "steerd_store_clients",
		Help: "Current number of client rows in the observation store",
	})
	r.StoreAPs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "steerd_store_aps",
		Help: "Current number of AP rows in the observation store",
	})
	r.StoreDenied = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "steerd_store_denied",
		Help: "Current number of denied-request rows in the observation store",
	})

	r.TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "steerd_task_duration_seconds",
		Help: "Control loop task execution time",
	}, []string{"task"})

	r.TaskErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steerd_task_errors_total",
		Help: "Total control loop task failures, by task",
	}, []string{"task"})

	r.RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steerd_rpc_requests_total",
		Help: "Total control RPC requests, by route and status",
	}, []string{"route", "status"})

	r.RPCLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "steerd_rpc_latency_seconds",
		Help: "Control RPC request latency",
	}, []string{"route"})

	return r
}
