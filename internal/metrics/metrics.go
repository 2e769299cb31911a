// Package metrics holds the Prometheus collectors of the front end and the
// replicas. Each process registers them on its own registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "auctionhouse"

// Frontend are the collectors of the front end.
type Frontend struct {
	Broadcasts       *prometheus.HistogramVec // Broadcasts times broadcasts by op
	Replies          *prometheus.HistogramVec // Replies counts replies per broadcast by op
	Outcomes         *prometheus.CounterVec   // Outcomes counts results by op and kind
	Disagreements    prometheus.Counter       // Disagreements counts tallies with more than one answer
	Handshakes       *prometheus.CounterVec   // Handshakes counts handshake steps by step and result
	Sessions         prometheus.GaugeFunc     // Sessions reports established sessions
	ReachableMembers prometheus.GaugeFunc     // ReachableMembers reports the group view size
}

// NewFrontend creates and registers the front end collectors.
// sessions and members are sampled on scrape.
func NewFrontend(reg prometheus.Registerer, sessions, members func() float64) *Frontend {
	f := &Frontend{
		Broadcasts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "frontend",
			Name:      "broadcast_seconds",
			Help:      "Time from broadcast to last counted reply.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"op"}),
		Replies: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "frontend",
			Name:      "broadcast_replies",
			Help:      "Replies received per broadcast.",
			Buckets:   prometheus.LinearBuckets(0, 1, 8),
		}, []string{"op"}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frontend",
			Name:      "operations_total",
			Help:      "Client operations by result kind.",
		}, []string{"op", "kind"}),
		Disagreements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frontend",
			Name:      "vote_disagreements_total",
			Help:      "Tallies where replicas returned more than one distinct answer.",
		}),
		Handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frontend",
			Name:      "handshake_steps_total",
			Help:      "Handshake steps by step and result.",
		}, []string{"step", "result"}),
		Sessions: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "frontend",
			Name:      "sessions",
			Help:      "Established client sessions.",
		}, sessions),
		ReachableMembers: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "frontend",
			Name:      "reachable_replicas",
			Help:      "Replicas in the current group view.",
		}, members),
	}

	reg.MustRegister(
		f.Broadcasts,
		f.Replies,
		f.Outcomes,
		f.Disagreements,
		f.Handshakes,
		f.Sessions,
		f.ReachableMembers,
	)

	return f
}

// Replica are the collectors of a replica.
type Replica struct {
	Applied  *prometheus.CounterVec // Applied counts handled ops by op and status
	Resyncs  *prometheus.CounterVec // Resyncs counts state transfers by result
	Auctions prometheus.GaugeFunc   // Auctions reports the number of stored auctions
	LastSeq  prometheus.GaugeFunc   // LastSeq reports the last applied sequence
}

// NewReplica creates and registers the replica collectors.
func NewReplica(reg prometheus.Registerer, auctions, lastSeq func() float64) *Replica {
	r := &Replica{
		Applied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replica",
			Name:      "operations_total",
			Help:      "Operations handled by op and response status.",
		}, []string{"op", "status"}),
		Resyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replica",
			Name:      "state_transfers_total",
			Help:      "State transfers by result.",
		}, []string{"result"}),
		Auctions: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "replica",
			Name:      "auctions",
			Help:      "Auctions held by this replica.",
		}, auctions),
		LastSeq: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "replica",
			Name:      "last_sequence",
			Help:      "Last applied ordered sequence.",
		}, lastSeq),
	}

	reg.MustRegister(r.Applied, r.Resyncs, r.Auctions, r.LastSeq)

	return r
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
