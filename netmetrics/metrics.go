// Package netmetrics exposes Prometheus instrumentation for the transport
// and replication layers. The library never opens an HTTP listener itself;
// a host that wants /metrics served calls netmetrics.Handler().
package netmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PacketsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netsim_packets_sent_total",
		Help: "Total UDP packets sent.",
	})
	PacketsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netsim_packets_received_total",
		Help: "Total UDP packets received.",
	})
	MessagesRetransmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netsim_messages_retransmitted_total",
		Help: "Total reliable messages retransmitted after RTO expiry.",
	})
	MessagesAcked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netsim_messages_acked_total",
		Help: "Total reliable messages acknowledged.",
	})
	ConnectionsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netsim_connections_accepted_total",
		Help: "Total handshakes that completed successfully.",
	})
	ConnectionsDenied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netsim_connections_denied_total",
		Help: "Total handshakes rejected (server full, etc).",
	})
	ConnectionsTimedOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netsim_connections_timed_out_total",
		Help: "Total peers disconnected for inactivity.",
	})

	ConnectedPeers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "netsim_connected_peers",
		Help: "Current number of connected remote peers.",
	})
	ReplicatedEntities = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "netsim_replicated_entities",
		Help: "Current number of entities tracked by the replication manager.",
	})

	RTTSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "netsim_rtt_seconds",
		Help:    "Round-trip-time samples observed on reliable-channel acks.",
		Buckets: prometheus.DefBuckets,
	})
	PacketBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "netsim_packet_bytes",
		Help:    "Size in bytes of sent packets.",
		Buckets: prometheus.ExponentialBuckets(32, 2, 8),
	})
)

// Handler returns the standard Prometheus HTTP handler for a host that
// wants to serve /metrics. The library itself never binds a port.
func Handler() http.Handler {
	return promhttp.Handler()
}
