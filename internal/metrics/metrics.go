// Package metrics defines the Prometheus instrumentation for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks the number of dashboard websocket connections
	// currently registered with the hub.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "healthconnect_websocket_connections_active",
		Help: "Number of active dashboard websocket connections",
	})

	// ConnectionsTotal counts websocket connections accepted since start.
	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "healthconnect_websocket_connections_total",
		Help: "Total websocket connections accepted",
	})

	// ConnectionsRejected counts connections refused by the limiter,
	// labelled by reason (global, per_ip, rate).
	ConnectionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthconnect_websocket_connections_rejected_total",
		Help: "Websocket connections rejected by the connection limiter",
	}, []string{"reason"})

	// EventsPublished counts broadcast events fanned out by the hub,
	// labelled by event type.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthconnect_events_published_total",
		Help: "Broadcast events published to the hub",
	}, []string{"type"})

	// SlowClientsEvicted counts clients dropped because their send
	// buffer stayed full.
	SlowClientsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "healthconnect_slow_clients_evicted_total",
		Help: "Clients evicted because their send buffer was saturated",
	})

	// SnapshotDuration observes the time to assemble an initial data
	// snapshot for a newly connected client.
	SnapshotDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "healthconnect_snapshot_duration_seconds",
		Help:    "Time to assemble the initial dashboard snapshot",
		Buckets: prometheus.DefBuckets,
	})

	// ChangefeedMessages counts change notifications received from the
	// Redis changefeed.
	ChangefeedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "healthconnect_changefeed_messages_total",
		Help: "Change notifications received from the changefeed",
	})

	// HTTPRequestDuration observes handler latency by route and method.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "healthconnect_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
