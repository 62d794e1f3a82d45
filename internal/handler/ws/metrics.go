package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the live event stream.
var (
	clientsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_clients_connected",
			Help: "Number of currently connected WebSocket clients",
		},
	)

	connectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_connections_total",
			Help: "Total WebSocket client connections accepted",
		},
	)

	messagesDeliveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_messages_delivered_total",
			Help: "Total event messages delivered to WebSocket clients",
		},
	)

	clientsEvictedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_clients_evicted_total",
			Help: "Total WebSocket clients evicted from the broadcast registry",
		},
		[]string{"reason"}, // reason: send_failure|read_closed
	)
)
