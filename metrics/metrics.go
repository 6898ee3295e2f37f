// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livepoll_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "livepoll_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	// Vote path
	VotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livepoll_votes_total",
			Help: "Vote attempts by admission outcome",
		},
		[]string{"outcome"},
	)

	StoreRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livepoll_store_retries_total",
			Help: "Retried store operations",
		},
		[]string{"op"}, // "ledger" or "counter"
	)

	CounterDesync = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "livepoll_counter_desync_total",
			Help: "Admitted votes whose counter increment failed after retries",
		},
	)

	ReconcileCorrections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "livepoll_reconcile_corrections_total",
			Help: "Option counters rewritten from the ledger",
		},
	)

	// Presence and fan-out
	PresenceSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "livepoll_presence_memberships",
			Help: "Live session memberships across all rooms",
		},
	)

	ActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "livepoll_active_rooms",
			Help: "Rooms with at least one live session",
		},
	)

	BroadcastsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livepoll_broadcasts_sent_total",
			Help: "Pushes delivered to session queues",
		},
		[]string{"type"},
	)

	BroadcastsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livepoll_broadcasts_dropped_total",
			Help: "Pushes dropped because a queue was full",
		},
		[]string{"reason"}, // "session_queue" or "room_queue"
	)

	GatewayConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "livepoll_gateway_connections",
			Help: "Open client connections",
		},
		[]string{"transport"}, // "websocket" or "sse"
	)

	RelayMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livepoll_relay_messages_total",
			Help: "Vote notifications published or received on the relay",
		},
		[]string{"backend", "direction"},
	)
)
