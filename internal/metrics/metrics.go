package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Realtime metrics
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_connections_active",
			Help: "Currently open websocket sessions",
		},
	)

	EventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_events_dropped_total",
			Help: "Events dropped because the target had no session or a full buffer",
		},
		[]string{"reason"}, // "no_session" or "slow_consumer"
	)

	PresenceTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_presence_transitions_total",
			Help: "Presence online/offline transitions broadcast",
		},
		[]string{"state"}, // "online" or "offline"
	)

	// Business metrics
	MessagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total messages persisted",
		},
		[]string{"initial_status"}, // "SENT" or "DELIVERED"
	)

	CallSignalsRelayedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_call_signals_relayed_total",
			Help: "Total call signaling payloads relayed",
		},
	)

	RateLimitHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_rate_limit_hits_total",
			Help: "Total rate limit rejections",
		},
		[]string{"endpoint"},
	)
)
