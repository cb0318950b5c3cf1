package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session-layer metrics. Declared here to keep metrics close to the code
// that drives them.
//
// Naming convention: namespace_subsystem_name
// - namespace: sketchroom (application-level grouping)
// - subsystem: session (feature-level grouping)
var (
	connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sketchroom",
		Subsystem: "session",
		Name:      "connections_active",
		Help:      "Currently open WebSocket connections",
	})

	roomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sketchroom",
		Subsystem: "session",
		Name:      "rooms_active",
		Help:      "Currently registered rooms",
	})

	roomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sketchroom",
		Subsystem: "session",
		Name:      "rooms_created_total",
		Help:      "Total rooms ever created",
	})

	roomUsers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sketchroom",
		Subsystem: "session",
		Name:      "room_users",
		Help:      "Users currently in each room",
	}, []string{"room_id"})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sketchroom",
		Subsystem: "session",
		Name:      "events_total",
		Help:      "WebSocket events dispatched, by event name",
	}, []string{"event"})

	messageProcessing = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sketchroom",
		Subsystem: "session",
		Name:      "message_processing_seconds",
		Help:      "Time spent handling one WebSocket event",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event"})

	messagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sketchroom",
		Subsystem: "session",
		Name:      "dropped_messages_total",
		Help:      "Outbound frames dropped because a client fell behind",
	})

	strokesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sketchroom",
		Subsystem: "session",
		Name:      "strokes_total",
		Help:      "Drawing strokes accepted into room logs",
	})

	chatMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sketchroom",
		Subsystem: "session",
		Name:      "chat_messages_total",
		Help:      "Chat messages broadcast to rooms",
	})
)
