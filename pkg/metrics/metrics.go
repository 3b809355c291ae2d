// Package metrics exposes Prometheus collectors for consultation sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsStarted counts sessions that reached the active state.
	SessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "healthchat_sessions_started_total",
			Help: "Total number of consultation sessions that joined the meeting",
		},
	)

	// SessionsCompleted counts completed sessions.
	// Labels: reason (user-ended/conference-left/ready-to-close/peer-left/api-ended/shutdown)
	SessionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthchat_sessions_completed_total",
			Help: "Total number of consultation sessions completed, by completion reason",
		},
		[]string{"reason"},
	)

	// InitFailures counts sessions that never joined.
	// Labels: stage (missing_session/fetch_config/instantiate_widget)
	InitFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthchat_session_init_failures_total",
			Help: "Total number of consultation sessions that failed to initialize, by stage",
		},
		[]string{"stage"},
	)

	// StatusUpdates counts backend meeting status updates.
	// Labels: status (in-progress/completed), result (success/error)
	StatusUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthchat_meeting_status_updates_total",
			Help: "Total number of backend meeting status updates, by status and result",
		},
		[]string{"status", "result"},
	)

	// WidgetEvents counts widget events received from pages.
	WidgetEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthchat_widget_events_total",
			Help: "Total number of widget events received, by event name",
		},
		[]string{"event"},
	)

	// EventsDropped counts bus events dropped because a subscriber queue was full.
	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthchat_events_dropped_total",
			Help: "Total number of bus events dropped, by event type",
		},
		[]string{"type"},
	)

	// LiveSessions is the number of mounted consultation pages.
	LiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "healthchat_live_sessions",
			Help: "Number of consultation pages currently connected",
		},
	)

	// SessionDuration observes the time between in-progress and completion.
	SessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "healthchat_session_duration_seconds",
			Help:    "Consultation duration in seconds",
			Buckets: []float64{30, 60, 120, 300, 600, 900, 1800, 3600, 7200},
		},
	)
)

// RecordStatusUpdate records the outcome of a backend status update
func RecordStatusUpdate(status string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	StatusUpdates.WithLabelValues(status, result).Inc()
}
