// Package events distributes server-to-page instructions and session
// lifecycle events to WebSocket subscribers.
package events

import "time"

// Event types carried on the bus. Widget instructions use the message types
// declared by the widget package.
const (
	TypeSessionHello = "session.hello"
	TypeSessionState = "session.state"
	TypeToast        = "toast"
	TypeNavigate     = "navigate"
	TypeHeartbeat    = "heartbeat"
)

// Event is the outbound envelope written to page and observer sockets.
type Event struct {
	Type          string      `json:"type"`
	SessionID     string      `json:"session_id,omitempty"`
	AppointmentID string      `json:"appointment_id,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
	Payload       interface{} `json:"payload,omitempty"`
}

// New creates an event stamped with the current time
func New(eventType, sessionID, appointmentID string, payload interface{}) *Event {
	return &Event{
		Type:          eventType,
		SessionID:     sessionID,
		AppointmentID: appointmentID,
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
	}
}

// NavigatePayload tells the page to move to another route.
type NavigatePayload struct {
	Route string `json:"route"`
}

// HelloPayload is the first event on a consultation socket.
type HelloPayload struct {
	Role   string `json:"role"`
	UserID string `json:"user_id"`
	Domain string `json:"domain"`
}
