package server

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/binatone-bina/health-chat-nexus/pkg/session"
	"github.com/binatone-bina/health-chat-nexus/pkg/widget"
)

// Inbound WebSocket message types sent by the consultation page
const (
	MessageTypeWidgetReady = "widget.ready"
	MessageTypeWidgetError = "widget.error"
	MessageTypeWidgetEvent = "widget.event"
	MessageTypeEnd         = "end"
)

// MessageTypeError is sent back when an inbound message cannot be handled
const MessageTypeError = "error"

// InboundMessage is a message read from a consultation socket. Widget
// event fields sit at the top level next to the type.
type InboundMessage struct {
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`
	widget.Event
}

// ErrorPayload is the payload of an error envelope
type ErrorPayload struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

// ParseInboundMessage decodes and checks an inbound message
func ParseInboundMessage(data []byte) (*InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	switch msg.Type {
	case MessageTypeWidgetReady, MessageTypeWidgetError, MessageTypeEnd:
	case MessageTypeWidgetEvent:
		if msg.Name == "" {
			return nil, fmt.Errorf("widget event without a name")
		}
	case "":
		return nil, fmt.Errorf("message type is required")
	default:
		return nil, fmt.Errorf("unknown message type: %s", msg.Type)
	}
	return &msg, nil
}

// ConnectionParams describes who opened a consultation socket
type ConnectionParams struct {
	AppointmentID string
	Identity      session.Identity
}

// ParseConnectionParams reads the page identity from the query string
func ParseConnectionParams(appointmentID string, params url.Values) *ConnectionParams {
	return &ConnectionParams{
		AppointmentID: appointmentID,
		Identity:      session.NewIdentity(params.Get("role"), params.Get("userId")),
	}
}
