// Package widget drives the hosted video-conferencing widget embedded in the
// consultation page.
package widget

import "context"

// Event names emitted by the external API.
const (
	EventReadyToClose          = "readyToClose"
	EventParticipantLeft       = "participantLeft"
	EventParticipantJoined     = "participantJoined"
	EventVideoConferenceJoined = "videoConferenceJoined"
	EventVideoConferenceLeft   = "videoConferenceLeft"
)

// CommandHangup ends the call for the local participant.
const CommandHangup = "hangup"

// Participant is the participant payload attached to widget events.
type Participant struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// Listeners holds the callbacks registered on a widget. Nil callbacks are skipped.
type Listeners struct {
	ReadyToClose          func()
	ParticipantLeft       func(Participant)
	ParticipantJoined     func(Participant)
	VideoConferenceJoined func(Participant)
	VideoConferenceLeft   func()
}

// Widget is the imperative handle of a live widget.
type Widget interface {
	AddEventListeners(l Listeners)
	ExecuteCommand(command string, args ...interface{}) error
	NumberOfParticipants() int
	Dispose() error
}

// Factory instantiates a widget against the page's mount point.
type Factory interface {
	Instantiate(ctx context.Context, domain string, opts *Options) (Widget, error)
}
