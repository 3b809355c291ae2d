package session

import "fmt"

// State is the lifecycle state of a consultation session.
type State int

const (
	// StateUninitialized is the state before Initialize runs.
	StateUninitialized State = iota
	// StateInitializing covers the config fetch, widget instantiation and
	// the in-progress update.
	StateInitializing
	// StateActive means the widget is live and the meeting is in progress.
	StateActive
	// StateEnding means a completion trigger won; backend update and
	// navigation are under way.
	StateEnding
	// StateEnded is terminal until the page unmounts.
	StateEnded
	// StateFailed means the page never joined the meeting.
	StateFailed
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateEnding:
		return "ending"
	case StateEnded:
		return "ended"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsTerminal returns true if no further transition can happen.
func (s State) IsTerminal() bool {
	return s == StateEnded || s == StateFailed
}

// CompletionReason records which trigger ended the session.
type CompletionReason string

const (
	ReasonUserEnded      CompletionReason = "user-ended"
	ReasonConferenceLeft CompletionReason = "conference-left"
	ReasonReadyToClose   CompletionReason = "ready-to-close"
	ReasonPeerLeft       CompletionReason = "peer-left"
	ReasonAPIEnded       CompletionReason = "api-ended"
	ReasonShutdown       CompletionReason = "shutdown"
)

// Explicit reports whether the reason is an explicit end request rather
// than a widget event.
func (r CompletionReason) Explicit() bool {
	switch r {
	case ReasonUserEnded, ReasonAPIEnded, ReasonShutdown:
		return true
	default:
		return false
	}
}

// Requested reports whether a person asked for the end of the call. Unlike
// shutdown, such a request is recorded with the backend even when the widget
// never came up.
func (r CompletionReason) Requested() bool {
	return r == ReasonUserEnded || r == ReasonAPIEnded
}

// PeerLeftPolicy decides what happens when the other participant leaves.
type PeerLeftPolicy string

const (
	// PeerLeftNotify only notifies the remaining participant.
	PeerLeftNotify PeerLeftPolicy = "notify"
	// PeerLeftComplete also completes the session.
	PeerLeftComplete PeerLeftPolicy = "complete"
)
