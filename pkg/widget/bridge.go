package widget

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/binatone-bina/health-chat-nexus/pkg/log"
)

// Messages sent to the page hosting the widget.
const (
	MessageInstantiate = "widget.instantiate"
	MessageCommand     = "widget.command"
	MessageDispose     = "widget.dispose"
)

var (
	ErrReadyTimeout        = errors.New("widget did not become ready within timeout")
	ErrAlreadyInstantiated = errors.New("widget already instantiated")
	ErrNotInstantiated     = errors.New("widget not instantiated")
	ErrDisposed            = errors.New("widget disposed")
)

// Outbox delivers instructions to the page hosting the widget.
type Outbox interface {
	Send(msgType string, payload interface{}) error
}

// InstantiatePayload asks the page to construct the external API.
type InstantiatePayload struct {
	Domain  string   `json:"domain"`
	Options *Options `json:"options"`
}

// CommandPayload asks the page to run executeCommand on the handle.
type CommandPayload struct {
	Command string        `json:"command"`
	Args    []interface{} `json:"args,omitempty"`
}

// Event is a widget event forwarded by the page. Participants is the
// page's getNumberOfParticipants() at the time of the event.
type Event struct {
	Name         string      `json:"event"`
	Participant  Participant `json:"participant"`
	Participants *int        `json:"participants,omitempty"`
}

// Bridge is the server half of a widget living in a browser page. It is both
// the Factory and, once the page acknowledged instantiation, the Widget.
type Bridge struct {
	out          Outbox
	readyTimeout time.Duration

	mu           sync.Mutex
	ready        chan error
	listeners    Listeners
	participants int
	instantiated bool
	disposed     bool
}

// NewBridge creates a bridge sending its instructions through out
func NewBridge(out Outbox, readyTimeout time.Duration) *Bridge {
	return &Bridge{
		out:          out,
		readyTimeout: readyTimeout,
	}
}

// Instantiate asks the page to create the widget and waits for its
// acknowledgement, an error report, the ready timeout or ctx.
func (b *Bridge) Instantiate(ctx context.Context, domain string, opts *Options) (Widget, error) {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return nil, ErrDisposed
	}
	if b.instantiated || b.ready != nil {
		b.mu.Unlock()
		return nil, ErrAlreadyInstantiated
	}
	ready := make(chan error, 1)
	b.ready = ready
	b.mu.Unlock()

	if err := b.out.Send(MessageInstantiate, InstantiatePayload{Domain: domain, Options: opts}); err != nil {
		b.clearPending()
		return nil, fmt.Errorf("send instantiate: %w", err)
	}

	timer := time.NewTimer(b.readyTimeout)
	defer timer.Stop()

	select {
	case err := <-ready:
		if err != nil {
			b.clearPending()
			return nil, fmt.Errorf("page failed to instantiate widget: %w", err)
		}
	case <-timer.C:
		b.clearPending()
		return nil, ErrReadyTimeout
	case <-ctx.Done():
		b.clearPending()
		return nil, ctx.Err()
	}

	b.mu.Lock()
	b.ready = nil
	b.instantiated = true
	b.participants = 1
	b.mu.Unlock()

	log.Debugf("Widget instantiated on %s for room %s", domain, opts.RoomName)
	return b, nil
}

func (b *Bridge) clearPending() {
	b.mu.Lock()
	b.ready = nil
	b.mu.Unlock()
}

// HandleReady resolves a pending Instantiate. A nil err acknowledges the widget.
func (b *Bridge) HandleReady(err error) {
	b.mu.Lock()
	ready := b.ready
	b.mu.Unlock()

	if ready == nil {
		log.Warnf("Ignoring widget ready report with no pending instantiation")
		return
	}

	select {
	case ready <- err:
	default:
	}
}

// HandleEvent dispatches a page event to the registered listeners.
func (b *Bridge) HandleEvent(ev Event) {
	b.mu.Lock()
	if ev.Participants != nil {
		b.participants = *ev.Participants
	}
	l := b.listeners
	active := b.instantiated && !b.disposed
	b.mu.Unlock()

	if !active {
		log.Debugf("Dropping widget event %s: widget not active", ev.Name)
		return
	}

	switch ev.Name {
	case EventReadyToClose:
		if l.ReadyToClose != nil {
			l.ReadyToClose()
		}
	case EventParticipantLeft:
		if l.ParticipantLeft != nil {
			l.ParticipantLeft(ev.Participant)
		}
	case EventParticipantJoined:
		if l.ParticipantJoined != nil {
			l.ParticipantJoined(ev.Participant)
		}
	case EventVideoConferenceJoined:
		if l.VideoConferenceJoined != nil {
			l.VideoConferenceJoined(ev.Participant)
		}
	case EventVideoConferenceLeft:
		if l.VideoConferenceLeft != nil {
			l.VideoConferenceLeft()
		}
	default:
		log.Debugf("Ignoring unknown widget event: %s", ev.Name)
	}
}

// AddEventListeners replaces the registered listeners
func (b *Bridge) AddEventListeners(l Listeners) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = l
}

// ExecuteCommand forwards a command to the page's widget handle
func (b *Bridge) ExecuteCommand(command string, args ...interface{}) error {
	b.mu.Lock()
	switch {
	case b.disposed:
		b.mu.Unlock()
		return ErrDisposed
	case !b.instantiated:
		b.mu.Unlock()
		return ErrNotInstantiated
	}
	b.mu.Unlock()

	return b.out.Send(MessageCommand, CommandPayload{Command: command, Args: args})
}

// NumberOfParticipants returns the last participant count reported by the page
func (b *Bridge) NumberOfParticipants() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.participants
}

// Dispose tells the page to tear the widget down. Only the first call sends.
func (b *Bridge) Dispose() error {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return nil
	}
	b.disposed = true
	b.listeners = Listeners{}
	b.mu.Unlock()

	return b.out.Send(MessageDispose, nil)
}
