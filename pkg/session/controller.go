// Package session implements the consultation session lifecycle: it joins the
// appointment's meeting through the widget, keeps the backend meeting status
// in step and makes sure the end of a call is processed exactly once.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/binatone-bina/health-chat-nexus/pkg/backend"
	"github.com/binatone-bina/health-chat-nexus/pkg/log"
	"github.com/binatone-bina/health-chat-nexus/pkg/metrics"
	"github.com/binatone-bina/health-chat-nexus/pkg/widget"
)

var (
	ErrMissingSessionID   = errors.New("appointment ID is required")
	ErrAlreadyInitialized = errors.New("session already initialized")
	ErrSessionClosed      = errors.New("session closed before the widget was ready")
)

// MeetingService is the backend meeting service as seen by a session.
type MeetingService interface {
	GetVideoMeeting(ctx context.Context, appointmentID string) (*backend.VideoMeeting, error)
	UpdateMeetingStatus(ctx context.Context, appointmentID string, status backend.MeetingStatus, meta backend.StatusMetadata) error
}

// VariantDestructive marks error notifications.
const VariantDestructive = "destructive"

// Notification is a user-visible toast.
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant,omitempty"`
}

// Notifier shows notifications to the user of the page.
type Notifier interface {
	Notify(n Notification)
}

// Navigator moves the page to another route.
type Navigator interface {
	Navigate(route string)
}

// Config wires a controller to its collaborators.
type Config struct {
	ID             string
	Identity       Identity
	Domain         string
	PeerLeftPolicy PeerLeftPolicy
	Meetings       MeetingService
	Widgets        widget.Factory
	Notifier       Notifier
	Navigator      Navigator
	// OnStateChange, if set, receives a snapshot after every transition.
	OnStateChange func(Snapshot)
	// Now defaults to time.Now.
	Now func() time.Time
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID            string           `json:"id"`
	AppointmentID string           `json:"appointment_id"`
	Role          Role             `json:"role"`
	UserID        string           `json:"user_id"`
	State         State            `json:"state"`
	RoomName      string           `json:"room_name,omitempty"`
	Reason        CompletionReason `json:"reason,omitempty"`
	Participants  int              `json:"participants"`
	Disposed      bool             `json:"disposed"`
	CreatedAt     time.Time        `json:"created_at"`
	StartedAt     *time.Time       `json:"started_at,omitempty"`
	EndedAt       *time.Time       `json:"ended_at,omitempty"`
}

// Controller owns one consultation page's session and its widget handle.
type Controller struct {
	id        string
	identity  Identity
	domain    string
	peerLeft  PeerLeftPolicy
	meetings  MeetingService
	widgets   widget.Factory
	notifier  Notifier
	navigator Navigator
	onChange  func(Snapshot)
	now       func() time.Time

	// statusMu orders backend status updates: a completed update never
	// overtakes an in-flight in-progress update. Acquired before mu.
	statusMu sync.Mutex

	mu            sync.Mutex
	state         State
	appointmentID string
	roomName      string
	handle        widget.Widget
	disposed      bool
	tornDown      bool
	reason        CompletionReason
	createdAt     time.Time
	startedAt     time.Time
	endedAt       time.Time
}

// NewController creates a controller in the uninitialized state
func NewController(cfg Config) *Controller {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	domain := cfg.Domain
	if domain == "" {
		domain = widget.DefaultDomain
	}
	peerLeft := cfg.PeerLeftPolicy
	if peerLeft == "" {
		peerLeft = PeerLeftNotify
	}
	identity := cfg.Identity
	if identity.Role == "" {
		identity.Role = RolePatient
	}
	if identity.UserID == "" {
		identity.UserID = DefaultUserID
	}

	return &Controller{
		id:        cfg.ID,
		identity:  identity,
		domain:    domain,
		peerLeft:  peerLeft,
		meetings:  cfg.Meetings,
		widgets:   cfg.Widgets,
		notifier:  cfg.Notifier,
		navigator: cfg.Navigator,
		onChange:  cfg.OnStateChange,
		now:       now,
		state:     StateUninitialized,
		createdAt: now(),
	}
}

// ID returns the page instance id
func (c *Controller) ID() string {
	return c.id
}

// Identity returns who mounted the page
func (c *Controller) Identity() Identity {
	return c.identity
}

// State returns the current lifecycle state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) logger() *logrus.Entry {
	c.mu.Lock()
	appointmentID := c.appointmentID
	c.mu.Unlock()

	return log.WithFields(logrus.Fields{
		"session_id":     c.id,
		"appointment_id": appointmentID,
		"role":           string(c.identity.Role),
	})
}

// Initialize joins the appointment's meeting. It fetches the meeting
// configuration, has the page instantiate the widget, registers the event
// handlers and marks the meeting in progress. Failures are reported to the
// user and returned; they are never retried.
func (c *Controller) Initialize(ctx context.Context, appointmentID string) error {
	c.mu.Lock()
	if c.state != StateUninitialized {
		c.mu.Unlock()
		return ErrAlreadyInitialized
	}
	c.appointmentID = appointmentID
	if appointmentID == "" {
		c.state = StateFailed
		c.mu.Unlock()

		c.logger().Error("Cannot start consultation: appointment ID is required")
		metrics.InitFailures.WithLabelValues("missing_session").Inc()
		c.notify(Notification{
			Title:       "Error",
			Description: "Appointment ID is required",
			Variant:     VariantDestructive,
		})
		c.navigate(RouteHome)
		c.publish()
		return ErrMissingSessionID
	}
	if c.tornDown {
		c.state = StateFailed
		c.mu.Unlock()
		c.publish()
		return ErrSessionClosed
	}
	c.state = StateInitializing
	c.mu.Unlock()
	c.publish()

	meeting, err := c.meetings.GetVideoMeeting(ctx, appointmentID)
	if err != nil {
		return c.failInitialization("fetch_config", fmt.Errorf("fetch meeting config: %w", err))
	}

	roomName := widget.RoomName(meeting.MeetingConfig.RoomName, appointmentID)
	opts := widget.NewOptions(roomName, c.identity.Role.DisplayName(), c.identity.Role.IsModerator())

	handle, err := c.widgets.Instantiate(ctx, c.domain, opts)
	if err != nil {
		return c.failInitialization("instantiate_widget", fmt.Errorf("instantiate widget: %w", err))
	}

	c.statusMu.Lock()
	defer c.statusMu.Unlock()

	c.mu.Lock()
	if c.tornDown || c.state != StateInitializing {
		// The page went away, or the user ended the call, while the widget
		// was being created: nobody will ever own this handle.
		if c.state == StateInitializing {
			c.state = StateFailed
		}
		c.disposed = true
		c.mu.Unlock()

		if err := handle.Dispose(); err != nil {
			c.logger().Warnf("Error disposing orphaned widget: %v", err)
		}
		c.publish()
		return ErrSessionClosed
	}
	c.handle = handle
	c.roomName = roomName
	c.mu.Unlock()

	handle.AddEventListeners(widget.Listeners{
		ReadyToClose:          c.OnReadyToClose,
		ParticipantLeft:       c.OnParticipantLeft,
		ParticipantJoined:     c.OnParticipantJoined,
		VideoConferenceJoined: c.OnConferenceJoined,
		VideoConferenceLeft:   c.OnConferenceLeft,
	})
	c.logger().Infof("Widget ready for room %s", roomName)

	startedAt := c.now()
	err = c.meetings.UpdateMeetingStatus(ctx, appointmentID, backend.StatusInProgress, backend.StatusMetadata{
		MeetingStarted: backend.Timestamp(startedAt),
	})
	metrics.RecordStatusUpdate(string(backend.StatusInProgress), err)
	if err != nil {
		c.logger().Errorf("Error starting meeting: %v", err)
		c.notifyConnectionError()
	}

	c.mu.Lock()
	activated := c.state == StateInitializing
	if activated {
		c.state = StateActive
		c.startedAt = startedAt
	}
	c.mu.Unlock()

	if activated {
		metrics.SessionsStarted.Inc()
		c.logger().Info("Consultation in progress")
		c.publish()
	}
	return nil
}

func (c *Controller) failInitialization(stage string, err error) error {
	c.mu.Lock()
	joining := c.state == StateInitializing
	if joining {
		c.state = StateFailed
	}
	c.mu.Unlock()

	c.logger().Errorf("Error starting meeting: %v", err)
	metrics.InitFailures.WithLabelValues(stage).Inc()
	if joining {
		c.notifyConnectionError()
		c.publish()
	}
	return err
}

func (c *Controller) notifyConnectionError() {
	c.notify(Notification{
		Title:       "Connection Error",
		Description: "Failed to establish video connection. Please try again.",
		Variant:     VariantDestructive,
	})
}

// OnParticipantJoined tells the user who joined
func (c *Controller) OnParticipantJoined(p widget.Participant) {
	metrics.WidgetEvents.WithLabelValues(widget.EventParticipantJoined).Inc()
	c.logger().WithField("participant", p.ID).Infof("Participant joined: %s", p.DisplayName)

	name := p.DisplayName
	if name == "" {
		name = "A participant"
	}
	c.notify(Notification{
		Title:       "Participant Joined",
		Description: fmt.Sprintf("%s has joined the consultation.", name),
	})
}

// OnParticipantLeft tells the user when they are alone in the call. Under
// PeerLeftComplete it also completes the session.
func (c *Controller) OnParticipantLeft(p widget.Participant) {
	metrics.WidgetEvents.WithLabelValues(widget.EventParticipantLeft).Inc()
	c.logger().WithField("participant", p.ID).Infof("Participant left: %s", p.DisplayName)

	c.mu.Lock()
	handle := c.handle
	ending := c.state >= StateEnding
	c.mu.Unlock()
	if handle == nil || ending {
		return
	}

	if handle.NumberOfParticipants() > 1 {
		return
	}
	c.notify(Notification{
		Title:       "Participant Left",
		Description: "The other participant has left the consultation.",
	})
	if c.peerLeft == PeerLeftComplete {
		c.complete(ReasonPeerLeft)
	}
}

// OnConferenceJoined is observed for logging only
func (c *Controller) OnConferenceJoined(p widget.Participant) {
	metrics.WidgetEvents.WithLabelValues(widget.EventVideoConferenceJoined).Inc()
	c.logger().WithField("participant", p.ID).Info("Video conference joined")
}

// OnConferenceLeft completes the session unless an earlier trigger already did
func (c *Controller) OnConferenceLeft() {
	metrics.WidgetEvents.WithLabelValues(widget.EventVideoConferenceLeft).Inc()
	c.complete(ReasonConferenceLeft)
}

// OnReadyToClose completes the session unless an earlier trigger already did
func (c *Controller) OnReadyToClose() {
	metrics.WidgetEvents.WithLabelValues(widget.EventReadyToClose).Inc()
	c.complete(ReasonReadyToClose)
}

// EndMeeting is the user's explicit end of the consultation: it hangs up,
// records the end and navigates without waiting for the widget's own event.
func (c *Controller) EndMeeting() bool {
	return c.End(ReasonUserEnded)
}

// End completes the session for an explicit reason. It reports whether this
// call performed the completion.
func (c *Controller) End(reason CompletionReason) bool {
	return c.complete(reason)
}

// complete is the single end-of-call transition. The first trigger wins;
// every later one is a no-op.
func (c *Controller) complete(reason CompletionReason) bool {
	c.mu.Lock()
	if !c.canComplete(reason) {
		state := c.state
		c.mu.Unlock()
		c.logger().Debugf("Ignoring %s in state %s", reason, state)
		return false
	}
	c.state = StateEnding
	c.reason = reason
	handle := c.handle
	appointmentID := c.appointmentID
	startedAt := c.startedAt
	c.mu.Unlock()

	c.logger().Infof("Ending consultation: %s", reason)
	c.publish()

	if handle != nil && reason.Explicit() {
		if err := handle.ExecuteCommand(widget.CommandHangup); err != nil {
			c.logger().Warnf("Error sending hangup: %v", err)
		}
	}

	endedAt := c.now()
	if handle != nil || (reason.Requested() && appointmentID != "") {
		c.statusMu.Lock()
		err := c.meetings.UpdateMeetingStatus(context.Background(), appointmentID, backend.StatusCompleted, backend.StatusMetadata{
			MeetingEnded: backend.Timestamp(endedAt),
		})
		c.statusMu.Unlock()
		metrics.RecordStatusUpdate(string(backend.StatusCompleted), err)
		if err != nil {
			c.logger().Errorf("Error updating appointment status: %v", err)
		}
	}

	c.navigate(c.identity.Role.DashboardRoute())

	c.mu.Lock()
	c.state = StateEnded
	c.endedAt = endedAt
	c.mu.Unlock()

	metrics.SessionsCompleted.WithLabelValues(string(reason)).Inc()
	if !startedAt.IsZero() {
		metrics.SessionDuration.Observe(endedAt.Sub(startedAt).Seconds())
	}
	c.publish()
	return true
}

// canComplete must be called with c.mu held. Widget events need a live
// handle; user and API end requests are also honoured while the page is
// still joining or after it failed to join.
func (c *Controller) canComplete(reason CompletionReason) bool {
	switch c.state {
	case StateActive:
		return true
	case StateInitializing:
		return c.handle != nil || reason.Explicit()
	case StateFailed:
		return reason.Requested() && c.appointmentID != ""
	default:
		return false
	}
}

// Teardown releases the widget handle. It runs when the page unmounts,
// whatever the session state, and only the first call has an effect.
func (c *Controller) Teardown() {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return
	}
	c.tornDown = true
	handle := c.handle
	dispose := handle != nil && !c.disposed
	if dispose {
		c.disposed = true
	}
	c.mu.Unlock()

	if dispose {
		if err := handle.Dispose(); err != nil {
			c.logger().Warnf("Error disposing widget: %v", err)
		}
		c.logger().Info("Widget disposed")
	}
	c.publish()
}

// Snapshot returns the current view of the session
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		ID:            c.id,
		AppointmentID: c.appointmentID,
		Role:          c.identity.Role,
		UserID:        c.identity.UserID,
		State:         c.state,
		RoomName:      c.roomName,
		Reason:        c.reason,
		Disposed:      c.disposed,
		CreatedAt:     c.createdAt,
	}
	if c.handle != nil && !c.disposed {
		s.Participants = c.handle.NumberOfParticipants()
	}
	if !c.startedAt.IsZero() {
		started := c.startedAt
		s.StartedAt = &started
	}
	if !c.endedAt.IsZero() {
		ended := c.endedAt
		s.EndedAt = &ended
	}
	return s
}

func (c *Controller) notify(n Notification) {
	if c.notifier != nil {
		c.notifier.Notify(n)
	}
}

func (c *Controller) navigate(route string) {
	if c.navigator != nil {
		c.navigator.Navigate(route)
	}
}

func (c *Controller) publish() {
	if c.onChange != nil {
		c.onChange(c.Snapshot())
	}
}
