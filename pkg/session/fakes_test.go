package session

import (
	"context"
	"sync"
	"time"

	"github.com/binatone-bina/health-chat-nexus/pkg/backend"
	"github.com/binatone-bina/health-chat-nexus/pkg/widget"
)

// trace records collaborator calls in order across fakes.
type trace struct {
	mu    sync.Mutex
	steps []string
}

func (t *trace) add(step string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = append(t.steps, step)
}

func (t *trace) all() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.steps...)
}

type statusCall struct {
	AppointmentID string
	Status        backend.MeetingStatus
	Meta          backend.StatusMetadata
}

type fakeMeetings struct {
	trace *trace

	mu        sync.Mutex
	meeting   *backend.VideoMeeting
	getErr    error
	updateErr map[backend.MeetingStatus]error
	gets      int
	updates   []statusCall
	// onUpdate runs before an update is recorded.
	onUpdate func(status backend.MeetingStatus)
}

func (f *fakeMeetings) GetVideoMeeting(ctx context.Context, appointmentID string) (*backend.VideoMeeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	f.trace.add("get:" + appointmentID)
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.meeting == nil {
		return &backend.VideoMeeting{}, nil
	}
	return f.meeting, nil
}

func (f *fakeMeetings) UpdateMeetingStatus(ctx context.Context, appointmentID string, status backend.MeetingStatus, meta backend.StatusMetadata) error {
	if f.onUpdate != nil {
		f.onUpdate(status)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, statusCall{AppointmentID: appointmentID, Status: status, Meta: meta})
	f.trace.add("update:" + string(status))
	return f.updateErr[status]
}

func (f *fakeMeetings) statusOrder() []backend.MeetingStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]backend.MeetingStatus, 0, len(f.updates))
	for _, u := range f.updates {
		out = append(out, u.Status)
	}
	return out
}

func (f *fakeMeetings) updatesWith(status backend.MeetingStatus) []statusCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []statusCall
	for _, u := range f.updates {
		if u.Status == status {
			out = append(out, u)
		}
	}
	return out
}

type fakeWidget struct {
	trace *trace

	mu           sync.Mutex
	listeners    widget.Listeners
	commands     []string
	participants int
	disposals    int
}

func (w *fakeWidget) AddEventListeners(l widget.Listeners) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = l
	w.trace.add("listen")
}

func (w *fakeWidget) ExecuteCommand(command string, args ...interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.commands = append(w.commands, command)
	w.trace.add("command:" + command)
	return nil
}

func (w *fakeWidget) NumberOfParticipants() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.participants
}

func (w *fakeWidget) Dispose() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.disposals++
	w.trace.add("dispose")
	return nil
}

func (w *fakeWidget) setParticipants(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.participants = n
}

func (w *fakeWidget) registered() widget.Listeners {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.listeners
}

func (w *fakeWidget) disposeCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.disposals
}

func (w *fakeWidget) commandList() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.commands...)
}

type fakeFactory struct {
	trace  *trace
	widget *fakeWidget
	err    error
	// onInstantiate runs before the factory returns.
	onInstantiate func()

	mu       sync.Mutex
	calls    int
	domain   string
	lastOpts *widget.Options
}

func (f *fakeFactory) Instantiate(ctx context.Context, domain string, opts *widget.Options) (widget.Widget, error) {
	f.mu.Lock()
	f.calls++
	f.domain = domain
	f.lastOpts = opts
	f.mu.Unlock()
	f.trace.add("instantiate")

	if f.onInstantiate != nil {
		f.onInstantiate()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.widget, nil
}

func (f *fakeFactory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type pageRecorder struct {
	trace *trace

	mu            sync.Mutex
	notifications []Notification
	routes        []string
}

func (p *pageRecorder) Notify(n Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, n)
	p.trace.add("notify:" + n.Title)
}

func (p *pageRecorder) Navigate(route string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes = append(p.routes, route)
	p.trace.add("navigate:" + route)
}

func (p *pageRecorder) titles() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.notifications))
	for _, n := range p.notifications {
		out = append(out, n.Title)
	}
	return out
}

func (p *pageRecorder) navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.routes...)
}

type harness struct {
	trace    *trace
	meetings *fakeMeetings
	widget   *fakeWidget
	factory  *fakeFactory
	page     *pageRecorder
	states   []State
	statesMu sync.Mutex
	ctrl     *Controller
}

var fixedNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func newHarness(role Role, mutate ...func(*Config)) *harness {
	tr := &trace{}
	h := &harness{
		trace:    tr,
		meetings: &fakeMeetings{trace: tr},
		widget:   &fakeWidget{trace: tr, participants: 1},
		page:     &pageRecorder{trace: tr},
	}
	h.factory = &fakeFactory{trace: tr, widget: h.widget}

	cfg := Config{
		ID:        "page-1",
		Identity:  Identity{Role: role, UserID: "user-1"},
		Meetings:  h.meetings,
		Widgets:   h.factory,
		Notifier:  h.page,
		Navigator: h.page,
		OnStateChange: func(s Snapshot) {
			h.statesMu.Lock()
			defer h.statesMu.Unlock()
			if n := len(h.states); n == 0 || h.states[n-1] != s.State {
				h.states = append(h.states, s.State)
			}
		},
		Now: func() time.Time { return fixedNow },
	}
	for _, m := range mutate {
		m(&cfg)
	}
	h.ctrl = NewController(cfg)
	return h
}

func (h *harness) stateHistory() []State {
	h.statesMu.Lock()
	defer h.statesMu.Unlock()
	return append([]State(nil), h.states...)
}
