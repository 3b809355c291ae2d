package events

import (
	"sync"
	"time"

	"github.com/binatone-bina/health-chat-nexus/pkg/log"
	"github.com/binatone-bina/health-chat-nexus/pkg/metrics"
)

// Subscriber represents a socket subscribed to bus events
type Subscriber struct {
	ID            string
	SessionID     string          // Filter by page instance (empty for all)
	AppointmentID string          // Filter by appointment (empty for all)
	Types         map[string]bool // Filter by event type (empty for all)
	Channel       chan *Event
	LastActivity  time.Time
	connected     bool
	mutex         sync.RWMutex
}

// NewSubscriber creates a new subscriber
func NewSubscriber(id string, bufferSize int) *Subscriber {
	return &Subscriber{
		ID:           id,
		Types:        make(map[string]bool),
		Channel:      make(chan *Event, bufferSize),
		LastActivity: time.Now(),
		connected:    true,
	}
}

// SetSessionFilter sets the page instance filter
func (s *Subscriber) SetSessionFilter(sessionID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.SessionID = sessionID
}

// SetAppointmentFilter sets the appointment filter
func (s *Subscriber) SetAppointmentFilter(appointmentID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.AppointmentID = appointmentID
}

// SetTypeFilter sets the event type filter
func (s *Subscriber) SetTypeFilter(types []string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Types = make(map[string]bool)
	for _, t := range types {
		s.Types[t] = true
	}
}

// ShouldReceive checks if the subscriber should receive this event
func (s *Subscriber) ShouldReceive(ev *Event) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.connected {
		return false
	}
	if s.SessionID != "" && s.SessionID != ev.SessionID {
		return false
	}
	if s.AppointmentID != "" && s.AppointmentID != ev.AppointmentID {
		return false
	}
	if len(s.Types) > 0 && !s.Types[ev.Type] {
		return false
	}
	return true
}

// Send sends an event to the subscriber (non-blocking)
func (s *Subscriber) Send(ev *Event) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.connected {
		return false
	}

	select {
	case s.Channel <- ev:
		s.LastActivity = time.Now()
		return true
	default:
		log.Warnf("Dropping %s event for subscriber %s (channel full)", ev.Type, s.ID)
		return false
	}
}

// Close closes the subscriber
func (s *Subscriber) Close() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.connected {
		s.connected = false
		close(s.Channel)
	}
}

// IsConnected returns whether the subscriber is connected
func (s *Subscriber) IsConnected() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.connected
}

// Bus fans events out to subscribers
type Bus struct {
	subscribers map[string]*Subscriber
	mutex       sync.RWMutex
	stats       BusStats
}

// BusStats holds statistics for the bus
type BusStats struct {
	TotalEvents       uint64
	DroppedEvents     uint64
	ActiveSubscribers int
	LastEventTime     time.Time
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]*Subscriber),
	}
}

// Subscribe adds a new subscriber to the bus
func (b *Bus) Subscribe(subscriber *Subscriber) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.subscribers[subscriber.ID] = subscriber
	b.stats.ActiveSubscribers = len(b.subscribers)

	log.Debugf("Added subscriber: %s (total: %d)", subscriber.ID, b.stats.ActiveSubscribers)
}

// Unsubscribe removes a subscriber from the bus and closes its channel
func (b *Bus) Unsubscribe(subscriberID string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if subscriber, exists := b.subscribers[subscriberID]; exists {
		subscriber.Close()
		delete(b.subscribers, subscriberID)
		b.stats.ActiveSubscribers = len(b.subscribers)

		log.Debugf("Removed subscriber: %s (total: %d)", subscriberID, b.stats.ActiveSubscribers)
	}
}

// Publish delivers an event to all matching subscribers and returns how
// many accepted it.
func (b *Bus) Publish(ev *Event) int {
	b.mutex.RLock()
	subscribers := make([]*Subscriber, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		if sub.ShouldReceive(ev) {
			subscribers = append(subscribers, sub)
		}
	}
	b.mutex.RUnlock()

	sent := 0
	dropped := 0
	for _, subscriber := range subscribers {
		if !subscriber.IsConnected() {
			continue
		}
		if subscriber.Send(ev) {
			sent++
		} else {
			dropped++
		}
	}

	b.mutex.Lock()
	b.stats.TotalEvents++
	b.stats.DroppedEvents += uint64(dropped)
	b.stats.LastEventTime = time.Now()
	b.mutex.Unlock()

	if dropped > 0 {
		metrics.EventsDropped.WithLabelValues(ev.Type).Add(float64(dropped))
	}
	return sent
}

// GetStats returns bus statistics
func (b *Bus) GetStats() BusStats {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	stats := b.stats
	stats.ActiveSubscribers = len(b.subscribers)
	return stats
}

// GetSubscriber returns a subscriber by ID
func (b *Bus) GetSubscriber(subscriberID string) (*Subscriber, bool) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	subscriber, exists := b.subscribers[subscriberID]
	return subscriber, exists
}

// GetSubscriberCount returns the number of active subscribers
func (b *Bus) GetSubscriberCount() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.subscribers)
}

// Shutdown closes all subscribers and shuts down the bus
func (b *Bus) Shutdown() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	log.Info("Shutting down event bus")

	for id, subscriber := range b.subscribers {
		subscriber.Close()
		log.Debugf("Closed subscriber: %s", id)
	}

	b.subscribers = make(map[string]*Subscriber)
	b.stats.ActiveSubscribers = 0

	log.Info("Event bus shutdown complete")
}
