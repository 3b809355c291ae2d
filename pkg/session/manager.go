package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/binatone-bina/health-chat-nexus/pkg/log"
	"github.com/binatone-bina/health-chat-nexus/pkg/metrics"
)

var (
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotEndable      = errors.New("session cannot be ended in its current state")
)

// Manager tracks the controllers of all mounted consultation pages
type Manager struct {
	sessions sync.Map // map[string]*Controller
}

// NewManager creates a new session manager
func NewManager() *Manager {
	return &Manager{}
}

// Add registers a controller under its page instance id
func (m *Manager) Add(c *Controller) error {
	if _, loaded := m.sessions.LoadOrStore(c.ID(), c); loaded {
		return fmt.Errorf("%w: %s", ErrSessionExists, c.ID())
	}
	metrics.LiveSessions.Inc()
	log.Debugf("Registered session: %s", c.ID())
	return nil
}

// Remove unregisters a controller; it does not tear it down
func (m *Manager) Remove(id string) (*Controller, bool) {
	value, exists := m.sessions.LoadAndDelete(id)
	if !exists {
		return nil, false
	}
	metrics.LiveSessions.Dec()
	log.Debugf("Unregistered session: %s", id)
	return value.(*Controller), true
}

// Get returns a controller by page instance id
func (m *Manager) Get(id string) (*Controller, bool) {
	value, exists := m.sessions.Load(id)
	if !exists {
		return nil, false
	}
	return value.(*Controller), true
}

// List returns snapshots of all sessions, oldest first
func (m *Manager) List() []Snapshot {
	result := make([]Snapshot, 0)
	m.sessions.Range(func(_, value interface{}) bool {
		result = append(result, value.(*Controller).Snapshot())
		return true
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// ListByAppointment returns snapshots of the sessions joined to an appointment
func (m *Manager) ListByAppointment(appointmentID string) []Snapshot {
	result := make([]Snapshot, 0)
	for _, s := range m.List() {
		if s.AppointmentID == appointmentID {
			result = append(result, s)
		}
	}
	return result
}

// EndSession ends a session's call on behalf of an explicit request
func (m *Manager) EndSession(id string, reason CompletionReason) error {
	c, exists := m.Get(id)
	if !exists {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if !c.End(reason) {
		return fmt.Errorf("%w: %s is %s", ErrNotEndable, id, c.State())
	}
	log.Infof("Ended session %s: %s", id, reason)
	return nil
}

// Count returns the number of registered sessions
func (m *Manager) Count() int {
	count := 0
	m.sessions.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

// Shutdown ends every live call, tears the sessions down and forgets them
func (m *Manager) Shutdown() {
	log.Info("Shutting down session manager")

	m.sessions.Range(func(key, value interface{}) bool {
		id := key.(string)
		c := value.(*Controller)
		log.Infof("Stopping session: %s", id)
		c.End(ReasonShutdown)
		c.Teardown()
		m.Remove(id)
		return true
	})

	log.Info("Session manager shutdown complete")
}
