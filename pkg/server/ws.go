package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/binatone-bina/health-chat-nexus/pkg/config"
	"github.com/binatone-bina/health-chat-nexus/pkg/events"
	"github.com/binatone-bina/health-chat-nexus/pkg/log"
	"github.com/binatone-bina/health-chat-nexus/pkg/session"
	"github.com/binatone-bina/health-chat-nexus/pkg/widget"
)

// WebSocketServer handles consultation and observer sockets
type WebSocketServer struct {
	upgrader websocket.Upgrader
	bus      *events.Bus
	sessions *session.Manager
	meetings session.MeetingService
	config   *config.Config
}

// NewWebSocketServer creates a new WebSocket server
func NewWebSocketServer(bus *events.Bus, sessions *session.Manager, meetings session.MeetingService, cfg *config.Config) *WebSocketServer {
	return &WebSocketServer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		bus:      bus,
		sessions: sessions,
		meetings: meetings,
		config:   cfg,
	}
}

// HandleConsultation serves one mounted consultation page. The socket's
// lifetime is the page's lifetime: the session is torn down when it closes.
func (s *WebSocketServer) HandleConsultation(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade WebSocket connection: %v", err)
		return
	}

	params := ParseConnectionParams(chi.URLParam(r, "appointment_id"), r.URL.Query())
	id := uuid.NewString()

	client := NewClient(id, conn, s.bus, s.config.WebSocket)
	client.Subscriber().SetSessionFilter(id)

	page := &pageOutlet{bus: s.bus, sessionID: id, appointmentID: params.AppointmentID}
	bridge := widget.NewBridge(page, s.config.WidgetReadyTimeout)
	ctrl := session.NewController(session.Config{
		ID:             id,
		Identity:       params.Identity,
		Domain:         s.config.VideoDomain,
		PeerLeftPolicy: session.PeerLeftPolicy(s.config.PeerLeftPolicy),
		Meetings:       s.meetings,
		Widgets:        bridge,
		Notifier:       page,
		Navigator:      page,
		OnStateChange:  page.PublishState,
	})
	if err := s.sessions.Add(ctrl); err != nil {
		log.Errorf("Failed to register session: %v", err)
		conn.Close()
		return
	}

	logger := log.WithFields(logrus.Fields{
		"session_id":     id,
		"appointment_id": params.AppointmentID,
		"role":           string(params.Identity.Role),
	})
	logger.Info("Consultation page connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		ctrl.Teardown()
		s.sessions.Remove(id)
		logger.Info("Consultation page disconnected")
	}()

	client.handler = func(msg *InboundMessage) {
		switch msg.Type {
		case MessageTypeWidgetReady:
			bridge.HandleReady(nil)
		case MessageTypeWidgetError:
			reason := msg.Error
			if reason == "" {
				reason = "unknown error"
			}
			bridge.HandleReady(errors.New(reason))
		case MessageTypeWidgetEvent:
			bridge.HandleEvent(msg.Event)
		case MessageTypeEnd:
			ctrl.EndMeeting()
		}
	}

	client.Process(func() {
		page.publish(events.TypeSessionHello, events.HelloPayload{
			Role:   string(params.Identity.Role),
			UserID: params.Identity.UserID,
			Domain: s.config.VideoDomain,
		})
		go func() {
			if err := ctrl.Initialize(ctx, params.AppointmentID); err != nil {
				logger.Warnf("Consultation did not start: %v", err)
			}
		}()
	})
}

// HandleObserver streams session state changes for one appointment
func (s *WebSocketServer) HandleObserver(w http.ResponseWriter, r *http.Request) {
	appointmentID := chi.URLParam(r, "appointment_id")
	if appointmentID == "" {
		http.Error(w, "Appointment ID is required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade WebSocket connection: %v", err)
		return
	}

	client := NewClient(uuid.NewString(), conn, s.bus, s.config.WebSocket)
	client.Subscriber().SetAppointmentFilter(appointmentID)
	client.Subscriber().SetTypeFilter([]string{events.TypeSessionState})

	log.Infof("Observer %s connected for appointment: %s", client.ID, appointmentID)

	client.Process(func() {
		for _, snap := range s.sessions.ListByAppointment(appointmentID) {
			client.Subscriber().Send(events.New(events.TypeSessionState, snap.ID, appointmentID, snap))
		}
	})

	log.Infof("Observer %s disconnected", client.ID)
}

// pageOutlet publishes a session's instructions to its page through the bus.
// It is the page side of the widget bridge and the controller's notifier
// and navigator.
type pageOutlet struct {
	bus           *events.Bus
	sessionID     string
	appointmentID string
}

func (p *pageOutlet) publish(eventType string, payload interface{}) int {
	sent := p.bus.Publish(events.New(eventType, p.sessionID, p.appointmentID, payload))
	if sent == 0 {
		log.Debugf("No subscriber for %s event of session %s", eventType, p.sessionID)
	}
	return sent
}

// Send implements widget.Outbox
func (p *pageOutlet) Send(msgType string, payload interface{}) error {
	p.publish(msgType, payload)
	return nil
}

// Notify implements session.Notifier
func (p *pageOutlet) Notify(n session.Notification) {
	p.publish(events.TypeToast, n)
}

// Navigate implements session.Navigator
func (p *pageOutlet) Navigate(route string) {
	p.publish(events.TypeNavigate, events.NavigatePayload{Route: route})
}

// PublishState announces a session transition to the page and to observers
func (p *pageOutlet) PublishState(snap session.Snapshot) {
	p.bus.Publish(events.New(events.TypeSessionState, p.sessionID, snap.AppointmentID, snap))
}

// Client represents a single WebSocket connection
type Client struct {
	ID         string
	conn       *websocket.Conn
	bus        *events.Bus
	config     config.WebSocketConfig
	subscriber *events.Subscriber
	sendChan   chan []byte
	done       chan struct{}
	handler    func(*InboundMessage) // nil for read-only sockets
}

// NewClient creates a new client
func NewClient(id string, conn *websocket.Conn, bus *events.Bus, cfg config.WebSocketConfig) *Client {
	return &Client{
		ID:         id,
		conn:       conn,
		bus:        bus,
		config:     cfg,
		subscriber: events.NewSubscriber(id, cfg.QueueSize),
		sendChan:   make(chan []byte, cfg.QueueSize),
		done:       make(chan struct{}),
	}
}

// Subscriber returns the client's bus subscription
func (c *Client) Subscriber() *events.Subscriber {
	return c.subscriber
}

// Process subscribes the client, runs onStart and forwards bus events to
// the socket until the connection closes.
func (c *Client) Process(onStart func()) {
	c.bus.Subscribe(c.subscriber)
	defer c.bus.Unsubscribe(c.ID)

	go c.writePump()
	go c.readPump()

	if onStart != nil {
		onStart()
	}

	for ev := range c.subscriber.Channel {
		data, err := json.Marshal(ev)
		if err != nil {
			log.Errorf("Error encoding %s event: %v", ev.Type, err)
			continue
		}
		select {
		case c.sendChan <- data:
		default:
			log.Warnf("Dropping %s event for client %s (send channel full)", ev.Type, c.ID)
		}
	}

	close(c.sendChan)
	<-c.done
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
		close(c.done)
	}()

	pingTicker := time.NewTicker(c.config.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case message, ok := <-c.sendChan:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Errorf("Error writing message to WebSocket: %v", err)
				return
			}

		case <-pingTicker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Errorf("Error sending ping to WebSocket: %v", err)
				return
			}
			heartbeat, err := json.Marshal(events.New(events.TypeHeartbeat, c.ID, "", nil))
			if err == nil {
				c.conn.WriteMessage(websocket.TextMessage, heartbeat)
			}
			log.Debugf("Sent ping to client %s", c.ID)
		}
	}
}

// readPump pumps messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.subscriber.Close()
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		log.Debugf("Received pong from client %s", c.ID)
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Errorf("WebSocket read error: %v", err)
			}
			break
		}
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		if c.handler == nil {
			continue
		}
		msg, err := ParseInboundMessage(data)
		if err != nil {
			log.Warnf("Client %s sent a bad message: %v", c.ID, err)
			c.bus.Publish(events.New(MessageTypeError, c.ID, "", ErrorPayload{Error: err.Error(), Code: http.StatusBadRequest}))
			continue
		}
		c.handler(msg)
	}
}
