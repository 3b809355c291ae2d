package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/binatone-bina/health-chat-nexus/pkg/log"
	"github.com/binatone-bina/health-chat-nexus/pkg/session"
)

// HTTPServer handles REST API requests and mounts the WebSocket endpoints
type HTTPServer struct {
	sessions *session.Manager
	wsServer *WebSocketServer
	router   chi.Router
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(sessions *session.Manager, wsServer *WebSocketServer) *HTTPServer {
	server := &HTTPServer{
		sessions: sessions,
		wsServer: wsServer,
	}
	server.registerRoutes()
	return server
}

// ServeHTTP implements the http.Handler interface
func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// registerRoutes sets up the API routes
func (s *HTTPServer) registerRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Get("/{id}", s.handleGetSession)
		r.Post("/{id}/end", s.handleEndSession)
	})

	r.Get("/ws/consultation", s.wsServer.HandleConsultation)
	r.Get("/ws/consultation/{appointment_id}", s.wsServer.HandleConsultation)
	r.Get("/ws/appointments/{appointment_id}/events", s.wsServer.HandleObserver)

	s.router = r
}

// requestLogger logs each request through the package logger
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"remote":     r.RemoteAddr,
		}).Info("Handled request")
	})
}

// handleListSessions handles listing all sessions
func (s *HTTPServer) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.List())
}

// handleGetSession handles getting a single session's snapshot
func (s *HTTPServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ctrl, exists := s.sessions.Get(chi.URLParam(r, "id"))
	if !exists {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Snapshot())
}

// handleEndSession ends a session's call on behalf of an operator
func (s *HTTPServer) handleEndSession(w http.ResponseWriter, r *http.Request) {
	err := s.sessions.EndSession(chi.URLParam(r, "id"), session.ReasonAPIEnded)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	case errors.Is(err, session.ErrNotEndable):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "ending"})
}

// handleHealth returns health status
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"session_count": s.sessions.Count(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Error encoding response: %v", err)
	}
}
