package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/atlastlabs/yatra/pkg/agent"
	"github.com/atlastlabs/yatra/pkg/session"
	"github.com/atlastlabs/yatra/pkg/store"
)

var chatRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "yatra_chat_requests_total",
		Help: "Total number of chat requests by outcome",
	},
	[]string{"status"},
)

// emptyMessageReply is returned verbatim for empty or whitespace-only input.
const emptyMessageReply = "Please type something."

// HTTPServer exposes the chat API: greeting, chat, history, health and
// metrics. The route layer stays thin; all pipeline behavior lives in the
// agent, session and store packages.
type HTTPServer struct {
	sessions *session.Manager
	records  store.Store
	logger   *logrus.Logger
	port     int
	srv      *http.Server
}

// NewHTTPServer creates the HTTP server.
func NewHTTPServer(sessions *session.Manager, records store.Store, logger *logrus.Logger, port int) *HTTPServer {
	return &HTTPServer{
		sessions: sessions,
		records:  records,
		logger:   logger,
		port:     port,
	}
}

// Handler returns the route multiplexer, exported so tests can drive it with
// httptest.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleGreet)
	mux.HandleFunc("/greet", s.handleGreet)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// Start starts the HTTP server and blocks until it exits.
func (s *HTTPServer) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.WithFields(logrus.Fields{
		"port": s.port,
	}).Info("Starting HTTP server")

	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	return s.srv.ListenAndServe()
}

// Shutdown stops the server gracefully, waiting for in-flight requests up to
// the context deadline.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// chatRequest is the POST /chat payload.
type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// chatResponse is the POST /chat reply.
type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id,omitempty"`
}

// handleGreet serves the fixed greeting on / and /greet.
func (s *HTTPServer) handleGreet(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/greet" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": agent.Greeting})
}

// handleChat runs one message through the reply pipeline.
func (s *HTTPServer) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		setCORS(w)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		chatRequestsTotal.WithLabelValues("bad_request").Inc()
		writeJSON(w, http.StatusBadRequest, chatResponse{Response: emptyMessageReply})
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		chatRequestsTotal.WithLabelValues("empty").Inc()
		writeJSON(w, http.StatusBadRequest, chatResponse{Response: emptyMessageReply})
		return
	}

	assistant, sessionID := s.sessions.Get(req.SessionID)

	startTime := time.Now()
	reply := assistant.Handle(r.Context(), message)

	s.logger.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Info("Chat exchange completed")

	// Persistence is best-effort; a failed write never affects the reply.
	if err := s.records.Record(r.Context(), message, reply); err != nil {
		s.logger.WithError(err).Warn("Failed to persist exchange")
	}

	chatRequestsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, chatResponse{Response: reply, SessionID: sessionID})
}

// handleHistory returns all persisted exchanges, most recent first.
func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := s.records.AllRecords(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch history")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// handleHealth provides a health check endpoint.
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// writeJSON writes v as a JSON response with permissive CORS headers.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	setCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}
