package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Bissmella/meeting-assistant/internal/chat"
	"github.com/Bissmella/meeting-assistant/internal/config"
	"github.com/Bissmella/meeting-assistant/internal/memory"
	"github.com/Bissmella/meeting-assistant/internal/metrics"
	"github.com/Bissmella/meeting-assistant/internal/session"
	"github.com/Bissmella/meeting-assistant/internal/transcription"
)

// Server hosts the realtime WebSocket endpoint and the monitoring/query HTTP
// API on one listener.
type Server struct {
	server      *http.Server
	upgrader    websocket.Upgrader
	logger      *slog.Logger
	config      *config.Config
	metrics     *metrics.Metrics
	store       memory.Store
	transcriber transcription.Backend
	chatBackend chat.Responder
	registry    *session.Registry

	ctx       context.Context
	cancel    context.CancelFunc
	sessionWG sync.WaitGroup
	healthy   atomic.Bool
	startTime time.Time
}

// NewServer creates the combined WebSocket + HTTP API server.
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	m *metrics.Metrics,
	store memory.Store,
	transcriber transcription.Backend,
	chatBackend chat.Responder,
) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			Subprotocols:    []string{realtimeSubprotocol},
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:      logger,
		config:      cfg,
		metrics:     m,
		store:       store,
		transcriber: transcriber,
		chatBackend: chatBackend,
		registry:    session.NewRegistry(m, logger),
		ctx:         ctx,
		cancel:      cancel,
		startTime:   time.Now(),
	}
	s.healthy.Store(true)

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  0, // WebSocket sessions are long-lived
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// setupRoutes configures HTTP API routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Realtime WebSocket endpoint (no metrics wrapper: hijacked connection)
	mux.HandleFunc("/v1/realtime", s.handleRealtime)

	// Health check endpoint
	mux.HandleFunc("/health", s.withMetrics("/health", s.handleHealth))

	// Session monitoring endpoints
	mux.HandleFunc("/sessions", s.withMetrics("/sessions", s.handleSessions))
	mux.HandleFunc("/sessions/", s.withMetrics("/sessions/{id}", s.handleSessionDetail))

	// Meeting notes and one-shot queries
	mux.HandleFunc("/api/notes", s.withMetrics("/api/notes", s.handleNotes))
	mux.HandleFunc("/api/query", s.withMetrics("/api/query", s.handleQuery))

	// Configuration endpoint
	mux.HandleFunc("/config", s.withMetrics("/config", s.handleConfig))

	// Statistics endpoint
	mux.HandleFunc("/stats", s.withMetrics("/stats", s.handleStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", s.withMetrics("/", s.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (s *Server) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		// Call the original handler
		handler(ww, r)

		// Record metrics
		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		s.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		// Record error if status code indicates an error
		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			s.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the server
func (s *Server) Start() error {
	s.logger.Info("Starting server",
		slog.String("address", s.server.Addr),
	)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the server: new sessions are rejected, live sessions
// are cancelled and joined, then the listener shuts down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping server...")

	s.healthy.Store(false)
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.sessionWG.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("Timed out waiting for sessions to end",
			slog.Int("remaining", s.registry.Count()),
		)
	}

	return s.server.Shutdown(ctx)
}

// Registry exposes the session registry, used by tests and monitoring.
func (s *Server) Registry() *session.Registry {
	return s.registry
}

// handleHealth implements the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := "healthy"
	code := http.StatusOK
	if !s.healthy.Load() {
		status = "shutting_down"
		code = http.StatusServiceUnavailable
	}

	health := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startTime).String(),
		"service": map[string]interface{}{
			"name":    "meeting-assistant",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"sessions": map[string]interface{}{
				"active": s.registry.Count(),
			},
			"memory": map[string]interface{}{
				"meetings": len(s.store.Meetings()),
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(health)
}

// handleSessions implements the /sessions endpoint
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	infos := s.registry.Infos()

	response := map[string]interface{}{
		"total_sessions": len(infos),
		"timestamp":      time.Now().UTC(),
		"sessions":       infos,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleSessionDetail implements the /sessions/{id} endpoint
func (s *Server) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Path[len("/sessions/"):]
	if id == "" {
		http.Error(w, "Session ID required", http.StatusBadRequest)
		return
	}

	handler, ok := s.registry.Get(id)
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handler.Info())
}

// handleNotes implements the /api/notes endpoint: all stored meetings.
func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	meetings := s.store.Meetings()

	response := map[string]interface{}{
		"total_meetings": len(meetings),
		"timestamp":      time.Now().UTC(),
		"meetings":       meetings,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleQuery implements the POST /api/query endpoint: a one-shot grounded
// answer outside any WebSocket session.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	answer, err := chat.Answer(r.Context(), s.chatBackend, s.store, req.Query, s.config.Chat.RetrievalK)
	if err != nil {
		s.logger.Error("One-shot query failed", slog.String("error", err.Error()))
		http.Error(w, "Chat backend error", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"query":     req.Query,
		"answer":    answer,
		"timestamp": time.Now().UTC(),
	})
}

// handleConfig implements the /config endpoint
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"server": map[string]interface{}{
			"port":              s.config.Server.Port,
			"bind_address":      s.config.Server.BindAddress,
			"max_message_bytes": s.config.Server.MaxMessageBytes,
			"poll_interval_ms":  s.config.Server.PollIntervalMs,
		},
		"audio": map[string]interface{}{
			"sample_rate":   s.config.Audio.SampleRate,
			"batch_samples": s.config.Audio.BatchSamples,
			"idle_flush":    s.config.Audio.IdleFlush,
			"submit_queue":  s.config.Audio.SubmitQueue,
		},
		"transcription": map[string]interface{}{
			"endpoint":       s.config.Transcription.Endpoint,
			"timeout":        s.config.Transcription.Timeout,
			"max_concurrent": s.config.Transcription.MaxConcurrent,
			"language":       s.config.Transcription.Language,
			// Note: API key is intentionally omitted for security
		},
		"chat": map[string]interface{}{
			"base_url":    s.config.Chat.BaseURL,
			"model":       s.config.Chat.Model,
			"timeout":     s.config.Chat.Timeout,
			"retrieval_k": s.config.Chat.RetrievalK,
		},
		"recording": map[string]interface{}{
			"enabled":   s.config.Recording.Enabled,
			"directory": s.config.Recording.Directory,
		},
		"logging": map[string]interface{}{
			"level":  s.config.Logging.Level,
			"format": s.config.Logging.Format,
			"output": s.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]interface{}{
		"uptime":    time.Since(s.startTime).String(),
		"timestamp": time.Now().UTC(),
		"sessions": map[string]interface{}{
			"active": s.registry.Count(),
		},
		"memory": map[string]interface{}{
			"meetings": len(s.store.Meetings()),
		},
	}

	if client, ok := s.transcriber.(*transcription.Client); ok {
		stats["transcription"] = client.GetStats()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Meeting Assistant Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /v1/realtime":    "Realtime WebSocket session (subprotocol: realtime)",
			"GET /":               "API documentation",
			"GET /health":         "Service health check",
			"GET /sessions":       "List all active sessions",
			"GET /sessions/{id}":  "Get detailed session information",
			"GET /api/notes":      "List stored meetings",
			"POST /api/query":     "One-shot grounded query over stored meetings",
			"GET /config":         "Get service configuration",
			"GET /stats":          "Get service statistics",
			"GET /metrics":        "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
