package session

import (
	"log/slog"
	"sync"
	"time"
)

// SessionMetrics receives session lifecycle observations. Satisfied by
// *metrics.Metrics; nil disables recording.
type SessionMetrics interface {
	RecordSessionCreated()
	RecordSessionClosed(durationSeconds float64)
}

// Registry tracks live sessions for the monitoring endpoints.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]*Handler
	metrics  SessionMetrics
	logger   *slog.Logger
}

// NewRegistry creates an empty registry. metrics may be nil.
func NewRegistry(metrics SessionMetrics, logger *slog.Logger) *Registry {
	return &Registry{
		handlers: make(map[string]*Handler),
		metrics:  metrics,
		logger:   logger,
	}
}

// Add registers a session handler.
func (r *Registry) Add(h *Handler) {
	r.mu.Lock()
	r.handlers[h.Session().ID] = h
	count := len(r.handlers)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RecordSessionCreated()
	}

	r.logger.Info("Session registered",
		slog.String("session_id", h.Session().ID),
		slog.Int("active_sessions", count),
	)
}

// Remove unregisters a session handler.
func (r *Registry) Remove(h *Handler) {
	r.mu.Lock()
	delete(r.handlers, h.Session().ID)
	count := len(r.handlers)
	r.mu.Unlock()

	duration := time.Since(h.Session().CreatedAt)
	if r.metrics != nil {
		r.metrics.RecordSessionClosed(duration.Seconds())
	}

	r.logger.Info("Session unregistered",
		slog.String("session_id", h.Session().ID),
		slog.Duration("duration", duration),
		slog.Int("active_sessions", count),
	)
}

// Get returns the handler for a session ID.
func (r *Registry) Get(id string) (*Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[id]
	return h, ok
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Infos returns monitoring snapshots of all live sessions.
func (r *Registry) Infos() []Info {
	r.mu.RLock()
	handlers := make([]*Handler, 0, len(r.handlers))
	for _, h := range r.handlers {
		handlers = append(handlers, h)
	}
	r.mu.RUnlock()

	infos := make([]Info, 0, len(handlers))
	for _, h := range handlers {
		infos = append(infos, h.Info())
	}
	return infos
}
