package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Bissmella/meeting-assistant/internal/chat"
	"github.com/Bissmella/meeting-assistant/internal/transcription"
)

// Conn is the subset of *websocket.Conn the handler uses, extracted so tests
// can drive a session without a network.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	Close() error
}

// HandlerConfig contains per-session transport limits.
type HandlerConfig struct {
	MaxMessageBytes int64
	PollInterval    time.Duration
}

// Handler supervises one session's three tasks: the receive loop, the
// streamer's consumer (owned by the Streamer), and the send loop. They share
// one cancellable context; any task failing cancels the rest, and Run joins
// them all before tearing the session down.
type Handler struct {
	session     *Session
	conn        Conn
	config      HandlerConfig
	router      *Router
	mux         *Multiplexer
	streamer    *transcription.Streamer
	coordinator *chat.Coordinator
	logger      *slog.Logger
}

// NewHandler assembles a handler from the session's already-wired parts.
func NewHandler(
	sess *Session,
	conn Conn,
	config HandlerConfig,
	router *Router,
	mux *Multiplexer,
	streamer *transcription.Streamer,
	coordinator *chat.Coordinator,
	logger *slog.Logger,
) *Handler {
	if config.MaxMessageBytes <= 0 {
		config.MaxMessageBytes = 1 << 20
	}

	return &Handler{
		session:     sess,
		conn:        conn,
		config:      config,
		router:      router,
		mux:         mux,
		streamer:    streamer,
		coordinator: coordinator,
		logger:      logger,
	}
}

// Session returns the handler's session.
func (h *Handler) Session() *Session {
	return h.session
}

// Info returns a monitoring snapshot of the session.
func (h *Handler) Info() Info {
	info := Info{
		ID:            h.session.ID,
		State:         h.router.State().String(),
		CreatedAt:     h.session.CreatedAt,
		Duration:      time.Since(h.session.CreatedAt),
		TranscriptLen: len(h.streamer.Transcript()),
		Streamer:      h.streamer.GetStats(),
		Chat:          h.coordinator.GetStats(),
	}

	if meeting := h.router.Meeting(); meeting != nil {
		info.MeetingID = meeting.ID
		info.MeetingTitle = meeting.Title
	}

	return info
}

// Run drives the session until the client disconnects, the context is
// cancelled, or the session finalizes. It returns only after all session
// tasks have stopped and best-effort finalization has run.
func (h *Handler) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.conn.SetReadLimit(h.config.MaxMessageBytes)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		h.receiveLoop()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		if err := h.mux.Run(ctx); err != nil {
			h.logger.Warn("Send loop stopped",
				slog.String("session_id", h.session.ID),
				slog.String("error", err.Error()),
			)
		}
	}()

	select {
	case <-ctx.Done():
	case <-h.router.Done():
		h.writeCloseFrame()
		cancel()
	}

	// Closing the connection unblocks the receive loop's pending read, and
	// shutting the router down releases a push stuck on a full control queue
	// now that the send loop is gone.
	h.conn.Close()
	h.router.Shutdown()
	wg.Wait()

	// No-op if the client already finalized; a bare disconnect still gets
	// its audio drained and its meeting persisted.
	h.router.Finalize(CloseReasonStopped)
	h.coordinator.Close()

	h.logger.Info("Session ended",
		slog.String("session_id", h.session.ID),
		slog.Duration("duration", time.Since(h.session.CreatedAt)),
	)
}

func (h *Handler) receiveLoop() {
	for {
		_, data, err := h.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("Connection read failed",
					slog.String("session_id", h.session.ID),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		h.router.HandleMessage(data)
	}
}

func (h *Handler) writeCloseFrame() {
	code, reason := h.router.CloseStatus()
	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(code, reason)

	if err := h.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		h.logger.Debug("Failed to write close frame",
			slog.String("session_id", h.session.ID),
			slog.String("error", err.Error()),
		)
	}
}
