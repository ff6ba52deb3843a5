package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Bissmella/meeting-assistant/internal/chat"
	"github.com/Bissmella/meeting-assistant/internal/events"
	"github.com/Bissmella/meeting-assistant/internal/memory"
	"github.com/Bissmella/meeting-assistant/internal/transcription"
)

// Close reasons sent with the normal-closure frame.
const (
	CloseReasonFinalized = "Meeting finalized"
	CloseReasonStopped   = "Recording stopped"
)

// MetricsRecorder is the slice of the metrics surface the session layer
// records to. Satisfied by *metrics.Metrics; nil disables recording.
type MetricsRecorder interface {
	RecordEventReceived(eventType string)
	RecordEventError()
	RecordChatQuery()
	RecordChatQueryFailure()
	RecordChatDelta()
	RecordMeetingStored()
}

// Router drives the session state machine: idle until a recording starts,
// routing audio while recording, finalizing exactly once. One malformed
// message never terminates the session; it yields an error event and the
// state is unchanged.
type Router struct {
	session     *Session
	streamer    *transcription.Streamer
	coordinator *chat.Coordinator
	store       memory.Store
	recorder    *Recorder
	metrics     MetricsRecorder
	logger      *slog.Logger

	control  chan events.ServerEvent
	done     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once

	mu        sync.Mutex
	state     State
	meeting   *memory.Meeting
	closeCode int
	closeText string
}

// NewRouter creates a router for one session. recorder and metrics may be
// nil.
func NewRouter(
	sess *Session,
	streamer *transcription.Streamer,
	coordinator *chat.Coordinator,
	store memory.Store,
	recorder *Recorder,
	metrics MetricsRecorder,
	logger *slog.Logger,
) *Router {
	return &Router{
		session:     sess,
		streamer:    streamer,
		coordinator: coordinator,
		store:       store,
		recorder:    recorder,
		metrics:     metrics,
		logger:      logger,
		control:     make(chan events.ServerEvent, 64),
		done:        make(chan struct{}),
		stop:        make(chan struct{}),
		state:       StateIdle,
	}
}

// Control is the queue of control and error events, drained by the
// multiplexer ahead of all other output.
func (r *Router) Control() <-chan events.ServerEvent {
	return r.control
}

// Done is closed once the session has finalized and wants the connection
// closed.
func (r *Router) Done() <-chan struct{} {
	return r.done
}

// CloseStatus returns the close code and reason set at finalization.
func (r *Router) CloseStatus() (int, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeCode, r.closeText
}

// State returns the current lifecycle state.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Meeting returns the current meeting, nil until a recording has started.
func (r *Router) Meeting() *memory.Meeting {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.meeting
}

// HandleMessage parses and routes one inbound message. Called only from the
// session's receive loop.
func (r *Router) HandleMessage(data []byte) {
	ev, err := events.ParseClient(data)
	if err != nil {
		r.handleParseError(err)
		return
	}

	if r.metrics != nil {
		r.metrics.RecordEventReceived(ev.EventType())
	}

	switch ev := ev.(type) {
	case events.AudioAppend:
		r.handleAudio(ev)

	case events.RecordingStart:
		r.handleStart(ev)

	case events.RecordingFinalize:
		r.Finalize(CloseReasonFinalized)

	case events.RecordingStopped:
		r.Finalize(CloseReasonStopped)

	case events.SessionUpdate:
		r.handleSessionUpdate(ev)

	case events.UserChatQuery:
		r.handleQuery(ev)

	case events.DebugOutputs:
		r.logger.Debug("Ignoring debug event", slog.String("session_id", r.session.ID))

	default:
		r.logger.Warn("Unhandled client event",
			slog.String("session_id", r.session.ID),
			slog.String("event_type", ev.EventType()),
		)
	}
}

func (r *Router) handleParseError(err error) {
	var unknown *events.ErrUnknownType
	if errors.As(err, &unknown) {
		// Unknown types are forward-compatibility room, not client bugs.
		r.logger.Warn("Ignoring unknown client event type",
			slog.String("session_id", r.session.ID),
			slog.String("event_type", unknown.Type),
		)
		return
	}

	if r.metrics != nil {
		r.metrics.RecordEventError()
	}

	var invalid *events.ValidationError
	if errors.As(err, &invalid) {
		r.logger.Warn("Rejected malformed client message",
			slog.String("session_id", r.session.ID),
			slog.String("reason", invalid.Message),
		)
		r.pushControl(events.NewInvalidRequestError(invalid.Message, invalid.Details))
		return
	}

	r.pushControl(events.NewInvalidRequestError(err.Error(), nil))
}

func (r *Router) handleAudio(ev events.AudioAppend) {
	r.mu.Lock()
	state := r.state
	r.mu.Unlock()

	// Audio outside a recording is a replay artifact of reconnecting
	// clients, dropped without an error.
	if state != StateRecording {
		r.logger.Debug("Discarding audio outside recording",
			slog.String("session_id", r.session.ID),
			slog.String("state", state.String()),
			slog.Int("bytes", len(ev.Audio)),
		)
		return
	}

	r.streamer.SubmitPacket(ev.Audio)
}

func (r *Router) handleStart(ev events.RecordingStart) {
	r.mu.Lock()
	if r.state != StateIdle {
		state := r.state
		r.mu.Unlock()

		r.logger.Warn("Recording start rejected",
			slog.String("session_id", r.session.ID),
			slog.String("state", state.String()),
		)
		r.pushControl(events.NewInvalidRequestError(
			"recording already started", []string{"state: " + state.String()}))
		return
	}

	meeting := memory.NewMeeting(ev.Meeting.ID, ev.Meeting.Title, ev.Meeting.Participants)
	r.meeting = meeting
	r.state = StateRecording
	r.mu.Unlock()

	r.logger.Info("Recording started",
		slog.String("session_id", r.session.ID),
		slog.String("meeting_id", meeting.ID),
		slog.String("title", meeting.Title),
		slog.Int("participants", len(meeting.Participants)),
	)
}

func (r *Router) handleSessionUpdate(ev events.SessionUpdate) {
	r.coordinator.SetInstructions(ev.Session.Instructions)
	r.pushControl(events.NewSessionUpdated(ev.Session))

	r.logger.Info("Session configuration updated",
		slog.String("session_id", r.session.ID),
		slog.String("language", ev.Session.Language),
	)
}

func (r *Router) handleQuery(ev events.UserChatQuery) {
	if err := r.coordinator.SubmitQuery(ev.Query); err != nil {
		if r.metrics != nil {
			r.metrics.RecordChatQueryFailure()
		}
		r.logger.Warn("Chat query rejected",
			slog.String("session_id", r.session.ID),
			slog.String("error", err.Error()),
		)
		r.pushControl(events.NewServerError("query rejected: " + err.Error()))
		return
	}

	if r.metrics != nil {
		r.metrics.RecordChatQuery()
	}
}

// Finalize drains the streamer, persists the meeting, and moves the session
// to closed. Idempotent: concurrent finalize and stop signals collapse into
// one finalization; only the first caller's reason is used.
func (r *Router) Finalize(reason string) {
	r.mu.Lock()
	if r.state == StateFinalizing || r.state == StateClosed {
		r.mu.Unlock()
		return
	}
	r.state = StateFinalizing
	meeting := r.meeting
	r.mu.Unlock()

	r.logger.Info("Finalizing session",
		slog.String("session_id", r.session.ID),
		slog.String("reason", reason),
	)

	// The drain must complete before the transcript is read: everything
	// submitted before this point is either flushed or explicitly dropped.
	r.streamer.Finalize()
	transcript := r.streamer.Transcript()

	if meeting != nil {
		meeting.Transcript = transcript

		if err := r.store.AddMeeting(meeting); err != nil {
			r.logger.Error("Failed to store meeting",
				slog.String("session_id", r.session.ID),
				slog.String("meeting_id", meeting.ID),
				slog.String("error", err.Error()),
			)
		} else {
			if r.metrics != nil {
				r.metrics.RecordMeetingStored()
			}
			r.logger.Info("Meeting stored",
				slog.String("meeting_id", meeting.ID),
				slog.String("title", meeting.Title),
				slog.Int("transcript_length", len(transcript)),
			)
		}

		if r.recorder != nil {
			if err := r.recorder.Flush(meeting.ID, transcript); err != nil {
				r.logger.Error("Failed to write recording",
					slog.String("meeting_id", meeting.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	r.mu.Lock()
	r.state = StateClosed
	r.closeCode = websocket.CloseNormalClosure
	r.closeText = reason
	r.mu.Unlock()

	close(r.done)
}

// Shutdown releases any HandleMessage call blocked on a full control queue.
// Called when the multiplexer is no longer draining, so the receive loop can
// unwind. Safe to call more than once.
func (r *Router) Shutdown() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// pushControl queues a control event. Control events are never dropped
// before the send attempt; if the queue is somehow full the push blocks
// until the multiplexer drains it, the session finalizes, or the router is
// shut down.
func (r *Router) pushControl(ev events.ServerEvent) {
	select {
	case r.control <- ev:
	case <-r.done:
	case <-r.stop:
	}
}
