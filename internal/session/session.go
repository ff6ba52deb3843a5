package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/Bissmella/meeting-assistant/internal/chat"
	"github.com/Bissmella/meeting-assistant/internal/transcription"
)

// State is the lifecycle state of a session.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateFinalizing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session identifies one client connection. Owned exclusively by its
// connection handler; the router tracks its lifecycle state and meeting.
type Session struct {
	ID        string
	CreatedAt time.Time
}

// NewSession creates a session with a fresh identifier.
func NewSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}
}

// Info represents session information for monitoring and APIs.
type Info struct {
	ID            string        `json:"id"`
	State         string        `json:"state"`
	CreatedAt     time.Time     `json:"created_at"`
	Duration      time.Duration `json:"duration"`
	MeetingID     string        `json:"meeting_id,omitempty"`
	MeetingTitle  string        `json:"meeting_title,omitempty"`
	TranscriptLen int           `json:"transcript_length"`

	Streamer transcription.StreamerStats `json:"streamer"`
	Chat     chat.CoordinatorStats       `json:"chat"`
}
