package events

import (
	"fmt"
	"strings"
)

// Client event type discriminators
const (
	TypeAudioAppend       = "input_audio_buffer.append"
	TypeRecordingStart    = "input_audio_buffer.start"
	TypeRecordingFinalize = "input_audio_buffer.finalize"
	TypeRecordingStopped  = "recording_stopped"
	TypeSessionUpdate     = "session.update"
	TypeUserChatQuery     = "input_user_chat_query"
	TypeDebugOutputs      = "debug.additional_outputs"
)

// Server event type discriminators
const (
	TypeError             = "error"
	TypeSessionUpdated    = "session.updated"
	TypeResponseTextDelta = "response.text.delta"
	TypeResponseTextDone  = "response.text.done"
	TypeTranscriptDelta   = "transcript.delta"
)

// ClientEvent is the closed set of inbound messages. Exactly one of the
// concrete types below implements it.
type ClientEvent interface {
	EventType() string
}

// MeetingInfo carries the client-supplied meeting identity for a recording.
type MeetingInfo struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Participants []string `json:"participants"`
}

// SessionConfig is the client-adjustable session configuration echoed back
// verbatim in session.updated.
type SessionConfig struct {
	Instructions string `json:"instructions,omitempty"`
	Language     string `json:"language,omitempty"`
}

// AudioAppend carries one base64-encoded compressed audio packet.
type AudioAppend struct {
	Audio []byte // decoded from base64
}

func (AudioAppend) EventType() string { return TypeAudioAppend }

// RecordingStart opens a meeting for the session.
type RecordingStart struct {
	Meeting MeetingInfo
}

func (RecordingStart) EventType() string { return TypeRecordingStart }

// RecordingFinalize requests a drain-and-persist of the open meeting.
type RecordingFinalize struct{}

func (RecordingFinalize) EventType() string { return TypeRecordingFinalize }

// RecordingStopped signals the client stopped recording without waiting for
// the finalize acknowledgement.
type RecordingStopped struct{}

func (RecordingStopped) EventType() string { return TypeRecordingStopped }

// SessionUpdate carries new session configuration.
type SessionUpdate struct {
	Session SessionConfig
}

func (SessionUpdate) EventType() string { return TypeSessionUpdate }

// UserChatQuery carries one user chat query to be answered over the session.
type UserChatQuery struct {
	Query string
}

func (UserChatQuery) EventType() string { return TypeUserChatQuery }

// DebugOutputs is a verbose client-side debugging message. It is accepted and
// discarded.
type DebugOutputs struct{}

func (DebugOutputs) EventType() string { return TypeDebugOutputs }

// ValidationError reports a structurally invalid inbound message. It carries
// machine-readable details suitable for an invalid_request_error event.
type ValidationError struct {
	Message string
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Details, "; "))
}

// ErrUnknownType marks a message whose type discriminator is not part of the
// protocol. Unknown types are logged and ignored, never errored.
type ErrUnknownType struct {
	Type string
}

func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown event type %q", e.Type)
}
