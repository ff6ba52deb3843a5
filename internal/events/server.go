package events

// ServerEvent is the closed set of outbound messages. Each concrete type
// serializes to a single JSON object carrying its "type" discriminator.
type ServerEvent interface {
	EventType() string
}

// ErrorDetails is the payload of an error event.
type ErrorDetails struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// Error reports a protocol or backend failure scoped to the session.
type Error struct {
	Type  string       `json:"type"`
	Error ErrorDetails `json:"error"`
}

func (Error) EventType() string { return TypeError }

// NewInvalidRequestError builds the error event for a rejected inbound
// message.
func NewInvalidRequestError(message string, details []string) Error {
	return Error{
		Type: TypeError,
		Error: ErrorDetails{
			Type:    "invalid_request_error",
			Message: message,
			Details: details,
		},
	}
}

// NewServerError builds the error event for an internal failure the client
// should know about.
func NewServerError(message string) Error {
	return Error{
		Type: TypeError,
		Error: ErrorDetails{
			Type:    "server_error",
			Message: message,
		},
	}
}

// SessionUpdated acknowledges a session.update by echoing the configuration.
type SessionUpdated struct {
	Type    string        `json:"type"`
	Session SessionConfig `json:"session"`
}

func (SessionUpdated) EventType() string { return TypeSessionUpdated }

// NewSessionUpdated builds a session.updated acknowledgement.
func NewSessionUpdated(session SessionConfig) SessionUpdated {
	return SessionUpdated{Type: TypeSessionUpdated, Session: session}
}

// ResponseTextDelta carries one incremental fragment of a streamed answer.
type ResponseTextDelta struct {
	Type  string `json:"type"`
	Delta string `json:"delta"`
}

func (ResponseTextDelta) EventType() string { return TypeResponseTextDelta }

// NewResponseTextDelta builds a response.text.delta event.
func NewResponseTextDelta(delta string) ResponseTextDelta {
	return ResponseTextDelta{Type: TypeResponseTextDelta, Delta: delta}
}

// ResponseTextDone terminates one logical streamed answer. Exactly one is
// emitted per query.
type ResponseTextDone struct {
	Type string `json:"type"`
}

func (ResponseTextDone) EventType() string { return TypeResponseTextDone }

// NewResponseTextDone builds a response.text.done event.
func NewResponseTextDone() ResponseTextDone {
	return ResponseTextDone{Type: TypeResponseTextDone}
}

// TranscriptDelta carries one freshly transcribed fragment of the live
// transcript.
type TranscriptDelta struct {
	Type  string `json:"type"`
	Delta string `json:"delta"`
}

func (TranscriptDelta) EventType() string { return TypeTranscriptDelta }

// NewTranscriptDelta builds a transcript.delta event.
func NewTranscriptDelta(delta string) TranscriptDelta {
	return TranscriptDelta{Type: TypeTranscriptDelta, Delta: delta}
}
