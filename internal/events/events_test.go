package events

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseClient(t *testing.T) {
	audio := base64.StdEncoding.EncodeToString([]byte{0x4F, 0x67, 0x67, 0x53})

	tests := []struct {
		name     string
		input    string
		expected string // expected event type
	}{
		{
			name:     "audio append",
			input:    `{"type":"input_audio_buffer.append","audio":"` + audio + `"}`,
			expected: TypeAudioAppend,
		},
		{
			name:     "recording start",
			input:    `{"type":"input_audio_buffer.start","meeting":{"id":"m1","title":"Standup","participants":["A","B"]}}`,
			expected: TypeRecordingStart,
		},
		{
			name:     "recording finalize",
			input:    `{"type":"input_audio_buffer.finalize"}`,
			expected: TypeRecordingFinalize,
		},
		{
			name:     "recording stopped",
			input:    `{"type":"recording_stopped"}`,
			expected: TypeRecordingStopped,
		},
		{
			name:     "session update",
			input:    `{"type":"session.update","session":{"instructions":"be brief","language":"en"}}`,
			expected: TypeSessionUpdate,
		},
		{
			name:     "user chat query",
			input:    `{"type":"input_user_chat_query","query":"what was decided?"}`,
			expected: TypeUserChatQuery,
		},
		{
			name:     "debug outputs",
			input:    `{"type":"debug.additional_outputs"}`,
			expected: TypeDebugOutputs,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseClient([]byte(tt.input))
			if err != nil {
				t.Fatalf("ParseClient failed: %v", err)
			}
			if ev.EventType() != tt.expected {
				t.Errorf("Expected event type %q, got %q", tt.expected, ev.EventType())
			}
		})
	}
}

func TestParseClientPayloads(t *testing.T) {
	t.Run("audio is base64 decoded", func(t *testing.T) {
		raw := []byte{0x01, 0x02, 0x03, 0xFF}
		input := `{"type":"input_audio_buffer.append","audio":"` + base64.StdEncoding.EncodeToString(raw) + `"}`

		ev, err := ParseClient([]byte(input))
		if err != nil {
			t.Fatalf("ParseClient failed: %v", err)
		}

		appendEv, ok := ev.(AudioAppend)
		if !ok {
			t.Fatalf("Expected AudioAppend, got %T", ev)
		}
		if !bytes.Equal(appendEv.Audio, raw) {
			t.Errorf("Audio mismatch: got %v, expected %v", appendEv.Audio, raw)
		}
	})

	t.Run("meeting fields carried through", func(t *testing.T) {
		input := `{"type":"input_audio_buffer.start","meeting":{"id":"m1","title":"Standup","participants":["A"]}}`

		ev, err := ParseClient([]byte(input))
		if err != nil {
			t.Fatalf("ParseClient failed: %v", err)
		}

		startEv, ok := ev.(RecordingStart)
		if !ok {
			t.Fatalf("Expected RecordingStart, got %T", ev)
		}
		if startEv.Meeting.ID != "m1" || startEv.Meeting.Title != "Standup" {
			t.Errorf("Meeting mismatch: %+v", startEv.Meeting)
		}
		if len(startEv.Meeting.Participants) != 1 || startEv.Meeting.Participants[0] != "A" {
			t.Errorf("Participants mismatch: %v", startEv.Meeting.Participants)
		}
	})
}

func TestParseClientValidation(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		detail string // substring expected in the validation details
	}{
		{
			name:   "malformed JSON",
			input:  `{not json`,
			detail: "",
		},
		{
			name:   "missing type",
			input:  `{"audio":"aGk="}`,
			detail: "type: required",
		},
		{
			name:   "audio append without audio",
			input:  `{"type":"input_audio_buffer.append"}`,
			detail: "audio: required",
		},
		{
			name:   "audio append with invalid base64",
			input:  `{"type":"input_audio_buffer.append","audio":"not-base64!!!"}`,
			detail: "audio: invalid base64",
		},
		{
			name:   "recording start without meeting",
			input:  `{"type":"input_audio_buffer.start"}`,
			detail: "meeting: required",
		},
		{
			name:   "recording start missing id and title",
			input:  `{"type":"input_audio_buffer.start","meeting":{"participants":[]}}`,
			detail: "meeting.id: required",
		},
		{
			name:   "session update without session",
			input:  `{"type":"session.update"}`,
			detail: "session: required",
		},
		{
			name:   "query without text",
			input:  `{"type":"input_user_chat_query"}`,
			detail: "query: required",
		},
		{
			name:   "query with empty text",
			input:  `{"type":"input_user_chat_query","query":""}`,
			detail: "query: required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseClient([]byte(tt.input))
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected *ValidationError, got %T", err)
			}

			if tt.detail != "" && !strings.Contains(strings.Join(verr.Details, "; "), tt.detail) {
				t.Errorf("Expected detail containing %q, got %v", tt.detail, verr.Details)
			}
		})
	}
}

func TestParseClientUnknownType(t *testing.T) {
	_, err := ParseClient([]byte(`{"type":"response.create"}`))
	if err == nil {
		t.Fatal("Expected error for unknown type")
	}

	var unknown *ErrUnknownType
	if !errors.As(err, &unknown) {
		t.Fatalf("Expected *ErrUnknownType, got %T", err)
	}
	if unknown.Type != "response.create" {
		t.Errorf("Expected type %q, got %q", "response.create", unknown.Type)
	}
}

func TestServerEventSerialization(t *testing.T) {
	tests := []struct {
		name     string
		event    ServerEvent
		expected map[string]interface{}
	}{
		{
			name:  "invalid request error",
			event: NewInvalidRequestError("invalid message", []string{"audio: required"}),
			expected: map[string]interface{}{
				"type": "error",
			},
		},
		{
			name:  "session updated",
			event: NewSessionUpdated(SessionConfig{Language: "en"}),
			expected: map[string]interface{}{
				"type": "session.updated",
			},
		},
		{
			name:  "response text delta",
			event: NewResponseTextDelta("hello"),
			expected: map[string]interface{}{
				"type":  "response.text.delta",
				"delta": "hello",
			},
		},
		{
			name:  "response text done",
			event: NewResponseTextDone(),
			expected: map[string]interface{}{
				"type": "response.text.done",
			},
		},
		{
			name:  "transcript delta",
			event: NewTranscriptDelta("some words"),
			expected: map[string]interface{}{
				"type":  "transcript.delta",
				"delta": "some words",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}

			var decoded map[string]interface{}
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}

			for key, expected := range tt.expected {
				if decoded[key] != expected {
					t.Errorf("Field %q: expected %v, got %v", key, expected, decoded[key])
				}
			}

			if decoded["type"] != tt.event.EventType() {
				t.Errorf("Serialized type %v does not match EventType() %q", decoded["type"], tt.event.EventType())
			}
		})
	}
}

func TestErrorEventDetails(t *testing.T) {
	ev := NewInvalidRequestError("invalid message", []string{"audio: required", "type: required"})

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded struct {
		Type  string `json:"type"`
		Error struct {
			Type    string   `json:"type"`
			Message string   `json:"message"`
			Details []string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.Error.Type != "invalid_request_error" {
		t.Errorf("Expected error type invalid_request_error, got %q", decoded.Error.Type)
	}
	if decoded.Error.Message != "invalid message" {
		t.Errorf("Expected message %q, got %q", "invalid message", decoded.Error.Message)
	}
	if len(decoded.Error.Details) != 2 {
		t.Errorf("Expected 2 details, got %d", len(decoded.Error.Details))
	}
}
