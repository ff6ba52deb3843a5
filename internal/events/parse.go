package events

import (
	"encoding/base64"
	"encoding/json"
)

// rawClientEvent is the envelope every inbound message is first decoded into.
type rawClientEvent struct {
	Type    string         `json:"type"`
	Audio   *string        `json:"audio"`
	Meeting *MeetingInfo   `json:"meeting"`
	Session *SessionConfig `json:"session"`
	Query   *string        `json:"query"`
}

// ParseClient decodes and validates a single inbound message.
//
// Malformed JSON and shape violations return *ValidationError; a well-formed
// message with an unrecognized type returns *ErrUnknownType. Both leave the
// session usable.
func ParseClient(data []byte) (ClientEvent, error) {
	var raw rawClientEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ValidationError{
			Message: "invalid JSON",
			Details: []string{err.Error()},
		}
	}

	if raw.Type == "" {
		return nil, &ValidationError{
			Message: "invalid message",
			Details: []string{"type: required"},
		}
	}

	switch raw.Type {
	case TypeAudioAppend:
		return parseAudioAppend(&raw)

	case TypeRecordingStart:
		return parseRecordingStart(&raw)

	case TypeRecordingFinalize:
		return RecordingFinalize{}, nil

	case TypeRecordingStopped:
		return RecordingStopped{}, nil

	case TypeSessionUpdate:
		if raw.Session == nil {
			return nil, &ValidationError{
				Message: "invalid message",
				Details: []string{"session: required"},
			}
		}
		return SessionUpdate{Session: *raw.Session}, nil

	case TypeUserChatQuery:
		if raw.Query == nil || *raw.Query == "" {
			return nil, &ValidationError{
				Message: "invalid message",
				Details: []string{"query: required"},
			}
		}
		return UserChatQuery{Query: *raw.Query}, nil

	case TypeDebugOutputs:
		return DebugOutputs{}, nil

	default:
		return nil, &ErrUnknownType{Type: raw.Type}
	}
}

func parseAudioAppend(raw *rawClientEvent) (ClientEvent, error) {
	if raw.Audio == nil || *raw.Audio == "" {
		return nil, &ValidationError{
			Message: "invalid message",
			Details: []string{"audio: required"},
		}
	}

	packet, err := base64.StdEncoding.DecodeString(*raw.Audio)
	if err != nil {
		return nil, &ValidationError{
			Message: "invalid message",
			Details: []string{"audio: invalid base64: " + err.Error()},
		}
	}

	return AudioAppend{Audio: packet}, nil
}

func parseRecordingStart(raw *rawClientEvent) (ClientEvent, error) {
	if raw.Meeting == nil {
		return nil, &ValidationError{
			Message: "invalid message",
			Details: []string{"meeting: required"},
		}
	}

	var details []string
	if raw.Meeting.ID == "" {
		details = append(details, "meeting.id: required")
	}
	if raw.Meeting.Title == "" {
		details = append(details, "meeting.title: required")
	}
	if len(details) > 0 {
		return nil, &ValidationError{Message: "invalid message", Details: details}
	}

	return RecordingStart{Meeting: *raw.Meeting}, nil
}
