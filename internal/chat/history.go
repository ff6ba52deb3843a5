package chat

import "strings"

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultInstructions is the system prompt used until a session overrides it.
const DefaultInstructions = "You are a concise AI Meeting Assistant. " +
	"Use ONLY the 'Retrieved Context' provided below to answer the user's question. " +
	"If the answer is not present in the context, politely state: " +
	"'I could not find a relevant answer in the stored meeting notes.'"

// Message is one entry of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// History holds the running conversation for one session. The first message
// is always the system prompt. Not safe for concurrent use; the coordinator
// serializes access.
type History struct {
	messages []Message
}

// NewHistory creates a history seeded with the given system prompt, falling
// back to DefaultInstructions when empty.
func NewHistory(instructions string) *History {
	if instructions == "" {
		instructions = DefaultInstructions
	}
	return &History{
		messages: []Message{{Role: RoleSystem, Content: instructions}},
	}
}

// SetInstructions replaces the system prompt, keeping the rest of the
// conversation.
func (h *History) SetInstructions(instructions string) {
	if instructions == "" {
		instructions = DefaultInstructions
	}
	h.messages[0].Content = instructions
}

// AppendDelta merges an incremental fragment into the conversation. A
// fragment for the same role as the last message is concatenated onto it,
// inserting a single space only when neither side of the seam already has
// one; a role change starts a new message.
func (h *History) AppendDelta(role, delta string) {
	last := &h.messages[len(h.messages)-1]
	if last.Role != role {
		h.messages = append(h.messages, Message{Role: role, Content: delta})
		return
	}

	needsSpace := last.Content != "" && !strings.HasSuffix(last.Content, " ") &&
		delta != "" && !strings.HasPrefix(delta, " ")
	if needsSpace {
		last.Content += " " + delta
	} else {
		last.Content += delta
	}
}

// Messages returns a copy of the conversation.
func (h *History) Messages() []Message {
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of messages, system prompt included.
func (h *History) Len() int {
	return len(h.messages)
}
