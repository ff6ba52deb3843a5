package chat

import (
	"fmt"
	"strings"

	"github.com/Bissmella/meeting-assistant/internal/memory"
)

// recentTranscriptLimit bounds how many trailing runes of the latest
// meeting's transcript enter the context verbatim. The tail is kept because
// decisions and summaries cluster at the end of a meeting.
const recentTranscriptLimit = 2000

// Retriever is the slice of the meeting store the chat layer needs.
type Retriever interface {
	Query(text string, k int) []memory.Excerpt
	LastMeeting() *memory.Meeting
}

// BuildContext assembles the retrieved-context block for a query: the top-k
// excerpts ranked by relevance, each labeled with its meeting time and title,
// followed by the most recently finalized meeting. When no meeting has been
// stored yet the block says so, so the model does not invent one.
func BuildContext(store Retriever, query string, k int) string {
	excerpts := store.Query(query, k)

	parts := make([]string, 0, len(excerpts)+1)
	for _, ex := range excerpts {
		parts = append(parts, fmt.Sprintf("Meeting on %s titled '%s':\n%s",
			ex.StartTime.UTC().Format("2006-01-02 15:04:05"), ex.Title, ex.Content))
	}

	last := store.LastMeeting()
	if last == nil {
		return "No previous meetings recorded.\n\n" + strings.Join(parts, "\n\n")
	}

	parts = append(parts, fmt.Sprintf("Most recent meeting on %s titled '%s':\n%s",
		last.StartTime.UTC().Format("2006-01-02 15:04:05"), last.Title,
		tailExcerpt(last.Transcript, recentTranscriptLimit)))

	return strings.Join(parts, "\n\n")
}

// GroundedPrompt wraps a user query with its retrieved context in the layout
// the system prompt refers to.
func GroundedPrompt(context, query string) string {
	return "\n\n--- Retrieved Context ---\n\n" + context +
		"\n\n--- User Query ---\n\n" + query
}

func tailExcerpt(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[len(runes)-limit:])
}
