package memory

import "time"

// Meeting is a recorded conversation. It is mutated only by appending
// transcript text while recording and becomes immutable once handed to the
// store.
type Meeting struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Participants []string  `json:"participants"`
	StartTime    time.Time `json:"start_time"`
	Transcript   string    `json:"transcript"`
}

// NewMeeting creates a meeting starting now.
func NewMeeting(id, title string, participants []string) *Meeting {
	return &Meeting{
		ID:           id,
		Title:        title,
		Participants: participants,
		StartTime:    time.Now(),
	}
}

// Excerpt is one retrieved transcript chunk with the metadata needed to
// ground a chat answer.
type Excerpt struct {
	MeetingID string    `json:"meeting_id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	Content   string    `json:"content"`
	Score     float64   `json:"score"`
}

// Store is the retrieval memory for finalized meetings.
type Store interface {
	// AddMeeting indexes a finalized meeting.
	AddMeeting(meeting *Meeting) error

	// Query returns up to k transcript excerpts ranked by relevance to the
	// query text. Zero-relevance excerpts are excluded.
	Query(text string, k int) []Excerpt

	// Meetings returns all stored meetings in insertion order.
	Meetings() []*Meeting

	// LastMeeting returns the most recently stored meeting, or nil.
	LastMeeting() *Meeting
}
