package memory

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Chunking parameters for transcript indexing. Chunks overlap so that
// context spanning a boundary is retrievable from either side.
const (
	chunkSize    = 1000
	chunkOverlap = 100
)

var tokenPattern = regexp.MustCompile(`\b\w+\b`)

// termVector is a term-frequency vector over a chunk's tokens.
type termVector map[string]int

type indexedChunk struct {
	meeting *Meeting
	content string
	vector  termVector
}

// InMemoryStore is a Store backed by process memory. It is dependency-injected
// into whatever needs retrieval; its lifecycle is owned by the process, not by
// any session.
type InMemoryStore struct {
	mu       sync.RWMutex
	meetings []*Meeting
	chunks   []indexedChunk
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// AddMeeting splits the meeting transcript into overlapping chunks and indexes
// each with a term-frequency vector.
func (s *InMemoryStore) AddMeeting(meeting *Meeting) error {
	if meeting == nil {
		return fmt.Errorf("meeting cannot be nil")
	}
	if meeting.ID == "" {
		return fmt.Errorf("meeting id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.meetings {
		if existing.ID == meeting.ID {
			return fmt.Errorf("meeting %s already stored", meeting.ID)
		}
	}

	s.meetings = append(s.meetings, meeting)

	for _, chunk := range SplitText(meeting.Transcript, chunkSize, chunkOverlap) {
		s.chunks = append(s.chunks, indexedChunk{
			meeting: meeting,
			content: chunk,
			vector:  vectorize(chunk),
		})
	}

	return nil
}

// Query ranks all indexed chunks by cosine similarity against the query text
// and returns the top k with a positive score.
func (s *InMemoryStore) Query(text string, k int) []Excerpt {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.chunks) == 0 || k <= 0 {
		return nil
	}

	queryVector := vectorize(text)

	type scored struct {
		chunk indexedChunk
		score float64
	}

	ranked := make([]scored, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		score := cosineSimilarity(queryVector, chunk.vector)
		if score > 0 {
			ranked = append(ranked, scored{chunk: chunk, score: score})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}

	excerpts := make([]Excerpt, 0, len(ranked))
	for _, r := range ranked {
		excerpts = append(excerpts, Excerpt{
			MeetingID: r.chunk.meeting.ID,
			Title:     r.chunk.meeting.Title,
			StartTime: r.chunk.meeting.StartTime,
			Content:   r.chunk.content,
			Score:     r.score,
		})
	}

	return excerpts
}

// Meetings returns a snapshot of all stored meetings in insertion order.
func (s *InMemoryStore) Meetings() []*Meeting {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meetings := make([]*Meeting, len(s.meetings))
	copy(meetings, s.meetings)
	return meetings
}

// LastMeeting returns the most recently stored meeting, or nil if the store
// is empty.
func (s *InMemoryStore) LastMeeting() *Meeting {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.meetings) == 0 {
		return nil
	}
	return s.meetings[len(s.meetings)-1]
}

// SplitText splits text into chunks of at most size runes with the given
// overlap, preferring to break at sentence boundaries, then at whitespace.
func SplitText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			chunk := strings.TrimSpace(string(runes[start:]))
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		// Prefer a sentence boundary in the second half of the window,
		// falling back to whitespace.
		split := end
		for i := end - 1; i > start+size/2; i-- {
			if runes[i] == '.' || runes[i] == '?' || runes[i] == '!' {
				split = i + 1
				break
			}
		}
		if split == end {
			for i := end - 1; i > start+size/2; i-- {
				if runes[i] == ' ' || runes[i] == '\n' {
					split = i
					break
				}
			}
		}

		chunk := strings.TrimSpace(string(runes[start:split]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := split - overlap
		if next <= start {
			next = split
		}
		start = next
	}

	return chunks
}

// vectorize builds a term-frequency vector from the text's tokens.
func vectorize(text string) termVector {
	vector := make(termVector)
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		vector[token]++
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two term vectors.
func cosineSimilarity(a, b termVector) float64 {
	var dot float64
	for token, count := range a {
		if other, ok := b[token]; ok {
			dot += float64(count) * float64(other)
		}
	}

	magnitudeA := magnitude(a)
	magnitudeB := magnitude(b)
	if magnitudeA == 0 || magnitudeB == 0 {
		return 0
	}

	return dot / (magnitudeA * magnitudeB)
}

func magnitude(v termVector) float64 {
	var sum float64
	for _, count := range v {
		sum += float64(count) * float64(count)
	}
	return math.Sqrt(sum)
}
