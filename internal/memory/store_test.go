package memory

import (
	"strings"
	"testing"
	"time"
)

func newMeeting(id, title, transcript string) *Meeting {
	return &Meeting{
		ID:         id,
		Title:      title,
		StartTime:  time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		Transcript: transcript,
	}
}

func TestAddMeeting(t *testing.T) {
	tests := []struct {
		name    string
		meeting *Meeting
		wantErr bool
	}{
		{
			name:    "valid meeting",
			meeting: newMeeting("m1", "Standup", "We agreed to ship on Friday."),
			wantErr: false,
		},
		{
			name:    "empty transcript allowed",
			meeting: newMeeting("m2", "Silent", ""),
			wantErr: false,
		},
		{
			name:    "nil meeting",
			meeting: nil,
			wantErr: true,
		},
		{
			name:    "missing id",
			meeting: newMeeting("", "Untitled", "words"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewInMemoryStore()
			err := store.AddMeeting(tt.meeting)
			if tt.wantErr && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestAddMeetingDuplicateID(t *testing.T) {
	store := NewInMemoryStore()

	if err := store.AddMeeting(newMeeting("m1", "Standup", "words")); err != nil {
		t.Fatalf("First AddMeeting failed: %v", err)
	}
	if err := store.AddMeeting(newMeeting("m1", "Other", "more words")); err == nil {
		t.Error("Expected error for duplicate meeting id")
	}
	if got := len(store.Meetings()); got != 1 {
		t.Errorf("Expected 1 stored meeting, got %d", got)
	}
}

func TestQueryRanking(t *testing.T) {
	store := NewInMemoryStore()

	meetings := []*Meeting{
		newMeeting("m1", "Deploy Review", "The deploy pipeline is slow. We should cache build artifacts."),
		newMeeting("m2", "Hiring Sync", "Two candidates reached the final interview round."),
		newMeeting("m3", "Deploy Retro", "The deploy did fail twice last week because of missing migrations."),
	}
	for _, m := range meetings {
		if err := store.AddMeeting(m); err != nil {
			t.Fatalf("AddMeeting failed: %v", err)
		}
	}

	got := store.Query("why did the deploy fail", 2)

	if len(got) == 0 {
		t.Fatal("Expected excerpts for a matching query")
	}
	if len(got) > 2 {
		t.Fatalf("Expected at most 2 excerpts, got %d", len(got))
	}
	if got[0].MeetingID != "m3" {
		t.Errorf("Expected the failing-deploy meeting ranked first, got %q", got[0].MeetingID)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("Excerpts must be sorted by descending score: %f before %f",
				got[i-1].Score, got[i].Score)
		}
	}
	for _, ex := range got {
		if ex.Score <= 0 {
			t.Errorf("Zero-relevance excerpt must be excluded: %+v", ex)
		}
		if ex.Title == "" || ex.StartTime.IsZero() {
			t.Errorf("Excerpt missing meeting metadata: %+v", ex)
		}
	}
}

func TestQueryNoMatches(t *testing.T) {
	store := NewInMemoryStore()
	if err := store.AddMeeting(newMeeting("m1", "Standup", "We talked about the roadmap.")); err != nil {
		t.Fatalf("AddMeeting failed: %v", err)
	}

	if got := store.Query("xylophone quantum", 3); len(got) != 0 {
		t.Errorf("Expected no excerpts for unrelated query, got %d", len(got))
	}
}

func TestQueryEmptyStore(t *testing.T) {
	store := NewInMemoryStore()

	if got := store.Query("anything", 3); got != nil {
		t.Errorf("Expected nil from empty store, got %v", got)
	}
	if got := store.Query("anything", 0); got != nil {
		t.Errorf("Expected nil for k=0, got %v", got)
	}
}

func TestMeetingsInsertionOrder(t *testing.T) {
	store := NewInMemoryStore()
	for _, id := range []string{"m1", "m2", "m3"} {
		if err := store.AddMeeting(newMeeting(id, "Meeting "+id, "words")); err != nil {
			t.Fatalf("AddMeeting failed: %v", err)
		}
	}

	got := store.Meetings()
	if len(got) != 3 {
		t.Fatalf("Expected 3 meetings, got %d", len(got))
	}
	for i, id := range []string{"m1", "m2", "m3"} {
		if got[i].ID != id {
			t.Errorf("Position %d: expected %q, got %q", i, id, got[i].ID)
		}
	}
}

func TestLastMeeting(t *testing.T) {
	store := NewInMemoryStore()

	if store.LastMeeting() != nil {
		t.Error("Expected nil from empty store")
	}

	store.AddMeeting(newMeeting("m1", "First", "words"))
	store.AddMeeting(newMeeting("m2", "Second", "words"))

	last := store.LastMeeting()
	if last == nil || last.ID != "m2" {
		t.Errorf("Expected most recent meeting m2, got %+v", last)
	}
}

func TestSplitText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		size     int
		overlap  int
		expected int // expected chunk count; -1 for "more than one"
	}{
		{
			name:     "empty text",
			text:     "",
			size:     100,
			overlap:  10,
			expected: 0,
		},
		{
			name:     "whitespace only",
			text:     "   \n  ",
			size:     100,
			overlap:  10,
			expected: 0,
		},
		{
			name:     "fits in one chunk",
			text:     "Short transcript.",
			size:     100,
			overlap:  10,
			expected: 1,
		},
		{
			name:     "long text splits",
			text:     strings.Repeat("Some sentence about the meeting. ", 20),
			size:     100,
			overlap:  10,
			expected: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitText(tt.text, tt.size, tt.overlap)
			if tt.expected == -1 {
				if len(got) < 2 {
					t.Fatalf("Expected multiple chunks, got %d", len(got))
				}
			} else if len(got) != tt.expected {
				t.Fatalf("Expected %d chunks, got %d", tt.expected, len(got))
			}

			for i, chunk := range got {
				if len([]rune(chunk)) > tt.size {
					t.Errorf("Chunk %d exceeds size %d: %d runes", i, tt.size, len([]rune(chunk)))
				}
				if chunk != strings.TrimSpace(chunk) {
					t.Errorf("Chunk %d not trimmed: %q", i, chunk)
				}
			}
		})
	}
}

func TestSplitTextPrefersSentenceBoundaries(t *testing.T) {
	text := "First sentence here. Second sentence follows. Third sentence ends the text."
	chunks := SplitText(text, 50, 5)

	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], ".") {
		t.Errorf("Expected first chunk to break at a sentence boundary, got %q", chunks[0])
	}
}

func TestSplitTextOverlap(t *testing.T) {
	text := strings.Repeat("word ", 60) // 300 runes
	chunks := SplitText(text, 100, 20)

	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}

	// With overlap, the tail of one chunk reappears at the head of the next.
	tail := chunks[0][len(chunks[0])-4:]
	if !strings.Contains(chunks[1], tail) {
		t.Errorf("Expected overlap between consecutive chunks: %q / %q", chunks[0], chunks[1])
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected func(float64) bool
	}{
		{
			name:     "identical text",
			a:        "deploy pipeline cache",
			b:        "deploy pipeline cache",
			expected: func(s float64) bool { return s > 0.999 },
		},
		{
			name:     "disjoint text",
			a:        "deploy pipeline cache",
			b:        "hiring interview candidates",
			expected: func(s float64) bool { return s == 0 },
		},
		{
			name:     "partial overlap",
			a:        "deploy pipeline",
			b:        "deploy candidates",
			expected: func(s float64) bool { return s > 0 && s < 1 },
		},
		{
			name:     "case insensitive",
			a:        "Deploy Pipeline",
			b:        "deploy pipeline",
			expected: func(s float64) bool { return s > 0.999 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(vectorize(tt.a), vectorize(tt.b))
			if !tt.expected(got) {
				t.Errorf("Unexpected similarity %f for %q vs %q", got, tt.a, tt.b)
			}
		})
	}
}
