package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Bissmella/meeting-assistant/internal/audio"
)

// Recorder accumulates a session's decoded audio in memory and writes the
// recording plus its transcript to disk when the meeting is finalized.
type Recorder struct {
	dir        string
	sampleRate int

	mu      sync.Mutex
	samples []float32
}

// NewRecorder creates a recorder writing under dir, creating it if needed.
func NewRecorder(dir string, sampleRate int) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create recordings directory: %w", err)
	}

	return &Recorder{dir: dir, sampleRate: sampleRate}, nil
}

// AppendPCM buffers decoded audio. Safe to call from the streamer's consumer
// goroutine.
func (r *Recorder) AppendPCM(pcm []float32) {
	r.mu.Lock()
	r.samples = append(r.samples, pcm...)
	r.mu.Unlock()
}

// Flush writes <dir>/<meetingID>.wav and <dir>/<meetingID>.txt. Called once
// at finalization; an empty recording writes only the transcript.
func (r *Recorder) Flush(meetingID, transcript string) error {
	r.mu.Lock()
	samples := r.samples
	r.samples = nil
	r.mu.Unlock()

	if len(samples) > 0 {
		wav, err := audio.EncodeWAV(samples, r.sampleRate)
		if err != nil {
			return fmt.Errorf("encode recording: %w", err)
		}

		wavPath := filepath.Join(r.dir, meetingID+".wav")
		if err := os.WriteFile(wavPath, wav, 0o644); err != nil {
			return fmt.Errorf("write recording: %w", err)
		}
	}

	txtPath := filepath.Join(r.dir, meetingID+".txt")
	if err := os.WriteFile(txtPath, []byte(transcript), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}

	return nil
}
