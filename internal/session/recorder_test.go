package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Bissmella/meeting-assistant/internal/audio"
)

func TestRecorderFlush(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir, 16000)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}

	rec.AppendPCM([]float32{0.1, 0.2, 0.3})
	rec.AppendPCM([]float32{0.4})

	if err := rec.Flush("m1", "meeting transcript"); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	wavData, err := os.ReadFile(filepath.Join(dir, "m1.wav"))
	if err != nil {
		t.Fatalf("Recording not written: %v", err)
	}
	samples, sampleRate, err := audio.DecodeWAV(wavData)
	if err != nil {
		t.Fatalf("Recording not decodable: %v", err)
	}
	if len(samples) != 4 {
		t.Errorf("Expected 4 samples, got %d", len(samples))
	}
	if sampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", sampleRate)
	}

	transcript, err := os.ReadFile(filepath.Join(dir, "m1.txt"))
	if err != nil {
		t.Fatalf("Transcript not written: %v", err)
	}
	if string(transcript) != "meeting transcript" {
		t.Errorf("Unexpected transcript contents: %q", transcript)
	}
}

func TestRecorderFlushWithoutAudio(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir, 16000)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}

	if err := rec.Flush("m2", "words without audio"); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "m2.wav")); !os.IsNotExist(err) {
		t.Error("Expected no recording file for an empty recording")
	}
	if _, err := os.Stat(filepath.Join(dir, "m2.txt")); err != nil {
		t.Errorf("Transcript must still be written: %v", err)
	}
}

func TestRecorderCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "recordings")

	if _, err := NewRecorder(dir, 16000); err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Directory not created: %v", err)
	}
}
