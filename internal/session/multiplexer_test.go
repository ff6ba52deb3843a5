package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Bissmella/meeting-assistant/internal/events"
)

// recordingWriter captures written events; failOn makes WriteJSON fail for
// the given event types.
type recordingWriter struct {
	mu     sync.Mutex
	events []events.ServerEvent
	failOn map[string]bool
}

func (w *recordingWriter) WriteJSON(v interface{}) error {
	ev, ok := v.(events.ServerEvent)
	if !ok {
		return errors.New("not a server event")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.failOn[ev.EventType()] {
		return errors.New("connection gone")
	}
	w.events = append(w.events, ev)
	return nil
}

func (w *recordingWriter) written() []events.ServerEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]events.ServerEvent, len(w.events))
	copy(out, w.events)
	return out
}

// queueSource is a pre-loaded OutputSource.
type queueSource struct {
	mu     sync.Mutex
	queued []events.ServerEvent
}

func (s *queueSource) NextOutput() (events.ServerEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queued) == 0 {
		return nil, false
	}
	ev := s.queued[0]
	s.queued = s.queued[1:]
	return ev, true
}

func runMux(t *testing.T, m *Multiplexer) (cancel func(), wait func() error) {
	t.Helper()

	ctx, cancelCtx := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(ctx) }()

	return cancelCtx, func() error {
		select {
		case err := <-errCh:
			return err
		case <-time.After(2 * time.Second):
			t.Fatal("Multiplexer did not stop")
			return nil
		}
	}
}

func waitForWrites(t *testing.T, w *recordingWriter, n int) []events.ServerEvent {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := w.written(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Expected %d writes, got %d", n, len(w.written()))
	return nil
}

func TestMultiplexerControlJumpsTheQueue(t *testing.T) {
	writer := &recordingWriter{}
	control := make(chan events.ServerEvent, 4)
	source := &queueSource{queued: []events.ServerEvent{
		events.NewTranscriptDelta("polled one"),
		events.NewTranscriptDelta("polled two"),
	}}

	control <- events.NewSessionUpdated(events.SessionConfig{Language: "en"})

	m := NewMultiplexer(writer, control, []OutputSource{source}, time.Millisecond, nil, discardLogger())
	cancel, wait := runMux(t, m)

	got := waitForWrites(t, writer, 3)
	cancel()
	if err := wait(); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got[0].EventType() != events.TypeSessionUpdated {
		t.Errorf("Control event must be written first, got %s", got[0].EventType())
	}
	for i, want := range []string{"polled one", "polled two"} {
		delta, ok := got[i+1].(events.TranscriptDelta)
		if !ok || delta.Delta != want {
			t.Errorf("Write %d: expected transcript delta %q, got %+v", i+1, want, got[i+1])
		}
	}
}

func TestMultiplexerPollsSourcesInOrder(t *testing.T) {
	writer := &recordingWriter{}
	first := &queueSource{queued: []events.ServerEvent{events.NewTranscriptDelta("from first")}}
	second := &queueSource{queued: []events.ServerEvent{events.NewResponseTextDelta("from second")}}

	m := NewMultiplexer(writer, make(chan events.ServerEvent), []OutputSource{first, second},
		time.Millisecond, nil, discardLogger())
	cancel, wait := runMux(t, m)

	got := waitForWrites(t, writer, 2)
	cancel()
	if err := wait(); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got[0].EventType() != events.TypeTranscriptDelta {
		t.Errorf("First source must win the poll, got %s", got[0].EventType())
	}
	if got[1].EventType() != events.TypeResponseTextDelta {
		t.Errorf("Second source drained after the first, got %s", got[1].EventType())
	}
}

func TestMultiplexerWriteFailureStopsRun(t *testing.T) {
	writer := &recordingWriter{failOn: map[string]bool{events.TypeTranscriptDelta: true}}
	source := &queueSource{queued: []events.ServerEvent{events.NewTranscriptDelta("doomed")}}

	m := NewMultiplexer(writer, make(chan events.ServerEvent), []OutputSource{source},
		time.Millisecond, nil, discardLogger())
	_, wait := runMux(t, m)

	if err := wait(); err == nil {
		t.Fatal("Expected Run to return the write error")
	}
}

func TestMultiplexerToleratesErrorEventWriteFailure(t *testing.T) {
	writer := &recordingWriter{failOn: map[string]bool{events.TypeError: true}}
	control := make(chan events.ServerEvent, 1)
	control <- events.NewServerError("doomed")

	m := NewMultiplexer(writer, control, nil, time.Millisecond, nil, discardLogger())
	cancel, wait := runMux(t, m)

	// The failed error-event write is tolerated; Run keeps going until
	// cancelled.
	time.Sleep(50 * time.Millisecond)
	cancel()
	if err := wait(); err != nil {
		t.Fatalf("Error-event write failure must not stop the loop: %v", err)
	}
}

func TestMultiplexerStopsOnContextCancel(t *testing.T) {
	writer := &recordingWriter{}
	m := NewMultiplexer(writer, make(chan events.ServerEvent), nil, time.Millisecond, nil, discardLogger())
	cancel, wait := runMux(t, m)

	cancel()
	if err := wait(); err != nil {
		t.Fatalf("Expected nil on cancellation, got %v", err)
	}
}
