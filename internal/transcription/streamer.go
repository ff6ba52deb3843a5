package transcription

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Bissmella/meeting-assistant/internal/audio"
	"github.com/Bissmella/meeting-assistant/internal/events"
)

// StreamerConfig contains streamer tuning parameters.
type StreamerConfig struct {
	// BatchSamples is the PCM sample count that forces a flush.
	BatchSamples int

	// IdleFlush is how long the consumer waits with a non-empty batch and no
	// new audio before flushing anyway. Bounds transcript latency the same
	// way BatchSamples bounds backend call rate.
	IdleFlush time.Duration

	// QueueSize is the capacity of the submit queue. A full queue drops the
	// submission rather than blocking the caller.
	QueueSize int

	// SendQueueSize is the capacity of the outbound event queue drained by
	// the multiplexer.
	SendQueueSize int

	// PCMSink, when set, receives every decoded PCM batch. Used for on-disk
	// session recordings.
	PCMSink func(pcm []float32)
}

// submitItem carries either a compressed packet (decoded on the consumer
// goroutine, keeping CPU work off the receive path) or ready PCM.
type submitItem struct {
	packet []byte
	pcm    []float32
}

// Streamer drives the transcription backend: it accumulates submitted audio
// into batches, flushes them on a size threshold or idle timeout, and appends
// each returned fragment to the running transcript.
//
// Backend failures drop the affected batch and leave the transcript intact;
// the live transcript is best-effort and Finalize performs the authoritative
// end-of-audio flush.
type Streamer struct {
	config  StreamerConfig
	backend Backend
	decoder *audio.FrameDecoder
	logger  *slog.Logger

	in   chan submitItem
	out  chan events.ServerEvent
	done chan struct{}

	closeMu sync.RWMutex
	closed  bool

	mu             sync.RWMutex
	transcript     strings.Builder
	batchesFlushed uint64
	batchesDropped uint64
	submitsDropped uint64
	eventsDropped  uint64
}

// StreamerStats represents streamer statistics for monitoring.
type StreamerStats struct {
	BatchesFlushed uint64 `json:"batches_flushed"`
	BatchesDropped uint64 `json:"batches_dropped"`
	SubmitsDropped uint64 `json:"submits_dropped"`
	EventsDropped  uint64 `json:"events_dropped"`
	PacketsGated   uint64 `json:"packets_gated"`
	PacketsDecoded uint64 `json:"packets_decoded"`
}

// NewStreamer creates a streamer and starts its consumer goroutine.
func NewStreamer(config StreamerConfig, backend Backend, decoder *audio.FrameDecoder, logger *slog.Logger) *Streamer {
	if config.BatchSamples <= 0 {
		config.BatchSamples = 16000 * 2 // two seconds at 16kHz
	}
	if config.IdleFlush <= 0 {
		config.IdleFlush = 500 * time.Millisecond
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 256
	}
	if config.SendQueueSize <= 0 {
		config.SendQueueSize = 64
	}

	s := &Streamer{
		config:  config,
		backend: backend,
		decoder: decoder,
		logger:  logger,
		in:      make(chan submitItem, config.QueueSize),
		out:     make(chan events.ServerEvent, config.SendQueueSize),
		done:    make(chan struct{}),
	}

	go s.run()

	return s
}

// SubmitPacket enqueues one compressed audio packet without blocking. After
// Finalize the call is a no-op.
func (s *Streamer) SubmitPacket(packet []byte) {
	s.submit(submitItem{packet: packet})
}

// Submit enqueues decoded PCM samples without blocking. After Finalize the
// call is a no-op.
func (s *Streamer) Submit(pcm []float32) {
	if len(pcm) == 0 {
		return
	}
	s.submit(submitItem{pcm: pcm})
}

func (s *Streamer) submit(item submitItem) {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()

	if s.closed {
		return
	}

	select {
	case s.in <- item:
	default:
		s.mu.Lock()
		s.submitsDropped++
		s.mu.Unlock()
		s.logger.Warn("Audio submit queue full, dropping submission",
			slog.Int("queue_capacity", cap(s.in)),
		)
	}
}

// Transcript returns the current best-known transcript text.
func (s *Streamer) Transcript() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcript.String()
}

// NextOutput returns the next pending transcript or error event, if any. It
// never blocks; the outbound multiplexer polls it.
func (s *Streamer) NextOutput() (events.ServerEvent, bool) {
	select {
	case ev := <-s.out:
		return ev, true
	default:
		return nil, false
	}
}

// Finalize drains all pending audio, awaits in-flight backend calls, and
// stops the consumer. After it returns every previously submitted batch has
// either been flushed into the transcript or explicitly dropped on a backend
// failure. Safe to call more than once.
func (s *Streamer) Finalize() {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	close(s.in)
	s.closeMu.Unlock()

	<-s.done
}

// GetStats returns current streamer statistics.
func (s *Streamer) GetStats() StreamerStats {
	gated, decoded := s.decoder.Stats()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return StreamerStats{
		BatchesFlushed: s.batchesFlushed,
		BatchesDropped: s.batchesDropped,
		SubmitsDropped: s.submitsDropped,
		EventsDropped:  s.eventsDropped,
		PacketsGated:   gated,
		PacketsDecoded: decoded,
	}
}

// run is the consumer loop: decode, accumulate, flush on size or idle.
func (s *Streamer) run() {
	defer close(s.done)

	var batch []float32
	idle := time.NewTimer(s.config.IdleFlush)
	defer idle.Stop()

	for {
		select {
		case item, ok := <-s.in:
			if !ok {
				// Final drain: whatever is pending goes out now, so the
				// last words of a recording are never truncated.
				if len(batch) > 0 {
					s.flush(batch)
				}
				return
			}

			pcm := item.pcm
			if item.packet != nil {
				decoded, err := s.decoder.Append(item.packet)
				if err != nil {
					s.logger.Warn("Audio decode failed, dropping packet",
						slog.String("error", err.Error()),
					)
					s.pushEvent(events.NewInvalidRequestError(err.Error(), nil))
					continue
				}
				pcm = decoded
			}

			if len(pcm) == 0 {
				continue
			}

			if s.config.PCMSink != nil {
				s.config.PCMSink(pcm)
			}

			batch = append(batch, pcm...)

			if len(batch) >= s.config.BatchSamples {
				s.flush(batch)
				batch = nil
			}

			resetTimer(idle, s.config.IdleFlush)

		case <-idle.C:
			if len(batch) > 0 {
				s.flush(batch)
				batch = nil
			}
			idle.Reset(s.config.IdleFlush)
		}
	}
}

// flush sends one batch to the backend and appends the returned fragment to
// the transcript. A failed call drops the batch.
func (s *Streamer) flush(batch []float32) {
	text, err := s.backend.Chunk(context.Background(), batch)
	if err != nil {
		s.mu.Lock()
		s.batchesDropped++
		s.mu.Unlock()

		s.logger.Error("Transcription backend call failed, dropping batch",
			slog.Int("samples", len(batch)),
			slog.String("error", err.Error()),
		)
		return
	}

	s.mu.Lock()
	s.batchesFlushed++
	if text != "" {
		if s.transcript.Len() > 0 {
			s.transcript.WriteString(" ")
		}
		s.transcript.WriteString(text)
	}
	s.mu.Unlock()

	if text != "" {
		s.pushEvent(events.NewTranscriptDelta(text))
	}
}

// pushEvent queues an event for the multiplexer. A saturated queue drops the
// event rather than stalling the consumer; the transcript buffer itself is
// already updated.
func (s *Streamer) pushEvent(ev events.ServerEvent) {
	select {
	case s.out <- ev:
	default:
		s.mu.Lock()
		s.eventsDropped++
		s.mu.Unlock()
		s.logger.Warn("Outbound event queue full, dropping event",
			slog.String("event_type", ev.EventType()),
		)
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
