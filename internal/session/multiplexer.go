package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Bissmella/meeting-assistant/internal/events"
)

// Writer is the outbound half of the connection.
type Writer interface {
	WriteJSON(v interface{}) error
}

// OutputSource is polled for opportunistic output, never blocking.
type OutputSource interface {
	NextOutput() (events.ServerEvent, bool)
}

// Multiplexer merges the session's outbound traffic onto one ordered
// sequence: control and error events first (FIFO), then whatever the polled
// sources have ready. When nothing is ready it parks briefly on the control
// channel instead of spinning.
type Multiplexer struct {
	writer       Writer
	control      <-chan events.ServerEvent
	sources      []OutputSource
	pollInterval time.Duration
	metrics      MetricsRecorder
	logger       *slog.Logger
}

// NewMultiplexer creates a multiplexer. Sources are polled in the given
// order; metrics may be nil.
func NewMultiplexer(
	writer Writer,
	control <-chan events.ServerEvent,
	sources []OutputSource,
	pollInterval time.Duration,
	metrics MetricsRecorder,
	logger *slog.Logger,
) *Multiplexer {
	if pollInterval <= 0 {
		pollInterval = 25 * time.Millisecond
	}

	return &Multiplexer{
		writer:       writer,
		control:      control,
		sources:      sources,
		pollInterval: pollInterval,
		metrics:      metrics,
		logger:       logger,
	}
}

// Run is the session's send loop. It returns nil on context cancellation and
// an error when the connection is gone; the caller cancels the session
// either way.
func (m *Multiplexer) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		// Control events jump the queue, preserving their own order.
		select {
		case ev := <-m.control:
			if err := m.write(ev); err != nil {
				return err
			}
			continue
		default:
		}

		wrote := false
		for _, src := range m.sources {
			ev, ok := src.NextOutput()
			if !ok {
				continue
			}
			if err := m.write(ev); err != nil {
				return err
			}
			wrote = true
			break
		}
		if wrote {
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case ev := <-m.control:
			if err := m.write(ev); err != nil {
				return err
			}
		case <-ticker.C:
		}
	}
}

func (m *Multiplexer) write(ev events.ServerEvent) error {
	if err := m.writer.WriteJSON(ev); err != nil {
		// A failed error-event delivery means the connection is already
		// gone; nothing useful is lost by tolerating it here. The receive
		// loop observes the same failure and tears the session down.
		if ev.EventType() == events.TypeError {
			m.logger.Warn("Failed to deliver error event",
				slog.String("error", err.Error()),
			)
			return nil
		}
		return fmt.Errorf("write %s event: %w", ev.EventType(), err)
	}

	if m.metrics != nil && ev.EventType() == events.TypeResponseTextDelta {
		m.metrics.RecordChatDelta()
	}

	return nil
}
