package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/Bissmella/meeting-assistant/internal/events"
)

// ErrQueueFull is returned when a query cannot be accepted because earlier
// queries are still being answered.
var ErrQueueFull = errors.New("chat query queue full")

// CoordinatorConfig contains coordinator tuning parameters.
type CoordinatorConfig struct {
	// RetrievalK is how many excerpts ground each answer.
	RetrievalK int

	// QueueSize bounds how many queries may wait while one is answered.
	QueueSize int

	// SendQueueSize is the capacity of the outbound event queue drained by
	// the multiplexer.
	SendQueueSize int

	// Instructions overrides the default system prompt when non-empty.
	Instructions string
}

// Coordinator answers user queries for one session. Queries are processed
// one at a time in arrival order on a single worker, so answer streams never
// interleave; for each accepted query exactly one response.text.done event is
// emitted, whether the answer streamed fully, partially, or failed outright.
type Coordinator struct {
	config  CoordinatorConfig
	backend Responder
	store   Retriever
	logger  *slog.Logger

	queries chan string
	out     chan events.ServerEvent
	stop    chan struct{}
	done    chan struct{}

	mu              sync.Mutex
	history         *History
	queriesAnswered uint64
	queriesFailed   uint64
	queriesRejected uint64

	closeOnce sync.Once
}

// CoordinatorStats represents coordinator statistics for monitoring.
type CoordinatorStats struct {
	QueriesAnswered uint64 `json:"queries_answered"`
	QueriesFailed   uint64 `json:"queries_failed"`
	QueriesRejected uint64 `json:"queries_rejected"`
	HistoryLength   int    `json:"history_length"`
}

// NewCoordinator creates a coordinator and starts its worker goroutine.
func NewCoordinator(config CoordinatorConfig, backend Responder, store Retriever, logger *slog.Logger) *Coordinator {
	if config.RetrievalK <= 0 {
		config.RetrievalK = 3
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 8
	}
	if config.SendQueueSize <= 0 {
		config.SendQueueSize = 128
	}

	c := &Coordinator{
		config:  config,
		backend: backend,
		store:   store,
		logger:  logger,
		queries: make(chan string, config.QueueSize),
		out:     make(chan events.ServerEvent, config.SendQueueSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		history: NewHistory(config.Instructions),
	}

	go c.run()

	return c
}

// SubmitQuery queues a query for answering. It never blocks; a full queue
// returns ErrQueueFull.
func (c *Coordinator) SubmitQuery(query string) error {
	select {
	case <-c.stop:
		return errors.New("coordinator closed")
	default:
	}

	select {
	case c.queries <- query:
		return nil
	default:
		c.mu.Lock()
		c.queriesRejected++
		c.mu.Unlock()
		return ErrQueueFull
	}
}

// SetInstructions replaces the system prompt for subsequent answers.
func (c *Coordinator) SetInstructions(instructions string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history.SetInstructions(instructions)
}

// NextOutput returns the next pending answer event, if any. It never blocks;
// the outbound multiplexer polls it.
func (c *Coordinator) NextOutput() (events.ServerEvent, bool) {
	select {
	case ev := <-c.out:
		return ev, true
	default:
		return nil, false
	}
}

// Close stops the worker. Queued but unstarted queries are abandoned; an
// in-flight backend call is cancelled. Safe to call more than once.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
}

// GetStats returns current coordinator statistics.
func (c *Coordinator) GetStats() CoordinatorStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CoordinatorStats{
		QueriesAnswered: c.queriesAnswered,
		QueriesFailed:   c.queriesFailed,
		QueriesRejected: c.queriesRejected,
		HistoryLength:   c.history.Len(),
	}
}

func (c *Coordinator) run() {
	defer close(c.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-c.stop
		cancel()
	}()

	for {
		select {
		case <-c.stop:
			return
		case query := <-c.queries:
			c.answer(ctx, query)
		}
	}
}

// answer grounds one query, streams the completion, and terminates the
// answer with a single done event no matter how the stream went.
func (c *Coordinator) answer(ctx context.Context, query string) {
	retrieved := BuildContext(c.store, query, c.config.RetrievalK)

	c.mu.Lock()
	c.history.AppendDelta(RoleUser, query)
	messages := c.history.Messages()
	c.mu.Unlock()

	// The backend sees the grounded prompt; the history keeps the raw
	// query so later turns are not bloated with stale context blocks.
	messages[len(messages)-1].Content = GroundedPrompt(retrieved, query)

	streamed := false
	err := c.backend.Stream(ctx, messages, func(delta string) error {
		streamed = true

		c.mu.Lock()
		c.history.AppendDelta(RoleAssistant, delta)
		c.mu.Unlock()

		c.pushEvent(events.NewResponseTextDelta(delta))
		return nil
	})

	c.mu.Lock()
	if err != nil {
		c.queriesFailed++
	} else {
		c.queriesAnswered++
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("Chat completion failed",
			slog.Bool("partial", streamed),
			slog.String("error", err.Error()),
		)
		c.pushEvent(events.NewServerError("chat backend error: " + err.Error()))
	}

	c.pushEvent(events.NewResponseTextDone())
}

// pushEvent hands an event to the multiplexer. The send blocks until there
// is room so delta ordering and the one-done-per-query guarantee survive
// backpressure; session shutdown unblocks it.
func (c *Coordinator) pushEvent(ev events.ServerEvent) {
	select {
	case c.out <- ev:
	case <-c.stop:
	}
}

// Answer produces one complete grounded answer outside any session, for the
// one-shot HTTP query endpoint.
func Answer(ctx context.Context, backend Responder, store Retriever, query string, k int) (string, error) {
	if k <= 0 {
		k = 3
	}

	messages := []Message{
		{Role: RoleSystem, Content: DefaultInstructions},
		{Role: RoleUser, Content: GroundedPrompt(BuildContext(store, query, k), query)},
	}

	var sb strings.Builder
	err := backend.Stream(ctx, messages, func(delta string) error {
		sb.WriteString(delta)
		return nil
	})
	if err != nil {
		return "", err
	}

	return sb.String(), nil
}
