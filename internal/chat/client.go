package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Responder streams a chat completion for a conversation, invoking onDelta
// for each text fragment as it arrives.
type Responder interface {
	Stream(ctx context.Context, messages []Message, onDelta func(delta string) error) error
}

// Config contains chat backend client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// NewClient creates a chat backend client.
func NewClient(config Config) *Client {
	cfg := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}

	return &Client{
		api:     openai.NewClientWithConfig(cfg),
		model:   config.Model,
		timeout: config.Timeout,
	}
}

// Stream requests a streamed completion and forwards each delta to onDelta.
// It returns nil once the stream ends normally, or the first error from the
// backend or the callback.
func (c *Client) Stream(ctx context.Context, messages []Message, onDelta func(delta string) error) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toOpenAI(messages),
		Stream:   true,
	}

	stream, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return fmt.Errorf("create completion stream: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("receive completion delta: %w", err)
		}

		if len(resp.Choices) == 0 {
			continue
		}

		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}

		if err := onDelta(delta); err != nil {
			return err
		}
	}
}

func toOpenAI(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
