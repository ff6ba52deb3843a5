package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Backend is the transcription call contract: one PCM batch in, one text
// fragment out. Batching and failure policy live in the Streamer, not here.
type Backend interface {
	Chunk(ctx context.Context, pcm []float32) (string, error)
}

// MetricsRecorder receives per-request observations. Satisfied by
// *metrics.Metrics; nil disables recording.
type MetricsRecorder interface {
	RecordTranscriptionRequest()
	RecordTranscriptionSuccess(durationSeconds float64)
	RecordTranscriptionFailure(durationSeconds float64)
}

// Client is the HTTP transcription backend client. Calls are bounded by a
// concurrency semaphore and the configured per-call timeout. Failed calls are
// not retried at this layer: the live transcript is best-effort and a dropped
// batch is cheaper than a stalled stream.
type Client struct {
	config     Config
	httpClient *http.Client
	semaphore  chan struct{}

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// Config contains transcription client configuration
type Config struct {
	Endpoint      string
	APIKey        string
	Timeout       time.Duration
	MaxConcurrent int
	SampleRate    int
	Language      string
	Metrics       MetricsRecorder
}

// chunkRequest is the wire shape of one transcription call.
type chunkRequest struct {
	PCM        []float32 `json:"pcm"`
	SampleRate int       `json:"sample_rate"`
	Language   string    `json:"language,omitempty"`
}

// chunkResponse is the wire shape of the backend's answer.
type chunkResponse struct {
	Text string `json:"text"`
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	ActiveRequests  int           `json:"active_requests"`
}

// NewClient creates a new transcription HTTP client
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}

	if config.SampleRate <= 0 {
		config.SampleRate = 16000
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		semaphore:  make(chan struct{}, config.MaxConcurrent),
	}, nil
}

// Chunk sends one PCM batch for transcription and returns the text fragment.
func (c *Client) Chunk(ctx context.Context, pcm []float32) (string, error) {
	// Acquire semaphore for rate limiting
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	startTime := time.Now()
	c.incrementTotalRequests()
	if c.config.Metrics != nil {
		c.config.Metrics.RecordTranscriptionRequest()
	}

	text, err := c.doRequest(ctx, pcm)
	if err != nil {
		c.incrementFailedRequests()
		if c.config.Metrics != nil {
			c.config.Metrics.RecordTranscriptionFailure(time.Since(startTime).Seconds())
		}
		return "", err
	}

	c.incrementSuccessRequests()
	c.updateAvgResponseTime(time.Since(startTime))
	if c.config.Metrics != nil {
		c.config.Metrics.RecordTranscriptionSuccess(time.Since(startTime).Seconds())
	}
	return text, nil
}

// doRequest performs a single HTTP request to the transcription API
func (c *Client) doRequest(ctx context.Context, pcm []float32) (string, error) {
	body, err := json.Marshal(chunkRequest{
		PCM:        pcm,
		SampleRate: c.config.SampleRate,
		Language:   c.config.Language,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	var chunkResp chunkResponse
	if err := json.Unmarshal(respBody, &chunkResp); err != nil {
		return "", fmt.Errorf("failed to parse response JSON: %w", err)
	}

	return chunkResp.Text, nil
}

// Statistics methods
func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementSuccessRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++
}

func (c *Client) incrementFailedRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

func (c *Client) updateAvgResponseTime(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		AvgResponseTime: c.avgResponseTime,
		ActiveRequests:  len(c.semaphore),
	}
}
