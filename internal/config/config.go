package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Audio         AudioConfig         `yaml:"audio"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Chat          ChatConfig          `yaml:"chat"`
	Recording     RecordingConfig     `yaml:"recording"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig contains HTTP/WebSocket server configuration
type ServerConfig struct {
	Port            int    `yaml:"port"`
	BindAddress     string `yaml:"bind_address"`
	MaxMessageBytes int64  `yaml:"max_message_bytes"`
	SendQueueSize   int    `yaml:"send_queue_size"`
	PollIntervalMs  int    `yaml:"poll_interval_ms"`
}

// AudioConfig contains audio decoding and batching parameters
type AudioConfig struct {
	SampleRate   int     `yaml:"sample_rate"`
	BatchSamples int     `yaml:"batch_samples"` // flush threshold in PCM samples
	IdleFlush    float64 `yaml:"idle_flush"`    // seconds without new audio before flushing
	SubmitQueue  int     `yaml:"submit_queue"`  // pending packet queue capacity
}

// TranscriptionConfig contains transcription backend configuration
type TranscriptionConfig struct {
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxConcurrent int    `yaml:"max_concurrent"`
	Language      string `yaml:"language"`
}

// ChatConfig contains chat completion backend configuration
type ChatConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Timeout    int    `yaml:"timeout"` // seconds
	RetrievalK int    `yaml:"retrieval_k"`
	QueryQueue int    `yaml:"query_queue"`
}

// RecordingConfig controls optional on-disk session recordings
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Directory string `yaml:"directory"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file. API keys may be supplied via
// the TRANSCRIPTION_API_KEY and OPENAI_API_KEY environment variables, which
// take precedence over the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if key := os.Getenv("TRANSCRIPTION_API_KEY"); key != "" {
		config.Transcription.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.Chat.APIKey = key
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Chat.Validate(); err != nil {
		return fmt.Errorf("chat config: %w", err)
	}

	if err := c.Recording.Validate(); err != nil {
		return fmt.Errorf("recording config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}

	if s.MaxMessageBytes < 1024 {
		return fmt.Errorf("max_message_bytes must be at least 1024, got %d", s.MaxMessageBytes)
	}

	if s.SendQueueSize < 1 {
		return fmt.Errorf("send_queue_size must be at least 1, got %d", s.SendQueueSize)
	}

	if s.PollIntervalMs < 1 {
		return fmt.Errorf("poll_interval_ms must be at least 1, got %d", s.PollIntervalMs)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 16000 && a.SampleRate != 24000 && a.SampleRate != 48000 {
		return fmt.Errorf("sample_rate must be 16000, 24000 or 48000 Hz, got %d", a.SampleRate)
	}

	if a.BatchSamples < a.SampleRate/10 {
		return fmt.Errorf("batch_samples must cover at least 100ms of audio (%d samples), got %d",
			a.SampleRate/10, a.BatchSamples)
	}

	if a.IdleFlush <= 0 {
		return fmt.Errorf("idle_flush must be positive, got %f", a.IdleFlush)
	}

	if a.SubmitQueue < 1 {
		return fmt.Errorf("submit_queue must be at least 1, got %d", a.SubmitQueue)
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	if t.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	if t.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", t.MaxConcurrent)
	}

	return nil
}

// Validate validates chat configuration
func (c *ChatConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}

	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	if c.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", c.Timeout)
	}

	if c.RetrievalK < 1 {
		return fmt.Errorf("retrieval_k must be at least 1, got %d", c.RetrievalK)
	}

	if c.QueryQueue < 1 {
		return fmt.Errorf("query_queue must be at least 1, got %d", c.QueryQueue)
	}

	return nil
}

// Validate validates recording configuration
func (r *RecordingConfig) Validate() error {
	if r.Enabled && r.Directory == "" {
		return fmt.Errorf("directory cannot be empty when recording is enabled")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetIdleFlushDuration returns the idle flush window as a time.Duration
func (a *AudioConfig) GetIdleFlushDuration() time.Duration {
	return time.Duration(a.IdleFlush * float64(time.Second))
}

// GetPollInterval returns the outbound poll interval as a time.Duration
func (s *ServerConfig) GetPollInterval() time.Duration {
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetTimeoutDuration returns the chat backend timeout as a time.Duration
func (c *ChatConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}
