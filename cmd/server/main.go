package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Bissmella/meeting-assistant/internal/chat"
	"github.com/Bissmella/meeting-assistant/internal/config"
	"github.com/Bissmella/meeting-assistant/internal/memory"
	"github.com/Bissmella/meeting-assistant/internal/metrics"
	"github.com/Bissmella/meeting-assistant/internal/server"
	"github.com/Bissmella/meeting-assistant/internal/transcription"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "meeting-assistant"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Optional .env for API keys; absence is not an error
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("bind_address", cfg.Server.BindAddress),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("batch_samples", cfg.Audio.BatchSamples),
		slog.Float64("idle_flush", cfg.Audio.IdleFlush),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.String("chat_model", cfg.Chat.Model),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Meeting retrieval store (in-memory, lives for the process lifetime)
	store := memory.NewInMemoryStore()

	// Transcription backend client
	transcriber, err := transcription.NewClient(transcription.Config{
		Endpoint:      cfg.Transcription.Endpoint,
		APIKey:        cfg.Transcription.APIKey,
		Timeout:       cfg.Transcription.GetTimeoutDuration(),
		MaxConcurrent: cfg.Transcription.MaxConcurrent,
		SampleRate:    cfg.Audio.SampleRate,
		Language:      cfg.Transcription.Language,
		Metrics:       appMetrics,
	})
	if err != nil {
		logger.Error("Failed to create transcription client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Transcription client initialized",
		slog.String("endpoint", cfg.Transcription.Endpoint),
		slog.Int("max_concurrent", cfg.Transcription.MaxConcurrent),
	)

	// Chat backend client
	chatBackend := chat.NewClient(chat.Config{
		BaseURL: cfg.Chat.BaseURL,
		APIKey:  cfg.Chat.APIKey,
		Model:   cfg.Chat.Model,
		Timeout: cfg.Chat.GetTimeoutDuration(),
	})
	logger.Info("Chat client initialized",
		slog.String("base_url", cfg.Chat.BaseURL),
		slog.String("model", cfg.Chat.Model),
	)

	// Combined WebSocket + HTTP API server
	srv := server.NewServer(cfg, logger, appMetrics, store, transcriber, chatBackend)
	if err := srv.Start(); err != nil {
		logger.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.Port)),
	)

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping server", slog.String("error", err.Error()))
	}

	stats := transcriber.GetStats()
	logger.Info("Final transcription statistics",
		slog.Uint64("total_requests", stats.TotalRequests),
		slog.Uint64("success_requests", stats.SuccessRequests),
		slog.Uint64("failed_requests", stats.FailedRequests),
		slog.Float64("success_rate", stats.SuccessRate),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
