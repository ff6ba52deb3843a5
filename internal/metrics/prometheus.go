package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the meeting assistant service
type Metrics struct {
	// Session metrics
	ActiveSessions  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsClosed  prometheus.Counter
	SessionDuration prometheus.Histogram

	// Client event metrics
	EventsReceived *prometheus.CounterVec
	EventErrors    prometheus.Counter

	// Audio metrics
	PacketsDecoded prometheus.Counter
	PacketsGated   prometheus.Counter
	DecodeErrors   prometheus.Counter

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionDuration  prometheus.Histogram

	// Chat metrics
	ChatQueries       prometheus.Counter
	ChatQueryFailures prometheus.Counter
	ChatDeltas        prometheus.Counter

	// Meeting store metrics
	MeetingsStored prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Session metrics
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "assistant_active_sessions",
			Help: "Current number of active WebSocket sessions",
		}),
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assistant_sessions_created_total",
			Help: "Total number of sessions created",
		}),
		SessionsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assistant_sessions_closed_total",
			Help: "Total number of sessions closed",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "assistant_session_duration_seconds",
			Help:    "Duration of WebSocket sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68 minutes
		}),

		// Client event metrics
		EventsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_client_events_total",
			Help: "Total number of client events received",
		}, []string{"type"}),
		EventErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assistant_client_event_errors_total",
			Help: "Total number of malformed or invalid client events",
		}),

		// Audio metrics
		PacketsDecoded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assistant_audio_packets_decoded_total",
			Help: "Total number of audio packets decoded",
		}),
		PacketsGated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assistant_audio_packets_gated_total",
			Help: "Total number of audio packets dropped before the stream start marker",
		}),
		DecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assistant_audio_decode_errors_total",
			Help: "Total number of audio packet decode errors",
		}),

		// Transcription metrics
		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assistant_transcription_requests_total",
			Help: "Total number of transcription requests sent",
		}),
		TranscriptionSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assistant_transcription_successes_total",
			Help: "Total number of successful transcription requests",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assistant_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "assistant_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		// Chat metrics
		ChatQueries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assistant_chat_queries_total",
			Help: "Total number of user chat queries accepted",
		}),
		ChatQueryFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assistant_chat_query_failures_total",
			Help: "Total number of chat queries that failed or were rejected",
		}),
		ChatDeltas: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assistant_chat_deltas_total",
			Help: "Total number of streamed answer deltas sent",
		}),

		// Meeting store metrics
		MeetingsStored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assistant_meetings_stored_total",
			Help: "Total number of finalized meetings persisted to the store",
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assistant_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordSessionCreated increments the sessions created counter and the gauge
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreated.Inc()
	m.ActiveSessions.Inc()
}

// RecordSessionClosed decrements the gauge and records session duration
func (m *Metrics) RecordSessionClosed(durationSeconds float64) {
	m.SessionsClosed.Inc()
	m.ActiveSessions.Dec()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordEventReceived increments the client event counter for a type
func (m *Metrics) RecordEventReceived(eventType string) {
	m.EventsReceived.WithLabelValues(eventType).Inc()
}

// RecordEventError increments the invalid event counter
func (m *Metrics) RecordEventError() {
	m.EventErrors.Inc()
}

// RecordPacketDecoded increments the decoded packet counter
func (m *Metrics) RecordPacketDecoded() {
	m.PacketsDecoded.Inc()
}

// RecordPacketGated increments the pre-start-marker drop counter
func (m *Metrics) RecordPacketGated() {
	m.PacketsGated.Inc()
}

// RecordDecodeError increments the decode error counter
func (m *Metrics) RecordDecodeError() {
	m.DecodeErrors.Inc()
}

// RecordTranscriptionRequest increments transcription requests counter
func (m *Metrics) RecordTranscriptionRequest() {
	m.TranscriptionRequests.Inc()
}

// RecordTranscriptionSuccess records a successful transcription
func (m *Metrics) RecordTranscriptionSuccess(durationSeconds float64) {
	m.TranscriptionSuccesses.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a failed transcription
func (m *Metrics) RecordTranscriptionFailure(durationSeconds float64) {
	m.TranscriptionFailures.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordChatQuery increments the accepted query counter
func (m *Metrics) RecordChatQuery() {
	m.ChatQueries.Inc()
}

// RecordChatQueryFailure increments the failed/rejected query counter
func (m *Metrics) RecordChatQueryFailure() {
	m.ChatQueryFailures.Inc()
}

// RecordChatDelta increments the streamed delta counter
func (m *Metrics) RecordChatDelta() {
	m.ChatDeltas.Inc()
}

// RecordMeetingStored increments the persisted meeting counter
func (m *Metrics) RecordMeetingStored() {
	m.MeetingsStored.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
