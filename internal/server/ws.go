package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Bissmella/meeting-assistant/internal/audio"
	"github.com/Bissmella/meeting-assistant/internal/chat"
	"github.com/Bissmella/meeting-assistant/internal/session"
	"github.com/Bissmella/meeting-assistant/internal/transcription"
)

const realtimeSubprotocol = "realtime"

// handleRealtime implements the GET /v1/realtime WebSocket endpoint. A
// session is rejected with an internal-error close when the server is
// shutting down.
func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed",
			slog.String("remote", r.RemoteAddr),
			slog.String("error", err.Error()),
		)
		return
	}

	if !s.healthy.Load() {
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "Server is not healthy")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
		return
	}

	s.logger.Info("Client connected",
		slog.String("remote", r.RemoteAddr),
		slog.String("subprotocol", conn.Subprotocol()),
	)

	s.sessionWG.Add(1)
	go func() {
		defer s.sessionWG.Done()
		s.runSession(s.ctx, conn)
	}()
}

// runSession wires up and supervises one session on an accepted connection.
func (s *Server) runSession(ctx context.Context, conn *websocket.Conn) {
	sess := session.NewSession()
	logger := s.logger.With(slog.String("session_id", sess.ID))

	var recorder *session.Recorder
	if s.config.Recording.Enabled {
		var err error
		recorder, err = session.NewRecorder(s.config.Recording.Directory, s.config.Audio.SampleRate)
		if err != nil {
			logger.Error("Failed to create recorder, continuing without",
				slog.String("error", err.Error()),
			)
		}
	}

	streamerConfig := transcription.StreamerConfig{
		BatchSamples:  s.config.Audio.BatchSamples,
		IdleFlush:     s.config.Audio.GetIdleFlushDuration(),
		QueueSize:     s.config.Audio.SubmitQueue,
		SendQueueSize: s.config.Server.SendQueueSize,
	}
	if recorder != nil {
		streamerConfig.PCMSink = recorder.AppendPCM
	}

	decoder := audio.NewFrameDecoder(audio.NewOpusCodec(), s.metrics)
	streamer := transcription.NewStreamer(streamerConfig, s.transcriber, decoder, logger)

	coordinator := chat.NewCoordinator(chat.CoordinatorConfig{
		RetrievalK:    s.config.Chat.RetrievalK,
		QueueSize:     s.config.Chat.QueryQueue,
		SendQueueSize: s.config.Server.SendQueueSize,
	}, s.chatBackend, s.store, logger)

	router := session.NewRouter(sess, streamer, coordinator, s.store, recorder, s.metrics, logger)

	mux := session.NewMultiplexer(
		conn,
		router.Control(),
		[]session.OutputSource{streamer, coordinator},
		s.config.Server.GetPollInterval(),
		s.metrics,
		logger,
	)

	handler := session.NewHandler(sess, conn, session.HandlerConfig{
		MaxMessageBytes: s.config.Server.MaxMessageBytes,
		PollInterval:    s.config.Server.GetPollInterval(),
	}, router, mux, streamer, coordinator, logger)

	s.registry.Add(handler)
	defer s.registry.Remove(handler)

	handler.Run(ctx)
}
