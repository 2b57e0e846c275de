package server

import (
	"context"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/coder/websocket"
	"github.com/go-go-golems/angela/pkg/events"
	"github.com/go-go-golems/angela/pkg/orchestrator"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/jsonrpc2"
)

// Server exposes an orchestrator as JSON-RPC 2.0 over WebSocket and forwards every chat event
// published on the router to each connected client as a chat.event notification.
type Server struct {
	orchestrator   *orchestrator.Orchestrator
	router         *events.EventRouter
	originPatterns []string
}

type Option func(*Server)

// WithOriginPatterns allows browser pages from other origins to connect.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) {
		s.originPatterns = append(s.originPatterns, patterns...)
	}
}

func NewServer(o *orchestrator.Orchestrator, router *events.EventRouter, options ...Option) *Server {
	ret := &Server{
		orchestrator: o,
		router:       router,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Handler returns the HTTP handler serving /ws and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to accept websocket")
		return
	}

	s.handleConnection(r.Context(), conn)
}

func (s *Server) handleConnection(ctx context.Context, wsConn *websocket.Conn) {
	connID := uuid.NewString()
	logger := log.With().Str("conn_id", connID).Logger()
	logger.Info().Msg("new connection")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handler := &methodHandler{
		Server: s,
		log:    logger,
	}
	stream := newWebSocketStream(wsConn)
	rpcConn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.AsyncHandler(handler))

	if s.router != nil {
		messages, err := s.router.Subscribe(ctx, events.TopicChat)
		if err != nil {
			logger.Error().Err(err).Msg("could not subscribe to chat events")
		} else {
			go forwardEvents(ctx, rpcConn, messages, logger)
		}
	}

	select {
	case <-rpcConn.DisconnectNotify():
	case <-ctx.Done():
		_ = rpcConn.Close()
	}

	logger.Info().Msg("connection closed")
}

func forwardEvents(ctx context.Context, conn *jsonrpc2.Conn, messages <-chan *message.Message, logger zerolog.Logger) {
	for msg := range messages {
		ev, err := events.NewEventFromJson(msg.Payload)
		if err != nil {
			logger.Warn().Err(err).Msg("dropping malformed chat event")
			msg.Ack()
			continue
		}
		if err := conn.Notify(ctx, NotificationChatEvent, ev); err != nil {
			logger.Debug().Err(err).Str("type", string(ev.Type)).Msg("could not notify client")
		}
		msg.Ack()
	}
}
