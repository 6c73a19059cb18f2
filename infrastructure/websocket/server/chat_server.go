package server

import (
	"chat-room/domain/event"
	"chat-room/errors"
	"chat-room/observability"
	"chat-room/services"
	"chat-room/sink"
	"context"
	"encoding/json"
	goerrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type Config struct {
	ConnectionBufferSize int
	WriteTimeout         time.Duration
	PingInterval         time.Duration
	LeaveTimeout         time.Duration
	MaxMessageBytes      int64
	MessageRate          float64
	MessageBurst         int
	OriginPatterns       []string
}

// ChatServer upgrades HTTP requests to WebSocket connections on the room.
type ChatServer struct {
	log         *slog.Logger
	chatService services.IChatService
	metrics     *observability.Metrics
	config      Config
}

const (
	defaultWriteTimeout = 10 * time.Second
	defaultLeaveTimeout = 5 * time.Second
)

func NewChatServer(log *slog.Logger, chatService services.IChatService, metrics *observability.Metrics, config Config) *ChatServer {
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaultWriteTimeout
	}
	if config.LeaveTimeout <= 0 {
		config.LeaveTimeout = defaultLeaveTimeout
	}
	return &ChatServer{log: log, chatService: chatService, metrics: metrics, config: config}
}

// ServeHTTP blocks until the client goes away.
// An unknown identity token is answered by closing with event.CloseIdentityRejected
// right after the upgrade.
func (s *ChatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.config.OriginPatterns})
	if err != nil {
		s.log.Warn("Unable to accept connection", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.CloseNow()
	if s.config.MaxMessageBytes > 0 {
		conn.SetReadLimit(s.config.MaxMessageBytes)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	connection := sink.NewConnectionSink(uuid.NewString(), s.log, s.config.ConnectionBufferSize)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(ctx, cancel, conn, connection)
	}()
	defer func() {
		connection.Close()
		cancel()
		<-writerDone
	}()

	participant, err := s.chatService.Join(ctx, connection, r.URL.Query().Get(event.IdentityQueryParam))
	defer s.leave(connection)
	if err != nil {
		s.reject(conn, connection.ID(), err)
		return
	}
	s.log.Info("Connection opened", "connection_id", connection.ID(), "participant_id", participant.ID)

	s.readLoop(ctx, conn, connection)
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

func (s *ChatServer) reject(conn *websocket.Conn, connectionID string, err error) {
	if goerrors.Is(err, errors.ErrIdentityRejected) {
		s.log.Info("Connection rejected", "connection_id", connectionID, "error", err)
		_ = conn.Close(websocket.StatusCode(event.CloseIdentityRejected), "identity_rejected")
		return
	}
	s.log.Error("Unable to join room", "connection_id", connectionID, "error", err)
	_ = conn.Close(websocket.StatusTryAgainLater, "room unavailable")
}

// leave runs on a fresh context: the request context is usually gone by then.
// The disconnect is queued even when the room is busy; the timeout only bounds the wait.
func (s *ChatServer) leave(connection *sink.ConnectionSink) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.LeaveTimeout)
	defer cancel()
	s.chatService.Leave(ctx, connection)
}

func (s *ChatServer) readLoop(ctx context.Context, conn *websocket.Conn, connection *sink.ConnectionSink) {
	limit := rate.Inf
	if s.config.MessageRate > 0 {
		limit = rate.Limit(s.config.MessageRate)
	}
	limiter := rate.NewLimiter(limit, max(s.config.MessageBurst, 1))

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				s.log.Info("Client disconnected", "connection_id", connection.ID())
			default:
				s.log.Debug("Read ended", "connection_id", connection.ID(), "error", err)
			}
			return
		}
		if typ != websocket.MessageText && typ != websocket.MessageBinary {
			continue
		}
		if !limiter.Allow() {
			s.metrics.RateLimited()
			s.log.Warn("Dropping client message", "connection_id", connection.ID(), "error", errors.ErrRateLimited)
			continue
		}
		// Failures are logged by the service and the room; the connection stays open.
		_, _ = s.chatService.Post(ctx, connection, data)
	}
}

// writeLoop is the only writer of data frames on conn.
func (s *ChatServer) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, connection *sink.ConnectionSink) {
	pingInterval := s.config.PingInterval
	if pingInterval <= 0 {
		pingInterval = time.Hour
	}
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-connection.Done():
			return
		case e := <-connection.Outbound():
			data, err := json.Marshal(e)
			if err != nil {
				s.log.Error("Unable to encode envelope", "type", e.EnvelopeType(), "error", err)
				continue
			}
			if err := s.write(ctx, conn, data); err != nil {
				s.log.Debug("Write failed", "connection_id", connection.ID(), "error", err)
				connection.Close()
				cancel()
				return
			}
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, s.config.WriteTimeout)
			err := conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				s.log.Debug("Ping failed", "connection_id", connection.ID(), "error", err)
				connection.Close()
				cancel()
				return
			}
		}
	}
}

func (s *ChatServer) write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, s.config.WriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
