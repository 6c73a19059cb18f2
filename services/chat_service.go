package services

import (
	"chat-room/contract"
	"chat-room/domain"
	"chat-room/domain/event"
	"chat-room/observability"
	"chat-room/runtime"
	"context"
	"log/slog"
)

// IChatService is what the transport sees of the room.
type IChatService interface {
	Join(ctx context.Context, conn contract.Connection, candidateID string) (domain.Participant, error)
	Post(ctx context.Context, conn contract.Connection, payload []byte) (domain.Message, error)
	Leave(ctx context.Context, conn contract.Connection)
	OnlineCount() int
}

type ChatService struct {
	log     *slog.Logger
	room    *runtime.Room
	metrics *observability.Metrics
}

func NewChatService(log *slog.Logger, room *runtime.Room, metrics *observability.Metrics) *ChatService {
	return &ChatService{log: log, room: room, metrics: metrics}
}

func (s *ChatService) Join(ctx context.Context, conn contract.Connection, candidateID string) (domain.Participant, error) {
	return s.room.Connect(ctx, conn, candidateID)
}

// Post decodes a raw client payload and hands it to the room.
// Malformed payloads never reach the room.
func (s *ChatService) Post(ctx context.Context, conn contract.Connection, payload []byte) (domain.Message, error) {
	draft, err := event.ParseClientMessage(payload)
	if err != nil {
		s.metrics.MalformedMessage()
		s.log.Warn("Dropping malformed client message", "connection_id", conn.ID(), "error", err)
		return domain.Message{}, err
	}
	return s.room.Post(ctx, conn, draft)
}

func (s *ChatService) Leave(ctx context.Context, conn contract.Connection) {
	if err := s.room.Disconnect(ctx, conn); err != nil {
		s.log.Warn("Unable to leave room", "connection_id", conn.ID(), "error", err)
	}
}

func (s *ChatService) OnlineCount() int { return s.room.OnlineCount() }
