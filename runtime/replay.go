package runtime

import (
	"chat-room/contract"
	"chat-room/domain"
	"chat-room/domain/event"
	"context"

	"github.com/samber/lo"
)

// Deliverer hands one envelope to one connection.
type Deliverer interface {
	Deliver(ctx context.Context, conn contract.Connection, e event.Envelope) error
}

// HistoryReplay sends the most recent messages, oldest first, to a freshly registered connection.
type HistoryReplay struct {
	store     contract.IMessageStore
	deliverer Deliverer
	limit     int
}

func NewHistoryReplay(store contract.IMessageStore, deliverer Deliverer, limit int) *HistoryReplay {
	return &HistoryReplay{store: store, deliverer: deliverer, limit: limit}
}

// Replay always delivers exactly one history_messages envelope when history can be read,
// an empty one for an empty room.
func (h *HistoryReplay) Replay(ctx context.Context, conn contract.Connection) error {
	history, err := h.History(ctx)
	if err != nil {
		return err
	}
	return h.deliverer.Deliver(ctx, conn, event.NewHistoryMessages(history))
}

// History annotates every recent message with its sender.
// Senders are looked up in one batch; an unknown one gets a placeholder name.
func (h *HistoryReplay) History(ctx context.Context) ([]event.ChatMessage, error) {
	messages, err := h.store.RecentMessages(ctx, h.limit)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return []event.ChatMessage{}, nil
	}

	senderIDs := lo.Uniq(lo.Map(messages, func(m domain.Message, _ int) string { return m.SenderID }))
	senders, err := h.store.FindParticipants(ctx, senderIDs)
	if err != nil {
		return nil, err
	}

	return lo.Map(messages, func(m domain.Message, _ int) event.ChatMessage {
		sender := domain.Sender{ID: m.SenderID, Name: domain.UnknownSenderName}
		if p, ok := senders[m.SenderID]; ok {
			sender = p.AsSender()
		}
		return event.ChatMessage{Message: m, Sender: sender}
	}), nil
}
