package workers

import (
	"chat-room/contract"
	"chat-room/domain/event"
	"context"
	"encoding/json"
	"log/slog"
)

// RelayWorker republishes every broadcast envelope on a NATS subject
// so that observers outside the process can follow the room.
type RelayWorker struct {
	log       *slog.Logger
	publisher contract.Publisher
	subject   string
	events    <-chan event.Envelope
}

func NewRelayWorker(log *slog.Logger, publisher contract.Publisher, subject string, events <-chan event.Envelope) RelayWorker {
	return RelayWorker{log: log, publisher: publisher, subject: subject, events: events}
}

func (w RelayWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-w.events:
			data, err := json.Marshal(e)
			if err != nil {
				w.log.Warn("Unable to encode relay envelope", "type", e.EnvelopeType(), "error", err)
				continue
			}
			if err := w.publisher.Publish(w.subject, data); err != nil {
				w.log.Warn("Unable to publish relay envelope", "subject", w.subject, "error", err)
			}
		}
	}
}
