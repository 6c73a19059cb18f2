package sink

import (
	"chat-room/domain/event"
	"context"
	"log/slog"
)

// RelaySink hands every broadcast envelope to the relay worker.
// It never blocks the room: envelopes are dropped when the queue is full.
type RelaySink struct {
	log    *slog.Logger
	events chan event.Envelope
}

func NewRelaySink(log *slog.Logger, bufferSize int) *RelaySink {
	return &RelaySink{log: log, events: make(chan event.Envelope, bufferSize)}
}

func (r *RelaySink) Consume(_ context.Context, e event.Envelope) error {
	select {
	case r.events <- e:
	default:
		r.log.Debug("Relay event lost", "type", e.EnvelopeType())
	}
	return nil
}

func (r *RelaySink) Events() <-chan event.Envelope { return r.events }
