package workers

import (
	"chat-room/contract"
	"chat-room/domain/event"
	"chat-room/errors"
	"chat-room/observability"
	"context"
	"log/slog"
	"sync"
	"time"
)

// EventFanout delivers envelopes to every live connection of the room
// plus a fixed set of permanent sinks (the NATS relay for instance).
//
// Deliveries run in parallel and each one is bounded by sinkTimeout,
// so a slow connection only delays the broadcast by that much.
// A failing recipient never fails the broadcast.
type EventFanout struct {
	log            *slog.Logger
	registry       contract.IRegistry
	permanentSinks []contract.EventSink
	sinkTimeout    time.Duration
	metrics        *observability.Metrics
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry, sinkTimeout time.Duration,
	metrics *observability.Metrics) *EventFanout {
	return &EventFanout{log: log, registry: registry, sinkTimeout: sinkTimeout, metrics: metrics}
}

func (f *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	f.permanentSinks = append(f.permanentSinks, sinks...)
	return f
}

// Broadcast returns once every recipient accepted the envelope or timed out.
func (f *EventFanout) Broadcast(ctx context.Context, e event.Envelope) {
	var wg sync.WaitGroup
	for _, conn := range f.registry.LiveConnections() {
		wg.Add(1)
		go func(conn contract.Connection) {
			defer wg.Done()
			_ = f.Deliver(ctx, conn, e)
		}(conn)
	}
	for _, sink := range f.permanentSinks {
		wg.Add(1)
		go func(sink contract.EventSink) {
			defer wg.Done()
			_ = f.deliver(ctx, "permanent", sink, e)
		}(sink)
	}
	wg.Wait()
}

// Deliver hands one envelope to a single connection.
func (f *EventFanout) Deliver(ctx context.Context, conn contract.Connection, e event.Envelope) error {
	return f.deliver(ctx, conn.ID(), conn, e)
}

func (f *EventFanout) deliver(ctx context.Context, target string, sink contract.EventSink, e event.Envelope) (err error) {
	sinkCtx, cancel := context.WithTimeout(ctx, f.sinkTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = errors.ErrWorkerPanic
			f.log.Error("Sink panicked", "target", target, "type", e.EnvelopeType(), "panic", r)
			f.metrics.DeliveryFailed()
		}
	}()

	if err = sink.Consume(sinkCtx, e); err != nil {
		f.log.Warn("Delivery failed", "target", target, "type", e.EnvelopeType(), "error", err)
		f.metrics.DeliveryFailed()
	}
	return err
}
