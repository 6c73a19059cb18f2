package sink

import (
	"chat-room/domain"
	"chat-room/domain/event"
	"chat-room/errors"
	"context"
	"log/slog"
	"sync"
)

// ConnectionSink is the per-connection context object.
// It owns the bounded outbound queue drained by the transport writer and
// carries the participant attached at registration.
type ConnectionSink struct {
	id          string
	log         *slog.Logger
	outbound    chan event.Envelope
	done        chan struct{}
	closeOnce   sync.Once
	mu          sync.RWMutex
	participant *domain.Participant
}

func NewConnectionSink(id string, log *slog.Logger, bufferSize int) *ConnectionSink {
	return &ConnectionSink{
		id:       id,
		log:      log,
		outbound: make(chan event.Envelope, bufferSize),
		done:     make(chan struct{}),
	}
}

func (c *ConnectionSink) ID() string { return c.id }

// Attach binds the participant to this connection. It succeeds exactly once.
func (c *ConnectionSink) Attach(participant domain.Participant) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.participant != nil {
		return errors.ErrAlreadyAttached
	}
	c.participant = &participant
	return nil
}

func (c *ConnectionSink) Participant() (domain.Participant, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.participant == nil {
		return domain.Participant{}, false
	}
	return *c.participant, true
}

// Consume queues an envelope for the writer.
// It waits for room in the queue until ctx is done.
func (c *ConnectionSink) Consume(ctx context.Context, e event.Envelope) error {
	select {
	case <-c.done:
		return errors.ErrConnectionClosed
	default:
	}
	select {
	case c.outbound <- e:
		return nil
	case <-c.done:
		return errors.ErrConnectionClosed
	case <-ctx.Done():
		c.log.Debug("Outbound queue full", "connection_id", c.id, "type", e.EnvelopeType())
		return errors.ErrDeliveryTimeout
	}
}

// Outbound is drained by the transport writer.
func (c *ConnectionSink) Outbound() <-chan event.Envelope { return c.outbound }

// Done is closed once the connection is closed.
func (c *ConnectionSink) Done() <-chan struct{} { return c.done }

// Close stops further deliveries. The outbound channel itself is never closed,
// so late broadcasts fail with ErrConnectionClosed instead of panicking.
func (c *ConnectionSink) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
