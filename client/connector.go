// Package client implements the client side of the room protocol:
// it keeps a connection open and keeps the participant identity across reconnects.
package client

import (
	"chat-room/domain"
	"chat-room/domain/event"
	"chat-room/errors"
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
)

type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	StateOpen         State = "OPEN"
	StateRejected     State = "REJECTED"
)

// Inbound is any server envelope; only the fields of its Type are set.
type Inbound struct {
	Type        event.Type          `json:"type"`
	Participant domain.Participant  `json:"participant"`
	Messages    []event.ChatMessage `json:"messages"`
	Message     domain.Message      `json:"message"`
	Sender      domain.Sender       `json:"sender"`
	Count       int                 `json:"count"`
}

type outbound struct {
	Type        string           `json:"type"`
	Content     string           `json:"content"`
	MessageType domain.Kind      `json:"messageType"`
	Metadata    *domain.Metadata `json:"metadata,omitempty"`
}

type Option func(c *Connector)

func WithBackoff(b *backoff.ExponentialBackOff) Option {
	return func(c *Connector) { c.backoff = b }
}

// OnEnvelope is called from the read loop for every decoded envelope.
func OnEnvelope(fn func(Inbound)) Option {
	return func(c *Connector) { c.onEnvelope = fn }
}

func OnState(fn func(State)) Option {
	return func(c *Connector) { c.onState = fn }
}

// Connector runs DISCONNECTED -> CONNECTING -> {OPEN, REJECTED} until its context ends.
// A rejection clears the stored identity and reconnects at once as a fresh participant;
// any other failure waits for the backoff and keeps the identity.
type Connector struct {
	log        *slog.Logger
	endpoint   string
	identities IdentityStore
	backoff    *backoff.ExponentialBackOff
	onEnvelope func(Inbound)
	onState    func(State)

	mu          sync.Mutex
	state       State
	conn        *websocket.Conn
	participant domain.Participant
}

func NewConnector(log *slog.Logger, endpoint string, identities IdentityStore, options ...Option) *Connector {
	c := &Connector{
		log:        log,
		endpoint:   endpoint,
		identities: identities,
		backoff:    backoff.NewExponentialBackOff(),
		onEnvelope: func(Inbound) {},
		onState:    func(State) {},
		state:      StateDisconnected,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Connector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Participant is the identity acknowledged by the last init envelope.
func (c *Connector) Participant() domain.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.participant
}

// Run returns nil once ctx is done.
func (c *Connector) Run(ctx context.Context) error {
	fresh := false
	for {
		err := c.session(ctx, fresh)
		fresh = false
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return nil
		}

		if goerrors.Is(err, errors.ErrIdentityRejected) {
			c.setState(StateRejected)
			c.log.Warn("Identity rejected, reconnecting as a new participant", "error", err)
			if clearErr := c.identities.Clear(); clearErr != nil {
				c.log.Error("Unable to clear stored identity", "error", clearErr)
			}
			// Even if the file could not be cleared, the next attempt carries no id.
			fresh = true
			continue
		}

		c.setState(StateDisconnected)
		wait := c.backoff.NextBackOff()
		c.log.Warn("Connection lost, retrying", "in", wait, "error", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// Send posts a message on the open connection.
func (c *Connector) Send(ctx context.Context, kind domain.Kind, content string, metadata *domain.Metadata) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.ErrConnectionClosed
	}
	data, err := json.Marshal(outbound{Type: "message", Content: content, MessageType: kind, Metadata: metadata})
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func (c *Connector) session(ctx context.Context, fresh bool) error {
	participantID := ""
	if !fresh {
		stored, err := c.identities.Load()
		if err != nil {
			c.log.Warn("Unable to read stored identity", "error", err)
		}
		participantID = stored
	}

	c.setState(StateConnecting)
	conn, _, err := websocket.Dial(ctx, c.target(participantID), nil)
	if err != nil {
		return err
	}
	defer conn.CloseNow()
	c.setConn(conn)
	defer c.setConn(nil)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusCode(event.CloseIdentityRejected) {
				return fmt.Errorf("%w: %s", errors.ErrIdentityRejected, participantID)
			}
			return err
		}

		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			c.log.Warn("Ignoring undecodable envelope", "error", err)
			continue
		}
		if in.Type == event.TypeInit {
			c.opened(in.Participant)
		}
		c.onEnvelope(in)
	}
}

func (c *Connector) opened(participant domain.Participant) {
	if err := c.identities.Save(participant.ID); err != nil {
		c.log.Error("Unable to store identity", "participant_id", participant.ID, "error", err)
	}
	c.backoff.Reset()
	c.mu.Lock()
	c.participant = participant
	c.mu.Unlock()
	c.setState(StateOpen)
	c.log.Info("Connected", "participant_id", participant.ID, "name", participant.DisplayName)
}

func (c *Connector) target(participantID string) string {
	if participantID == "" {
		return c.endpoint
	}
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return c.endpoint
	}
	query := u.Query()
	query.Set(event.IdentityQueryParam, participantID)
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Connector) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
}

func (c *Connector) setState(state State) {
	c.mu.Lock()
	changed := c.state != state
	c.state = state
	c.mu.Unlock()
	if changed {
		c.onState(state)
	}
}
