package runtime

import (
	"chat-room/contract"
	"chat-room/domain"
	"chat-room/domain/event"
	"chat-room/errors"
	"chat-room/observability"
	"chat-room/runtime/workers"
	"context"
	goerrors "errors"
	"log/slog"
	"sync"
)

// Room is the single shared chat room.
//
// Connects, posts and disconnects are serialized through one command queue,
// so the events caused by one command are fully broadcast before the next
// command starts. Per-connection sinks absorb slow readers.
type Room struct {
	log      *slog.Logger
	store    contract.IMessageStore
	registry contract.IRegistry
	resolver *IdentityResolver
	replay   *HistoryReplay
	fanout   *workers.EventFanout
	censor   contract.Censor
	metrics  *observability.Metrics
	commands chan Command
	closed   chan struct{}
	once     sync.Once
}

func NewRoom(log *slog.Logger, store contract.IMessageStore, registry contract.IRegistry,
	resolver *IdentityResolver, replay *HistoryReplay, fanout *workers.EventFanout,
	metrics *observability.Metrics, bufferSize int) *Room {
	return &Room{
		log:      log,
		store:    store,
		registry: registry,
		resolver: resolver,
		replay:   replay,
		fanout:   fanout,
		metrics:  metrics,
		commands: make(chan Command, bufferSize),
		closed:   make(chan struct{}),
	}
}

// WithCensor rewrites forbidden words of text messages before they are stored.
func (r *Room) WithCensor(censor contract.Censor) *Room {
	r.censor = censor
	return r
}

// Connect resolves the identity, registers conn, sends it init and history,
// then announces the participant to everyone.
func (r *Room) Connect(ctx context.Context, conn contract.Connection, candidateID string) (domain.Participant, error) {
	cmd := ConnectCommand{Conn: conn, CandidateID: candidateID, reply: newReply()}
	result, err := r.submit(ctx, cmd, cmd.reply)
	return result.Participant, err
}

// Post stores a message from a registered connection and broadcasts it.
func (r *Room) Post(ctx context.Context, conn contract.Connection, draft domain.Draft) (domain.Message, error) {
	cmd := PostCommand{Conn: conn, Draft: draft, reply: newReply()}
	result, err := r.submit(ctx, cmd, cmd.reply)
	return result.Message, err
}

// Disconnect is idempotent: only the first call for a connection broadcasts anything.
// The command is always queued, whatever ctx says, unless the room is closed;
// ctx only bounds the wait for its completion.
func (r *Room) Disconnect(ctx context.Context, conn contract.Connection) error {
	cmd := DisconnectCommand{Conn: conn, reply: newReply()}
	if err := r.enqueue(context.Background(), cmd); err != nil {
		return err
	}
	_, err := r.await(ctx, cmd.reply)
	return err
}

// OnlineCount is the number of live connections, not of distinct participants.
func (r *Room) OnlineCount() int { return r.registry.LiveCount() }

// Close refuses every command submitted afterwards. Commands already queued are dropped with the room.
func (r *Room) Close() {
	r.once.Do(func() { close(r.closed) })
}

func (r *Room) submit(ctx context.Context, cmd Command, reply <-chan Result) (Result, error) {
	if err := r.enqueue(ctx, cmd); err != nil {
		return Result{}, err
	}
	return r.await(ctx, reply)
}

func (r *Room) enqueue(ctx context.Context, cmd Command) error {
	select {
	case <-r.closed:
		return errors.ErrRoomClosed
	default:
	}
	select {
	case r.commands <- cmd:
		return nil
	case <-r.closed:
		return errors.ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) await(ctx context.Context, reply <-chan Result) (Result, error) {
	select {
	case result := <-reply:
		return result, result.Err
	case <-r.closed:
		return Result{}, errors.ErrRoomClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Run is the room actor loop. It is meant to be supervised:
// a panic fails the current command and the room is restarted with its registry intact.
func (r *Room) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.log.Debug("Stopping room")
			return ctx.Err()
		case cmd := <-r.commands:
			r.process(ctx, cmd)
		}
	}
}

func (r *Room) process(ctx context.Context, cmd Command) {
	defer func() {
		if rec := recover(); rec != nil {
			cmd.respond(Result{Err: errors.ErrWorkerPanic})
			panic(rec)
		}
	}()

	switch c := cmd.(type) {
	case ConnectCommand:
		participant, err := r.connect(ctx, c.Conn, c.CandidateID)
		c.respond(Result{Participant: participant, Err: err})
	case PostCommand:
		message, err := r.post(ctx, c.Conn, c.Draft)
		c.respond(Result{Message: message, Err: err})
	case DisconnectCommand:
		r.disconnect(ctx, c.Conn)
		c.respond(Result{})
	default:
		r.log.Warn("Unknown command", "command", cmd)
	}
}

func (r *Room) connect(ctx context.Context, conn contract.Connection, candidateID string) (domain.Participant, error) {
	participant, err := r.resolver.Resolve(ctx, candidateID)
	if err != nil {
		if goerrors.Is(err, errors.ErrIdentityRejected) {
			r.metrics.IdentityRejected()
			r.log.Warn("Identity rejected", "connection_id", conn.ID(), "error", err)
		} else {
			r.metrics.StorageFailed()
			r.log.Error("Unable to resolve identity", "connection_id", conn.ID(), "error", err)
		}
		return domain.Participant{}, err
	}

	if err := r.registry.Register(conn, participant); err != nil {
		return domain.Participant{}, err
	}
	// Nobody has heard of the connection yet: without init it is dropped silently.
	if err := r.fanout.Deliver(ctx, conn, event.NewInit(participant)); err != nil {
		r.registry.Unregister(conn)
		return domain.Participant{}, err
	}
	count := r.registry.LiveCount()
	r.metrics.SetOnline(count)

	if err := r.replay.Replay(ctx, conn); err != nil {
		if goerrors.Is(err, errors.ErrStorageFailure) {
			r.metrics.StorageFailed()
		}
		r.log.Error("Unable to replay history", "connection_id", conn.ID(), "error", err)
	}

	r.fanout.Broadcast(ctx, event.NewUserJoin(participant))
	r.fanout.Broadcast(ctx, event.NewOnlineCount(count))

	r.log.Info("Participant joined", "participant_id", participant.ID, "connection_id", conn.ID(), "online", count)
	return participant, nil
}

func (r *Room) post(ctx context.Context, conn contract.Connection, draft domain.Draft) (domain.Message, error) {
	if !r.registry.IsRegistered(conn) {
		return domain.Message{}, errors.ErrNotRegistered
	}
	participant, ok := conn.Participant()
	if !ok {
		return domain.Message{}, errors.ErrNotRegistered
	}

	draft.SenderID = participant.ID
	if r.censor != nil && draft.Kind == domain.KindText {
		if verdict := r.censor.Inspect(draft.Content); verdict.Censored() {
			r.log.Info("Message censored", "participant_id", participant.ID,
				"words", verdict.CensoredWords, "language", verdict.Language)
			draft.Content = verdict.Content
		}
	}

	message, err := r.store.Append(ctx, draft)
	if err != nil {
		if goerrors.Is(err, errors.ErrStorageFailure) {
			r.metrics.StorageFailed()
		}
		r.log.Error("Unable to store message", "participant_id", participant.ID, "error", err)
		return domain.Message{}, err
	}
	r.metrics.MessageStored(message.Kind)

	r.fanout.Broadcast(ctx, event.NewMessagePosted(message, participant.AsSender()))
	return message, nil
}

func (r *Room) disconnect(ctx context.Context, conn contract.Connection) {
	participant, ok := r.registry.Unregister(conn)
	if !ok {
		return
	}
	count := r.registry.LiveCount()
	r.metrics.SetOnline(count)

	r.fanout.Broadcast(ctx, event.NewUserLeave(participant))
	r.fanout.Broadcast(ctx, event.NewOnlineCount(count))

	r.log.Info("Participant left", "participant_id", participant.ID, "connection_id", conn.ID(), "online", count)
}
