// Package runtime runs the chat room: identity resolution, the connection registry,
// history replay and the room actor. It wires them under a supervisor.
package runtime

import (
	"chat-room/contract"
	"chat-room/domain"
	"chat-room/observability"
	"chat-room/runtime/workers"
	"chat-room/sink"
	"context"
	"log/slog"
	"sync"
	"time"
)

type Config struct {
	HistoryLimit   int
	BufferSize     int
	SinkTimeout    time.Duration
	// MetricInterval enables queue sampling when positive.
	MetricInterval time.Duration
}

type Orchestrator struct {
	mu          sync.Mutex
	log         *slog.Logger
	supervisor  contract.ISupervisor
	registry    *Registry
	fanout      *workers.EventFanout
	room        *Room
	relayWorker contract.Worker
	queues      []workers.NamedChannel
	metrics     *observability.Metrics
	config      Config
	cancel      context.CancelFunc
	done        chan struct{}
	started     bool
}

type Option func(o *Orchestrator, config Config)

// WithCensor enables moderation of text messages.
func WithCensor(censor contract.Censor) Option {
	return func(o *Orchestrator, _ Config) {
		o.room.WithCensor(censor)
	}
}

// WithRelay republishes every broadcast envelope through publisher.
func WithRelay(publisher contract.Publisher, subject string) Option {
	return func(o *Orchestrator, config Config) {
		relaySink := sink.NewRelaySink(o.log, config.BufferSize)
		o.fanout.Add(relaySink)
		o.relayWorker = workers.NewRelayWorker(o.log, publisher, subject, relaySink.Events())
		o.queues = append(o.queues, workers.NamedChannel{Name: "relay_events", Channel: relaySink.Events()})
	}
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, store contract.IMessageStore,
	metrics *observability.Metrics, config Config, options ...Option) *Orchestrator {
	registry := NewRegistry()
	fanout := workers.NewEventFanout(log, registry, config.SinkTimeout, metrics)
	resolver := NewIdentityResolver(log, store, domain.NewRandomNameGenerator())
	replay := NewHistoryReplay(store, fanout, config.HistoryLimit)

	o := &Orchestrator{
		log:        log,
		supervisor: supervisor,
		registry:   registry,
		fanout:     fanout,
		room:       NewRoom(log, store, registry, resolver, replay, fanout, metrics, config.BufferSize),
		metrics:    metrics,
		config:     config,
		done:       make(chan struct{}),
	}
	o.queues = append(o.queues, workers.NamedChannel{Name: "room_commands", Channel: o.room.commands})
	for _, option := range options {
		option(o, config)
	}
	return o
}

func (o *Orchestrator) Room() *Room { return o.room }

// Start adds the room and the optional relay to the supervisor and runs it in the background.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return nil
	}
	o.started = true

	o.supervisor.Add(o.room)
	if o.relayWorker != nil {
		o.supervisor.Add(o.relayWorker)
	}
	if o.config.MetricInterval > 0 {
		o.supervisor.Add(workers.NewChannelCapacityWorker(o.log, o.queues, o.metrics, o.config.MetricInterval))
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	go func() {
		defer close(o.done)
		o.supervisor.Run(runCtx)
	}()
	o.log.Info("Room started")
	return nil
}

// Stop cancels every worker and waits for them to return.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	started, cancel := o.started, o.cancel
	o.mu.Unlock()
	if !started {
		return
	}
	cancel()
	<-o.done
	o.room.Close()
	o.log.Info("Room stopped")
}
