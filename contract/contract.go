//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-room/domain"
	"chat-room/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives envelopes. A failing sink only affects itself.
type EventSink interface {
	Consume(ctx context.Context, e event.Envelope) error
}

// Connection is the per-connection context carried alongside the transport handle.
// The participant is attached once at registration and read back from here,
// never from a coordinator-side table.
type Connection interface {
	EventSink
	ID() string
	Attach(participant domain.Participant) error
	Participant() (domain.Participant, bool)
}

type IRegistry interface {
	Register(conn Connection, participant domain.Participant) error
	Unregister(conn Connection) (domain.Participant, bool)
	IsRegistered(conn Connection) bool
	LiveConnections() []Connection
	LiveCount() int
}

// IMessageStore is the durable, append-only log of messages plus the participant table.
type IMessageStore interface {
	Append(ctx context.Context, draft domain.Draft) (domain.Message, error)
	RecentMessages(ctx context.Context, limit int) ([]domain.Message, error)
	CreateParticipant(ctx context.Context, displayName string) (domain.Participant, error)
	FindParticipant(ctx context.Context, id string) (domain.Participant, error)
	FindParticipants(ctx context.Context, ids []string) (map[string]domain.Participant, error)
}

// Censor rewrites forbidden words in text content.
type Censor interface {
	Inspect(content string) domain.Verdict
}

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}
