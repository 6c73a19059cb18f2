package runtime

import (
	"chat-room/contract"
	"chat-room/domain"
	"chat-room/errors"
	"sync"
)

// Registry tracks the live connections of the room.
// The participant of a connection lives on the connection itself;
// the registry only knows which connections are live.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]contract.Connection
}

func NewRegistry() *Registry {
	return &Registry{connections: make(map[string]contract.Connection)}
}

// Register attaches participant to conn and makes conn a delivery target.
// It must be called exactly once per connection.
func (r *Registry) Register(conn contract.Connection, participant domain.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.connections[conn.ID()]; exists {
		return errors.ErrAlreadyAttached
	}
	if err := conn.Attach(participant); err != nil {
		return err
	}
	r.connections[conn.ID()] = conn
	return nil
}

// Unregister removes conn and returns the participant it carried.
// Unregistering an unknown connection is a no-op.
func (r *Registry) Unregister(conn contract.Connection) (domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.connections[conn.ID()]; !exists {
		return domain.Participant{}, false
	}
	delete(r.connections, conn.ID())
	return conn.Participant()
}

func (r *Registry) IsRegistered(conn contract.Connection) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.connections[conn.ID()]
	return exists
}

// LiveConnections returns a snapshot; callers may use it after the registry changes.
func (r *Registry) LiveConnections() []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	live := make([]contract.Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		live = append(live, conn)
	}
	return live
}

func (r *Registry) LiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}
