package game

import "sync"

// Role is what a connection is bound as inside a room.
type Role string

const (
	RoleGM      Role = "gm"
	RoleDisplay Role = "display"
	RolePlayer  Role = "player"
)

// Binding ties a transient connection to a room and, for players, a durable player id.
type Binding struct {
	RoomCode string
	PlayerID string
	Role     Role
}

// Registry maps connection ids to identities. The same player id may be bound to
// many connections over its lifetime; rooms decide which one is current.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]Binding
}

func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]Binding)}
}

func (r *Registry) Bind(connID string, b Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[connID] = b
}

// Unbind removes and returns the binding of connID.
func (r *Registry) Unbind(connID string) (Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bindings[connID]
	delete(r.bindings, connID)
	return b, ok
}

func (r *Registry) Lookup(connID string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[connID]
	return b, ok
}

// UnbindRoom drops every binding that points at code and returns the connection ids.
func (r *Registry) UnbindRoom(code string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var conns []string
	for conn, b := range r.bindings {
		if b.RoomCode == code {
			conns = append(conns, conn)
			delete(r.bindings, conn)
		}
	}
	return conns
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}
