// Package presence tracks which users currently hold live connections to
// this process.
package presence

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Registry maps a user to the set of connection ids open for them.
// State is process-local; two server instances do not see each other's
// connections.
type Registry struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[uuid.UUID]map[string]struct{})}
}

// Connect records connID as live for userID.
func (r *Registry) Connect(userID uuid.UUID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		r.conns[userID] = set
	}
	set[connID] = struct{}{}
}

// Disconnect removes connID. The user's entry disappears with its last
// connection. Unknown pairs are ignored.
func (r *Registry) Disconnect(userID uuid.UUID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.conns, userID)
	}
}

// Get returns a sorted snapshot of the user's connection ids.
func (r *Registry) Get(userID uuid.UUID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.conns[userID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Online reports whether the user has at least one connection.
func (r *Registry) Online(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// Count returns the number of users with at least one connection.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
