package game

import "sync"

// Conn is a logical connection as the session core sees it. Send and Close
// must not block; Close must not call back into the Manager. Alive must
// report false as soon as Close returns.
type Conn interface {
	ID() string
	Identity() PlayerIdentity
	Send(event string, payload interface{}) error
	Close(reason string)
	Alive() bool
}

// Registry maps a player identity to its single live connection.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Register maps identityID to c. A different connection already registered
// for the identity is closed before the mapping is replaced and returned.
func (r *Registry) Register(identityID string, c Conn) Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.conns[identityID]
	if ok && prev.ID() != c.ID() {
		prev.Close("replaced by new connection")
	} else {
		prev = nil
	}
	r.conns[identityID] = c
	return prev
}

// Unregister removes the mapping only if it still points at c.
func (r *Registry) Unregister(identityID string, c Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.conns[identityID]
	if !ok || cur.ID() != c.ID() {
		return false
	}
	delete(r.conns, identityID)
	return true
}

func (r *Registry) Lookup(identityID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[identityID]
	return c, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
