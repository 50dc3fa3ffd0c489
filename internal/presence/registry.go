// Package presence maps authenticated user ids to their live websocket
// connection. The registry is process-local and deliberately partial in a
// horizontally-scaled deployment: the event bus delivers every event to
// every process, and each process only acts on users it holds here.
package presence

import "sync"

// Conn is the connection handle stored per user. The gateway's client
// type implements it; the registry only needs identity comparison and a
// way to push an encoded frame.
type Conn interface {
	// Send enqueues an encoded frame, dropping it if the client's buffer
	// is full.
	Send(data []byte)
}

type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: map[string]Conn{}}
}

// Register makes userID addressable. A reconnect simply overwrites the
// previous handle.
func (r *Registry) Register(userID string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[userID] = c
}

// Unregister removes the mapping only if it still points at c. When a
// client reconnects before the old connection's teardown runs, the stale
// teardown must not evict the fresh handle.
func (r *Registry) Unregister(userID string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.conns[userID]; ok && cur == c {
		delete(r.conns, userID)
	}
}

// Lookup returns the live connection for userID, if this process holds one.
func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[userID]
	return c, ok
}

// Count reports connected users on this process. Metrics helper.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
