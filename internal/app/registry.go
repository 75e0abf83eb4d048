package app

import (
	"fmt"
	"sync"

	"github.com/dkeye/meetassist/internal/core"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	Conn     core.Connection
	Teardown func()
}

// Registry tracks live connections by id. It owns the accept/close
// lifecycle: Unregister runs the owner's teardown once and closes the
// transport.
type Registry struct {
	name    string
	mu      sync.RWMutex
	entries map[core.SessionID]*connEntry
}

func NewRegistry(name string) *Registry {
	return &Registry{
		name:    name,
		entries: make(map[core.SessionID]*connEntry),
	}
}

// Register stores conn under sid. teardown may be nil.
func (r *Registry) Register(sid core.SessionID, conn core.Connection, teardown func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[sid]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, sid)
	}
	r.entries[sid] = &connEntry{Conn: conn, Teardown: teardown}
	log.Info().Str("module", "app.registry").Str("registry", r.name).Str("sid", string(sid)).Msg("registered")
	return nil
}

// Unregister removes sid, runs its teardown and closes its connection.
// Unknown ids are ignored.
func (r *Registry) Unregister(sid core.SessionID) bool {
	return r.remove(sid, nil)
}

// UnregisterConn is Unregister guarded by identity: it only removes the
// entry if it still holds conn. Read loops use it on exit so a stale loop
// never tears down a newer connection that reused the id.
func (r *Registry) UnregisterConn(sid core.SessionID, conn core.Connection) bool {
	return r.remove(sid, conn)
}

func (r *Registry) remove(sid core.SessionID, want core.Connection) bool {
	r.mu.Lock()
	e, ok := r.entries[sid]
	if !ok || (want != nil && e.Conn != want) {
		r.mu.Unlock()
		return false
	}
	delete(r.entries, sid)
	r.mu.Unlock()

	// Outside the lock: teardown may call back into other registries.
	if e.Teardown != nil {
		e.Teardown()
	}
	e.Conn.Close()
	log.Info().Str("module", "app.registry").Str("registry", r.name).Str("sid", string(sid)).Msg("unregistered")
	return true
}

// Send queues f for sid. The caller must Unregister sid when ErrSendFailed
// is returned.
func (r *Registry) Send(sid core.SessionID, f core.Frame) error {
	r.mu.RLock()
	e, ok := r.entries[sid]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotConnected, sid)
	}
	if err := e.Conn.TrySend(f); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSendFailed, sid, err)
	}
	return nil
}

func (r *Registry) Has(sid core.SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[sid]
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// CloseAll unregisters every connection. Used on server shutdown.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	ids := make([]core.SessionID, 0, len(r.entries))
	for sid := range r.entries {
		ids = append(ids, sid)
	}
	r.mu.RUnlock()
	for _, sid := range ids {
		r.Unregister(sid)
	}
}
