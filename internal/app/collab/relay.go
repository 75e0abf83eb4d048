// Package collab relays opaque document-sync updates between the members
// of a room and replays the last update to late joiners.
package collab

import (
	"fmt"
	"sync"

	"github.com/dkeye/meetassist/internal/core"
	"github.com/dkeye/meetassist/internal/domain"
	"github.com/rs/zerolog/log"
)

// Lock order: Relay.mu, then room.mu.
type Relay struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*room

	retain   bool
	retained map[domain.RoomID][]byte
}

type Option func(*Relay)

// WithRetainSnapshots keeps a room's snapshot after its last member
// leaves, so the next joiner resumes the document instead of starting
// empty.
func WithRetainSnapshots(retain bool) Option {
	return func(r *Relay) { r.retain = retain }
}

func NewRelay(opts ...Option) *Relay {
	r := &Relay{
		rooms:    make(map[domain.RoomID]*room),
		retained: make(map[domain.RoomID][]byte),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Join adds member to the room, creating it if needed. A non-empty
// snapshot is queued to conn before Join returns, so it precedes every
// later broadcast.
func (r *Relay) Join(id domain.RoomID, member domain.MemberID, conn core.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[id]
	if !ok {
		rm = newRoom(id, r.retained[id])
		delete(r.retained, id)
		r.rooms[id] = rm
		log.Info().Str("module", "app.collab").Str("room", string(id)).Msg("room created")
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if _, dup := rm.members[member]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateMember, member)
	}
	if len(rm.snapshot) > 0 {
		if err := conn.TrySend(core.Frame(rm.snapshot)); err != nil {
			if len(rm.members) == 0 {
				r.destroyLocked(rm)
			}
			return fmt.Errorf("replay snapshot: %w", err)
		}
	}
	rm.members[member] = conn
	log.Debug().Str("module", "app.collab").Str("room", string(id)).Str("member", string(member)).
		Int("members", len(rm.members)).Msg("joined")
	return nil
}

// Leave removes member. The room is destroyed with its last member.
// Unknown rooms and members are ignored.
func (r *Relay) Leave(id domain.RoomID, member domain.MemberID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[id]
	if !ok {
		return false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if _, ok := rm.members[member]; !ok {
		return false
	}
	delete(rm.members, member)
	log.Debug().Str("module", "app.collab").Str("room", string(id)).Str("member", string(member)).
		Int("members", len(rm.members)).Msg("left")
	if len(rm.members) == 0 {
		r.destroyLocked(rm)
	}
	return true
}

// destroyLocked drops rm from the relay. Both locks must be held.
func (r *Relay) destroyLocked(rm *room) {
	rm.closed = true
	delete(r.rooms, rm.id)
	if r.retain && len(rm.snapshot) > 0 {
		r.retained[rm.id] = rm.snapshot
	}
	log.Info().Str("module", "app.collab").Str("room", string(rm.id)).Bool("retained", r.retain).Msg("room closed")
}

// Broadcast delivers payload to every member except sender. A non-empty
// payload becomes the room's snapshot. Members whose send fails are
// removed after the pass and reported in Dropped; the caller owns
// closing their connections.
func (r *Relay) Broadcast(id domain.RoomID, sender domain.MemberID, payload []byte) (core.PublishResult, error) {
	r.mu.RLock()
	rm, ok := r.rooms[id]
	r.mu.RUnlock()
	if !ok {
		return core.PublishResult{}, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}

	rm.mu.Lock()
	if rm.closed {
		rm.mu.Unlock()
		return core.PublishResult{}, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}
	if len(payload) > 0 {
		rm.snapshot = append([]byte(nil), payload...)
	}

	var res core.PublishResult
	frame := core.Frame(payload)
	for mid, conn := range rm.members {
		if mid == sender {
			continue
		}
		if err := conn.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.collab").Str("room", string(id)).Str("member", string(mid)).
				Msg("send failed, dropping member")
			res.Dropped = append(res.Dropped, mid)
			continue
		}
		res.SentTo++
	}

	// Removal happens after the pass.
	for _, mid := range res.Dropped {
		delete(rm.members, mid)
	}
	empty := len(rm.members) == 0
	rm.mu.Unlock()

	if empty {
		r.destroyIfEmpty(rm)
	}
	return res, nil
}

func (r *Relay) destroyIfEmpty(rm *room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if !rm.closed && len(rm.members) == 0 && r.rooms[rm.id] == rm {
		r.destroyLocked(rm)
	}
}

// Snapshot returns a copy of the room's last non-empty update, falling
// back to a retained snapshot of a closed room.
func (r *Relay) Snapshot(id domain.RoomID) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rm, ok := r.rooms[id]; ok {
		rm.mu.Lock()
		defer rm.mu.Unlock()
		if len(rm.snapshot) == 0 {
			return nil, false
		}
		return append([]byte(nil), rm.snapshot...), true
	}
	if b, ok := r.retained[id]; ok {
		return append([]byte(nil), b...), true
	}
	return nil, false
}

// SetSnapshot replaces the room's snapshot. Without retention only live
// rooms hold snapshots.
func (r *Relay) SetSnapshot(id domain.RoomID, b []byte) error {
	b = append([]byte(nil), b...)

	r.mu.Lock()
	defer r.mu.Unlock()
	if rm, ok := r.rooms[id]; ok {
		rm.mu.Lock()
		rm.snapshot = b
		rm.mu.Unlock()
		return nil
	}
	if !r.retain {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}
	r.retained[id] = b
	return nil
}

func (r *Relay) MemberCount(id domain.RoomID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[id]
	if !ok {
		return 0
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.members)
}

func (r *Relay) Has(id domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[id]
	return ok
}

// List returns live rooms in no particular order.
func (r *Relay) List() []core.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(r.rooms))
	for _, rm := range r.rooms {
		out = append(out, rm.info())
	}
	return out
}
