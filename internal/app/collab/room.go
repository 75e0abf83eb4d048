package collab

import (
	"sync"

	"github.com/dkeye/meetassist/internal/core"
	"github.com/dkeye/meetassist/internal/domain"
)

// room is one document: its members and the last non-empty update.
// closed is set, under both the relay and room locks, when the last
// member leaves; a closed room is never reused.
type room struct {
	id domain.RoomID

	mu       sync.Mutex
	members  map[domain.MemberID]core.Connection
	snapshot []byte
	closed   bool
}

func newRoom(id domain.RoomID, snapshot []byte) *room {
	return &room{
		id:       id,
		members:  make(map[domain.MemberID]core.Connection),
		snapshot: snapshot,
	}
}

func (r *room) info() core.RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return core.RoomInfo{ID: r.id, MemberCount: len(r.members), HasSnapshot: len(r.snapshot) > 0}
}
