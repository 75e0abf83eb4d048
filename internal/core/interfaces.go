package core

import "github.com/dkeye/meetassist/internal/domain"

// Frame is a raw outbound payload: an encoded JSON message on the chat
// endpoint, an opaque document-sync update on the collaborative one.
type Frame []byte

// SessionID identifies one live transport connection in a Registry.
type SessionID string

// Connection abstracts an outbound transport endpoint.
// Owned by the adapter; the adapter must Close() it.
type Connection interface {
	// TrySend queues f without blocking. Frames queued on one
	// connection are written in order.
	TrySend(Frame) error
	Close()
}

// PublishResult reports delivery of one broadcast.
type PublishResult struct {
	SentTo  int
	Dropped []domain.MemberID
}

// RoomInfo is a read-only view of a room for APIs.
type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
	HasSnapshot bool          `json:"has_snapshot"`
}
