package domain

import "github.com/google/uuid"

type (
	RoomID   string
	MemberID string
)

// Member is the participation meta of one collaborative connection.
// No transport here.
type Member struct {
	ID   MemberID `json:"id"`
	Room RoomID   `json:"room"`
}

// NewMemberID issues a fresh id for a collaborative connection. Members
// never choose their own id, so two tabs of the same user never collide.
func NewMemberID() MemberID {
	return MemberID("client_" + uuid.NewString())
}

func NewMember(room RoomID) *Member {
	return &Member{ID: NewMemberID(), Room: room}
}
