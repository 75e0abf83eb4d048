package collab

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrDuplicateMember = errors.New("member already in room")
)
