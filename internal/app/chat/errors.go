package chat

import "errors"

var (
	ErrNoSession      = errors.New("no chat session")
	ErrDecode         = errors.New("malformed audio payload")
	ErrBadCommand     = errors.New("malformed command")
	ErrUnknownCommand = errors.New("unknown command type")
)
