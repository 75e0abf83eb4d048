package app

import "errors"

var (
	ErrDuplicateID  = errors.New("id already registered")
	ErrNotConnected = errors.New("not connected")
	ErrSendFailed   = errors.New("send failed")
)
