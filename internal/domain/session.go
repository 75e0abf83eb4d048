// Package domain contains entities without transport, just data and the
// small invariants that travel with it.
package domain

import (
	"errors"
	"strings"
)

const MaxClientIDLen = 128

var (
	ErrClientIDEmpty   = errors.New("client id empty")
	ErrClientIDTooLong = errors.New("client id too long")
)

type ClientID string

// ParseClientID validates a caller supplied chat client id.
func ParseClientID(raw string) (ClientID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrClientIDEmpty
	}
	if len(raw) > MaxClientIDLen {
		return "", ErrClientIDTooLong
	}
	return ClientID(raw), nil
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of a chat history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ListenState is the meeting listening state of a chat session.
type ListenState int

const (
	Idle ListenState = iota
	Listening
)

func (s ListenState) String() string {
	switch s {
	case Listening:
		return "listening"
	default:
		return "idle"
	}
}
