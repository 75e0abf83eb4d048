package chat

import (
	"sync"

	"github.com/dkeye/meetassist/internal/domain"
)

// Session is the chat state of one client: history, meeting context and
// listening state. Only the connection's handler mutates it, but reads
// from other goroutines (listing, tests) go through the same lock.
type Session struct {
	ID domain.ClientID

	mu      sync.Mutex
	history []domain.Turn
	meeting *domain.ContextWindow
	state   domain.ListenState
}

func NewSession(id domain.ClientID) *Session {
	return &Session{
		ID:      id,
		meeting: domain.NewContextWindow(domain.MeetingContextLimit),
	}
}

func (s *Session) AppendTurn(role domain.Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, domain.Turn{Role: role, Content: content})
}

// History returns a copy of the last n turns, oldest first. n <= 0 means all.
func (s *Session) History(n int) []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.history
	if n > 0 && len(h) > n {
		h = h[len(h)-n:]
	}
	return append([]domain.Turn(nil), h...)
}

func (s *Session) AddContext(transcript string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meeting.Add(transcript)
}

// Context returns a copy of the last n meeting transcripts, oldest first.
func (s *Session) Context(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meeting.Recent(n)
}

func (s *Session) State() domain.ListenState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) SetState(st domain.ListenState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// Clear empties history and meeting context together. The listening
// state is kept.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.meeting.Reset()
}
