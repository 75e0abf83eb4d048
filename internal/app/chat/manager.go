package chat

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dkeye/meetassist/internal/ai"
	"github.com/dkeye/meetassist/internal/app"
	"github.com/dkeye/meetassist/internal/core"
	"github.com/dkeye/meetassist/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	welcomeText = "Hello! I'm your AI meeting assistant. I can listen to your meeting and automatically answer questions. Click 'Listen to Meeting' to get started, or type/speak your questions directly!"

	// AnswerMarker prefixes answers to questions overheard in the meeting.
	AnswerMarker = "📝 **Answer to the question:**\n\n"

	meetingQuestionTag   = "[Meeting Question] "
	questionPromptFormat = "Someone in the meeting asked: \"%s\"\n\nPlease provide a helpful, concise answer to this question."

	// Meeting transcripts of this length or shorter are noise.
	minTranscriptLen = 3
	minQuestionLen   = 5

	transcribeFailedText = "Could not transcribe audio. Please try again or type your message."
	badAudioText         = "Error processing audio. Please try again."
)

// Assistant is what the manager needs from the AI layer.
type Assistant interface {
	Reply(ctx context.Context, message string, history []domain.Turn, meeting []string) (string, error)
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Manager owns one Session per connected chat client and pushes replies
// through the connection registry.
type Manager struct {
	conns     *app.Registry
	assistant Assistant

	mu       sync.RWMutex
	sessions map[domain.ClientID]*Session
}

func NewManager(conns *app.Registry, assistant Assistant) *Manager {
	return &Manager{
		conns:     conns,
		assistant: assistant,
		sessions:  make(map[domain.ClientID]*Session),
	}
}

func sessionID(id domain.ClientID) core.SessionID { return core.SessionID(id) }

// Connect registers conn under id, opens a fresh session and greets the
// client. It fails with app.ErrDuplicateID if id is already connected.
func (m *Manager) Connect(id domain.ClientID, conn core.Connection) error {
	s := NewSession(id)

	m.mu.Lock()
	if err := m.conns.Register(sessionID(id), conn, func() { m.drop(s) }); err != nil {
		m.mu.Unlock()
		return err
	}
	m.sessions[id] = s
	m.mu.Unlock()

	log.Info().Str("module", "app.chat").Str("client_id", string(id)).Msg("session opened")
	m.push(id, assistantMessage(welcomeText))
	return nil
}

// Disconnect closes the client's connection and releases its session.
func (m *Manager) Disconnect(id domain.ClientID) {
	m.conns.Unregister(sessionID(id))
}

// DisconnectConn is Disconnect for a read loop that is exiting: it only
// acts if conn is still the client's registered connection.
func (m *Manager) DisconnectConn(id domain.ClientID, conn core.Connection) {
	m.conns.UnregisterConn(sessionID(id), conn)
}

func (m *Manager) drop(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.sessions[s.ID]; ok && cur == s {
		delete(m.sessions, s.ID)
		log.Info().Str("module", "app.chat").Str("client_id", string(s.ID)).Msg("session closed")
	}
}

func (m *Manager) Session(id domain.ClientID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// alive reports whether s is still the session registered for its id.
// Used after every AI call, since the client may leave while it runs.
func (m *Manager) alive(s *Session) bool {
	cur, ok := m.Session(s.ID)
	return ok && cur == s
}

// Dispatch routes one decoded command to its handler.
func (m *Manager) Dispatch(ctx context.Context, id domain.ClientID, cmd Command) error {
	switch c := cmd.(type) {
	case TextCommand:
		return m.HandleText(ctx, id, c.Content)
	case AudioCommand:
		return m.HandlePersonalAudio(ctx, id, c.Data)
	case MeetingAudioCommand:
		return m.HandleMeetingAudio(ctx, id, c.Data)
	case StartListeningCommand:
		return m.StartListening(id)
	case StopListeningCommand:
		return m.StopListening(id)
	case ClearCommand:
		return m.Clear(id)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

func (m *Manager) session(id domain.ClientID) (*Session, error) {
	s, ok := m.Session(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, id)
	}
	return s, nil
}

// HandleText answers a typed message. Blank messages are ignored.
func (m *Manager) HandleText(ctx context.Context, id domain.ClientID, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	s, err := m.session(id)
	if err != nil {
		return err
	}
	m.reply(ctx, s, content)
	return nil
}

// reply records message as a user turn and answers it.
func (m *Manager) reply(ctx context.Context, s *Session, message string) {
	history := s.History(ai.HistoryWindow)
	meeting := s.Context(ai.PromptContextWindow)
	s.AppendTurn(domain.RoleUser, message)
	m.push(s.ID, typing(true))

	answer := m.ask(ctx, s.ID, message, history, meeting)
	if !m.alive(s) {
		return
	}
	s.AppendTurn(domain.RoleAssistant, answer)
	m.push(s.ID, typing(false))
	m.push(s.ID, assistantMessage(answer))
}

// ask queries the assistant without holding any lock and degrades
// failures into a readable reply.
func (m *Manager) ask(ctx context.Context, id domain.ClientID, prompt string, history []domain.Turn, meeting []string) string {
	answer, err := m.assistant.Reply(context.WithoutCancel(ctx), prompt, history, meeting)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.chat").Str("client_id", string(id)).Msg("assistant reply failed")
		return ai.DegradedReply(err)
	}
	return answer
}

// transcribe decodes base64 audio and transcribes it. It returns ErrDecode
// for bad payloads and ai.ErrTranscriptionEmpty when nothing was heard.
func (m *Manager) transcribe(ctx context.Context, id domain.ClientID, data string) (string, error) {
	audio, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	text, err := m.assistant.Transcribe(context.WithoutCancel(ctx), audio)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.chat").Str("client_id", string(id)).Msg("transcription failed")
		return "", ai.ErrTranscriptionEmpty
	}
	if text == "" {
		return "", ai.ErrTranscriptionEmpty
	}
	return text, nil
}

// HandlePersonalAudio transcribes the user's own speech and answers it
// like a typed message.
func (m *Manager) HandlePersonalAudio(ctx context.Context, id domain.ClientID, data string) error {
	if data == "" {
		return nil
	}
	s, err := m.session(id)
	if err != nil {
		return err
	}

	m.push(id, status("transcribing"))
	text, err := m.transcribe(ctx, id, data)
	if !m.alive(s) {
		return nil
	}
	switch {
	case errors.Is(err, ErrDecode):
		m.push(id, errorOut(badAudioText))
		return err
	case err != nil:
		m.push(id, errorOut(transcribeFailedText))
		return nil
	}

	m.push(id, transcription(text))
	m.reply(ctx, s, text)
	return nil
}

// HandleMeetingAudio transcribes overheard meeting audio into the
// session's context and answers questions found in it. It does nothing
// unless the session is listening.
func (m *Manager) HandleMeetingAudio(ctx context.Context, id domain.ClientID, data string) error {
	s, err := m.session(id)
	if err != nil {
		return err
	}
	if s.State() != domain.Listening || data == "" {
		return nil
	}

	text, err := m.transcribe(ctx, id, data)
	switch {
	case errors.Is(err, ErrDecode):
		m.push(id, errorOut(badAudioText))
		return err
	case err != nil:
		return nil
	}
	if !m.alive(s) || len(strings.TrimSpace(text)) <= minTranscriptLen {
		return nil
	}

	s.AddContext(text)
	m.push(id, meetingTranscription(text))
	m.answerQuestion(ctx, s, text)
	return nil
}

// answerQuestion replies to transcript if it reads like a question.
func (m *Manager) answerQuestion(ctx context.Context, s *Session, transcript string) bool {
	if len(strings.TrimSpace(transcript)) < minQuestionLen || !ai.IsQuestion(transcript) {
		return false
	}
	log.Info().Str("module", "app.chat").Str("client_id", string(s.ID)).Str("question", transcript).Msg("question detected")

	m.push(s.ID, questionDetected(transcript))
	m.push(s.ID, typing(true))

	history := s.History(ai.HistoryWindow)
	meeting := s.Context(ai.PromptContextWindow)
	answer := m.ask(ctx, s.ID, fmt.Sprintf(questionPromptFormat, transcript), history, meeting)
	if !m.alive(s) {
		return true
	}

	s.AppendTurn(domain.RoleUser, meetingQuestionTag+transcript)
	s.AppendTurn(domain.RoleAssistant, answer)
	m.push(s.ID, typing(false))
	m.push(s.ID, assistantMessage(AnswerMarker+answer))
	return true
}

func (m *Manager) StartListening(id domain.ClientID) error {
	s, err := m.session(id)
	if err != nil {
		return err
	}
	s.SetState(domain.Listening)
	m.push(id, status("listening"))
	return nil
}

func (m *Manager) StopListening(id domain.ClientID) error {
	s, err := m.session(id)
	if err != nil {
		return err
	}
	s.SetState(domain.Idle)
	m.push(id, status("stopped"))
	return nil
}

// Clear empties the session's history and meeting context.
func (m *Manager) Clear(id domain.ClientID) error {
	s, err := m.session(id)
	if err != nil {
		return err
	}
	s.Clear()
	m.push(id, cleared())
	return nil
}

// Reject tells the client its frame could not be handled. The connection
// stays open.
func (m *Manager) Reject(id domain.ClientID, reason string) {
	m.push(id, errorOut(reason))
}

// push encodes v and queues it for id. A client that already left is
// skipped; a failed write disconnects the client.
func (m *Manager) push(id domain.ClientID, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.chat").Msg("marshal outbound")
		return
	}
	err = m.conns.Send(sessionID(id), b)
	switch {
	case err == nil:
	case errors.Is(err, app.ErrNotConnected):
		log.Debug().Str("module", "app.chat").Str("client_id", string(id)).Msg("client gone, frame dropped")
	default:
		log.Warn().Err(err).Str("module", "app.chat").Str("client_id", string(id)).Msg("send failed, disconnecting")
		m.conns.Unregister(sessionID(id))
	}
}
