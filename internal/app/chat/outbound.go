package chat

import "github.com/dkeye/meetassist/internal/domain"

// Outbound frame types.
const (
	TypeMessage              = "message"
	TypeTyping               = "typing"
	TypeStatus               = "status"
	TypeTranscription        = "transcription"
	TypeMeetingTranscription = "meeting_transcription"
	TypeQuestionDetected     = "question_detected"
	TypeCleared              = "cleared"
	TypeError                = "error"
)

type messageOut struct {
	Type    string      `json:"type"`
	Role    domain.Role `json:"role"`
	Content string      `json:"content"`
}

type typingOut struct {
	Type   string `json:"type"`
	Status bool   `json:"status"`
}

type statusOut struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

type contentOut struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type meetingTranscriptionOut struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Speaker string `json:"speaker"`
}

type questionOut struct {
	Type     string `json:"type"`
	Question string `json:"question"`
}

func assistantMessage(content string) messageOut {
	return messageOut{Type: TypeMessage, Role: domain.RoleAssistant, Content: content}
}

func typing(on bool) typingOut { return typingOut{Type: TypeTyping, Status: on} }

func status(s string) statusOut { return statusOut{Type: TypeStatus, Status: s} }

func transcription(text string) contentOut {
	return contentOut{Type: TypeTranscription, Content: text}
}

func meetingTranscription(text string) meetingTranscriptionOut {
	return meetingTranscriptionOut{Type: TypeMeetingTranscription, Content: text, Speaker: "Meeting"}
}

func questionDetected(q string) questionOut {
	return questionOut{Type: TypeQuestionDetected, Question: q}
}

func cleared() contentOut { return contentOut{Type: TypeCleared, Content: "Chat history cleared"} }

func errorOut(text string) contentOut { return contentOut{Type: TypeError, Content: text} }
