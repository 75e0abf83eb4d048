package ai

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dkeye/meetassist/internal/domain"
)

const (
	// HistoryWindow is how many chat turns accompany a prompt.
	HistoryWindow = 10
	// PromptContextWindow is how many meeting transcripts accompany a prompt.
	PromptContextWindow = 20
)

const (
	transcribePrompt = "Transcribe the following audio. Only output the transcription text, nothing else. If the audio is silent or unclear, respond with [silence]:"
	audioMIMEType    = "audio/webm"

	capacityReply = "⏳ I'm currently at capacity. The free tier has limited requests per minute. Please wait a moment and try again."
	apologyReply  = "I apologize, but I encountered an error. Please try again in a moment."
)

var silenceMarkers = map[string]struct{}{
	"":            {},
	"[silence]":   {},
	"silence":     {},
	"[unclear]":   {},
	"[inaudible]": {},
}

// GenerateRequest is one text generation call.
type GenerateRequest struct {
	Prompt            string
	History           []domain.Turn
	SystemInstruction string
}

// TranscribeRequest is one transcription call.
type TranscribeRequest struct {
	Prompt   string
	Audio    []byte
	MIMEType string
}

// Backend is the narrow contract of a generative model provider.
// Failures are classified by wrapping ErrRateLimited or ErrModelNotFound.
type Backend interface {
	Generate(ctx context.Context, model string, req GenerateRequest) (string, error)
	Transcribe(ctx context.Context, model string, req TranscribeRequest) (string, error)
}

// Assistant runs generation and transcription through an Executor.
type Assistant struct {
	backend     Backend
	exec        *Executor
	instruction string
}

func NewAssistant(backend Backend, exec *Executor, systemInstruction string) *Assistant {
	return &Assistant{backend: backend, exec: exec, instruction: systemInstruction}
}

// Reply answers message given the recent chat history and meeting context.
func (a *Assistant) Reply(ctx context.Context, message string, history []domain.Turn, meeting []string) (string, error) {
	req := GenerateRequest{
		Prompt:            WithMeetingContext(message, lastN(meeting, PromptContextWindow)),
		History:           lastN(history, HistoryWindow),
		SystemInstruction: a.instruction,
	}
	return Run(ctx, a.exec, func(ctx context.Context, model string) (string, error) {
		return a.backend.Generate(ctx, model, req)
	})
}

// Transcribe turns audio into text. Silence markers come back as "".
func (a *Assistant) Transcribe(ctx context.Context, audio []byte) (string, error) {
	req := TranscribeRequest{Prompt: transcribePrompt, Audio: audio, MIMEType: audioMIMEType}
	text, err := Run(ctx, a.exec, func(ctx context.Context, model string) (string, error) {
		return a.backend.Transcribe(ctx, model, req)
	})
	if err != nil {
		return "", err
	}
	return NormalizeTranscript(text), nil
}

// Summarize condenses a meeting transcript to roughly maxWords words.
func (a *Assistant) Summarize(ctx context.Context, transcript string, maxWords int) (string, error) {
	prompt := fmt.Sprintf("Summarize this meeting transcript in about %d words. Include key points, decisions made, and action items:\n\n%s", maxWords, transcript)
	return a.generate(ctx, prompt)
}

// Sentiment is the parsed result of a sentiment analysis call.
type Sentiment struct {
	Label string  `json:"sentiment"`
	Score float64 `json:"score"`
}

// Sentiment classifies text as positive, negative or neutral.
func (a *Assistant) Sentiment(ctx context.Context, text string) (Sentiment, error) {
	prompt := "Analyze the sentiment of this text and respond with ONLY one word (positive/negative/neutral) and a confidence score from 0 to 1. Format: sentiment,score\n\nText: " + text
	raw, err := a.generate(ctx, prompt)
	if err != nil {
		return Sentiment{}, err
	}
	return ParseSentiment(raw), nil
}

func (a *Assistant) generate(ctx context.Context, prompt string) (string, error) {
	req := GenerateRequest{Prompt: prompt, SystemInstruction: a.instruction}
	return Run(ctx, a.exec, func(ctx context.Context, model string) (string, error) {
		return a.backend.Generate(ctx, model, req)
	})
}

// ParseSentiment reads a "label,score" answer. Missing parts fall back to
// neutral and 0.5.
func ParseSentiment(raw string) Sentiment {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(raw)), ",", 2)
	s := Sentiment{Label: "neutral", Score: 0.5}
	if label := strings.TrimSpace(parts[0]); label != "" {
		s.Label = label
	}
	if len(parts) == 2 {
		if score, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err == nil {
			s.Score = score
		}
	}
	return s
}

// WithMeetingContext prefixes message with the given meeting transcripts.
func WithMeetingContext(message string, meeting []string) string {
	if len(meeting) == 0 {
		return message
	}
	return "\n\nRecent meeting conversation for context:\n" + strings.Join(meeting, "\n") + "\n\n" + message
}

// NormalizeTranscript trims text and maps silence markers to "".
func NormalizeTranscript(text string) string {
	text = strings.TrimSpace(text)
	if _, ok := silenceMarkers[strings.ToLower(text)]; ok {
		return ""
	}
	return text
}

// DegradedReply is the user facing text shown instead of an answer when
// the executor gave up.
func DegradedReply(err error) string {
	if errors.Is(err, ErrRateLimited) {
		return capacityReply
	}
	// "rate" alone would match "generateContent" in backend messages.
	if strings.Contains(strings.ToLower(fmt.Sprint(err)), "quota") {
		return capacityReply
	}
	return apologyReply
}

func lastN[T any](s []T, n int) []T {
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return append([]T(nil), s...)
}

// Unconfigured is the Backend used when no API key is set. Every call
// fails with ErrNotConfigured.
type Unconfigured struct{}

func (Unconfigured) Generate(context.Context, string, GenerateRequest) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) Transcribe(context.Context, string, TranscribeRequest) (string, error) {
	return "", ErrNotConfigured
}
