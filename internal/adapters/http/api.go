package http

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/dkeye/meetassist/internal/ai"
	"github.com/dkeye/meetassist/internal/core"
	"github.com/dkeye/meetassist/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Assistant is the AI surface the REST API exposes.
type Assistant interface {
	Reply(ctx context.Context, message string, history []domain.Turn, meeting []string) (string, error)
	Transcribe(ctx context.Context, audio []byte) (string, error)
	Sentiment(ctx context.Context, text string) (ai.Sentiment, error)
	Summarize(ctx context.Context, transcript string, maxWords int) (string, error)
}

// RoomLister reports live collaborative rooms.
type RoomLister interface {
	List() []core.RoomInfo
}

type API struct {
	AI       Assistant
	RoomList RoomLister
}

type ChatRequest struct {
	Message string `json:"message" binding:"required"`
	Context string `json:"context"`
}

type ChatResponse struct {
	Response string `json:"response"`
	Success  bool   `json:"success"`
}

type TranscribeRequest struct {
	Audio    string `json:"audio" binding:"required"`
	Language string `json:"language"`
}

type TranscribeResponse struct {
	Message string         `json:"message"`
	Data    TranscribeData `json:"data"`
}

type TranscribeData struct {
	Language      string `json:"language"`
	Transcription string `json:"transcription"`
}

type SentimentRequest struct {
	Text string `json:"text" binding:"required"`
}

type SentimentResponse struct {
	Message   string  `json:"message"`
	Text      string  `json:"text"`
	Sentiment string  `json:"sentiment"`
	Score     float64 `json:"score"`
}

type SummaryRequest struct {
	Transcript string `json:"transcript" binding:"required"`
	MaxLength  int    `json:"max_length" binding:"omitempty,min=10,max=2000"`
}

type SummaryResponse struct {
	Message          string `json:"message"`
	TranscriptLength int    `json:"transcript_length"`
	Summary          string `json:"summary"`
}

func (a *API) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "Meeting Assistant Server",
		"version": "1.0.0",
		"features": []string{
			"Gemini AI Chat",
			"Audio Transcription",
			"Meeting Listening",
			"Question Detection",
			"Sentiment Analysis",
			"Meeting Summaries",
			"Collaborative Code Editor",
		},
	})
}

func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "AI server is running"})
}

func (a *API) WhoAmI(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"client_id": c.GetString(clientTokenKey)})
}

func (a *API) Rooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": a.RoomList.List()})
}

func (a *API) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid message"})
		return
	}
	message := req.Message
	if req.Context != "" {
		message = fmt.Sprintf("Meeting context: %s\n\nUser question: %s", req.Context, req.Message)
	}

	answer, err := a.AI.Reply(c.Request.Context(), message, nil, nil)
	switch {
	case errors.Is(err, ai.ErrExhausted) && !errors.Is(err, ai.ErrNotConfigured):
		log.Warn().Err(err).Str("module", "adapters.http").Str("op", "chat").Msg("degraded reply")
		answer = ai.DegradedReply(err)
	case err != nil:
		a.fail(c, "chat", err)
		return
	}
	c.JSON(http.StatusOK, ChatResponse{Response: answer, Success: true})
}

func (a *API) Transcribe(c *gin.Context) {
	var req TranscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid audio"})
		return
	}
	if req.Language == "" {
		req.Language = "en"
	}
	audio, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio is not valid base64"})
		return
	}

	text, err := a.AI.Transcribe(c.Request.Context(), audio)
	switch {
	case errors.Is(err, ai.ErrExhausted) && !errors.Is(err, ai.ErrNotConfigured):
		log.Warn().Err(err).Str("module", "adapters.http").Str("op", "transcribe").Msg("transcription unavailable")
		text = ""
	case err != nil:
		a.fail(c, "transcribe", err)
		return
	}
	c.JSON(http.StatusOK, TranscribeResponse{
		Message: "Transcription successful",
		Data:    TranscribeData{Language: req.Language, Transcription: text},
	})
}

func (a *API) AnalyzeSentiment(c *gin.Context) {
	var req SentimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid text"})
		return
	}
	s, err := a.AI.Sentiment(c.Request.Context(), req.Text)
	if err != nil {
		a.fail(c, "sentiment", err)
		return
	}
	c.JSON(http.StatusOK, SentimentResponse{
		Message:   "Sentiment analysis completed",
		Text:      req.Text,
		Sentiment: s.Label,
		Score:     s.Score,
	})
}

func (a *API) GenerateSummary(c *gin.Context) {
	var req SummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid transcript"})
		return
	}
	if req.MaxLength == 0 {
		req.MaxLength = 200
	}
	summary, err := a.AI.Summarize(c.Request.Context(), req.Transcript, req.MaxLength)
	if err != nil {
		a.fail(c, "summary", err)
		return
	}
	c.JSON(http.StatusOK, SummaryResponse{
		Message:          "Summary generated successfully",
		TranscriptLength: len(req.Transcript),
		Summary:          summary,
	})
}

func (a *API) fail(c *gin.Context, op string, err error) {
	log.Error().Err(err).Str("module", "adapters.http").Str("op", op).Msg("ai request failed")
	detail := err.Error()
	if errors.Is(err, ai.ErrNotConfigured) {
		detail = "Gemini API key not configured"
	}
	c.JSON(http.StatusInternalServerError, gin.H{"detail": detail})
}
