// Package gemini implements ai.Backend on top of the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dkeye/meetassist/internal/ai"
	"github.com/dkeye/meetassist/internal/domain"
	genai "google.golang.org/genai"
)

// Backend calls the Gemini API.
type Backend struct {
	models *genai.Models
}

// New creates a Gemini API client.
func New(ctx context.Context, apiKey string) (*Backend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google GenAI client: %w", err)
	}
	return &Backend{models: client.Models}, nil
}

func (b *Backend) Generate(ctx context.Context, model string, req ai.GenerateRequest) (string, error) {
	resp, err := b.models.GenerateContent(ctx, model, buildContents(req), buildConfig(req))
	if err != nil {
		return "", classify(err)
	}
	return resp.Text(), nil
}

func (b *Backend) Transcribe(ctx context.Context, model string, req ai.TranscribeRequest) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(req.Prompt),
			genai.NewPartFromBytes(req.Audio, req.MIMEType),
		}, genai.RoleUser),
	}
	resp, err := b.models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", classify(err)
	}
	return resp.Text(), nil
}

func buildContents(req ai.GenerateRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		contents = append(contents, genai.NewContentFromText(turn.Content, roleOf(turn.Role)))
	}
	return append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))
}

func buildConfig(req ai.GenerateRequest) *genai.GenerateContentConfig {
	if req.SystemInstruction == "" {
		return nil
	}
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemInstruction, genai.RoleUser),
	}
}

func roleOf(r domain.Role) genai.Role {
	if r == domain.RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}

// classify maps API errors onto the executor's failure classes.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED":
			return fmt.Errorf("gemini: %w: %w", ai.ErrRateLimited, err)
		case apiErr.Code == http.StatusNotFound || apiErr.Status == "NOT_FOUND":
			return fmt.Errorf("gemini: %w: %w", ai.ErrModelNotFound, err)
		}
	}
	return fmt.Errorf("gemini: %w", err)
}
