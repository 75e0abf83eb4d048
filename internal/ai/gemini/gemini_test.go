package gemini

import (
	"errors"
	"net/http"
	"testing"

	"github.com/dkeye/meetassist/internal/ai"
	"github.com/dkeye/meetassist/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"429", genai.APIError{Code: http.StatusTooManyRequests}, ai.ErrRateLimited},
		{"resource exhausted", genai.APIError{Code: 400, Status: "RESOURCE_EXHAUSTED"}, ai.ErrRateLimited},
		{"404", genai.APIError{Code: http.StatusNotFound, Status: "NOT_FOUND"}, ai.ErrModelNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.ErrorIs(t, got, tt.want)
			var apiErr genai.APIError
			assert.True(t, errors.As(got, &apiErr))
		})
	}

	other := classify(genai.APIError{Code: http.StatusInternalServerError})
	assert.False(t, errors.Is(other, ai.ErrRateLimited))
	assert.False(t, errors.Is(other, ai.ErrModelNotFound))

	plain := classify(errors.New("dial tcp: timeout"))
	assert.EqualError(t, plain, "gemini: dial tcp: timeout")
}

func TestBuildContents(t *testing.T) {
	req := ai.GenerateRequest{
		Prompt: "next",
		History: []domain.Turn{
			{Role: domain.RoleUser, Content: "hi"},
			{Role: domain.RoleAssistant, Content: "hello"},
		},
	}
	contents := buildContents(req)
	require.Len(t, contents, 3)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
	assert.Equal(t, "hello", contents[1].Parts[0].Text)
	assert.Equal(t, "next", contents[2].Parts[0].Text)

	assert.Nil(t, buildConfig(req))
	req.SystemInstruction = "be brief"
	cfg := buildConfig(req)
	require.NotNil(t, cfg)
	assert.Equal(t, "be brief", cfg.SystemInstruction.Parts[0].Text)
}
