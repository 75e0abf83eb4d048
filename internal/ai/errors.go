package ai

import "errors"

var (
	// ErrRateLimited classifies a backend failure as quota or rate exhaustion.
	ErrRateLimited = errors.New("rate limited")
	// ErrModelNotFound classifies a backend failure as an unknown model.
	ErrModelNotFound = errors.New("model not found")
	// ErrTranscriptionEmpty reports that no speech was detected.
	ErrTranscriptionEmpty = errors.New("transcription empty")
	// ErrExhausted wraps the last error once every model and attempt failed.
	ErrExhausted = errors.New("all models and attempts exhausted")
	ErrNoModels  = errors.New("no models configured")
	// ErrNotConfigured is returned by a backend that has no credentials.
	ErrNotConfigured = errors.New("ai backend not configured")
)
