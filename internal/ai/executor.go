package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxRetries = 3
	transientBackoff  = time.Second
)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the production SleepFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RateLimitBackoff is the wait after a rate limited attempt: 2^attempt + 1 seconds.
func RateLimitBackoff(attempt int) time.Duration {
	return time.Duration(1<<attempt+1) * time.Second
}

// Executor runs a call against an ordered list of models, retrying with
// backoff and falling back to the next model.
type Executor struct {
	Models     []string
	MaxRetries int
	Sleep      SleepFunc
}

func NewExecutor(models []string, maxRetries int) *Executor {
	return &Executor{
		Models:     append([]string(nil), models...),
		MaxRetries: maxRetries,
		Sleep:      SleepContext,
	}
}

func (e *Executor) maxRetries() int {
	if e.MaxRetries <= 0 {
		return DefaultMaxRetries
	}
	return e.MaxRetries
}

// cursor points at the next (model, attempt) pair to try.
type cursor struct {
	model   int
	attempt int
}

func (e *Executor) nextAttempt(c cursor) cursor {
	if c.attempt+1 >= e.maxRetries() {
		return e.nextModel(c)
	}
	return cursor{model: c.model, attempt: c.attempt + 1}
}

func (e *Executor) nextModel(c cursor) cursor {
	return cursor{model: c.model + 1}
}

// transition decides where the cursor goes after a failed call and how
// long to wait before trying again.
//
//	ErrNotConfigured -> stop, no wait
//	ErrModelNotFound -> next model, no wait
//	ErrRateLimited   -> next attempt (or model), wait 2^attempt+1s
//	anything else    -> next attempt (or model), wait 1s if this model has attempts left
func (e *Executor) transition(c cursor, err error) (cursor, time.Duration) {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return cursor{model: len(e.Models)}, 0
	case errors.Is(err, ErrModelNotFound):
		return e.nextModel(c), 0
	case errors.Is(err, ErrRateLimited):
		return e.nextAttempt(c), RateLimitBackoff(c.attempt)
	default:
		var wait time.Duration
		if c.attempt < e.maxRetries()-1 {
			wait = transientBackoff
		}
		return e.nextAttempt(c), wait
	}
}

// Run drives call through the executor's models. It returns the first
// success, or an error wrapping ErrExhausted and the last failure.
func Run[T any](ctx context.Context, e *Executor, call func(ctx context.Context, model string) (T, error)) (T, error) {
	var zero T
	if len(e.Models) == 0 {
		return zero, ErrNoModels
	}
	sleep := e.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for c := (cursor{}); c.model < len(e.Models); {
		model := e.Models[c.model]
		out, err := call(ctx, model)
		if err == nil {
			return out, nil
		}
		lastErr = err

		next, wait := e.transition(c, err)
		log.Warn().
			Err(err).
			Str("module", "ai.executor").
			Str("model", model).
			Int("attempt", c.attempt+1).
			Dur("wait", wait).
			Msg("model call failed")

		if wait > 0 {
			if serr := sleep(ctx, wait); serr != nil {
				return zero, fmt.Errorf("%w: %w", ErrExhausted, serr)
			}
		}
		c = next
	}
	return zero, fmt.Errorf("%w: %w", ErrExhausted, lastErr)
}
