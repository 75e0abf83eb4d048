package ws

import (
	"sync"

	"github.com/dkeye/meetassist/internal/domain"
	"golang.org/x/time/rate"
)

// ClientRateLimiter keeps one token bucket per chat client.
type ClientRateLimiter struct {
	mu       sync.Mutex
	limiters map[domain.ClientID]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewClientRateLimiter allows perSecond events per client with the given
// burst. perSecond <= 0 disables limiting.
func NewClientRateLimiter(perSecond float64, burst int) *ClientRateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &ClientRateLimiter{
		limiters: make(map[domain.ClientID]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (rl *ClientRateLimiter) Allow(id domain.ClientID) bool {
	rl.mu.Lock()
	l, ok := rl.limiters[id]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[id] = l
	}
	rl.mu.Unlock()
	return l.Allow()
}

// Forget drops the client's bucket once it disconnects.
func (rl *ClientRateLimiter) Forget(id domain.ClientID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.limiters, id)
}

func (rl *ClientRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
