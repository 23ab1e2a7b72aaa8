package pipeline

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter rate-limits remote calls per user, so one busy reader cannot
// starve the others.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewLimiter allows perSecond calls per user with the given burst.
// perSecond <= 0 disables limiting.
func NewLimiter(perSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Wait blocks until userID may make another call.
func (l *Limiter) Wait(ctx context.Context, userID string) error {
	return l.get(userID).Wait(ctx)
}

func (l *Limiter) get(userID string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.limiters[userID]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[userID]; ok {
		return lim
	}
	lim = rate.NewLimiter(l.limit, l.burst)
	l.limiters[userID] = lim
	return lim
}
