// Package ratelimit paces outbound requests per registrable domain.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DomainLimiter implements the reserve-or-skip policy: a caller asks for
// a slot and either gets it immediately or is told to try another
// domain. The crawl scheduler uses this to admit pending items without
// blocking the worker pool.
type DomainLimiter struct {
	minInterval   time.Duration
	mu            sync.Mutex
	nextAllowedAt map[string]time.Time
}

func NewDomainLimiter(requestsPerSecond float64) *DomainLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &DomainLimiter{
		minInterval:   time.Duration(float64(time.Second) / requestsPerSecond),
		nextAllowedAt: make(map[string]time.Time),
	}
}

// TryReserve reserves the domain's next slot if it is available now.
// A successful reservation pushes the next slot one interval out.
func (l *DomainLimiter) TryReserve(domain string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if next, ok := l.nextAllowedAt[domain]; ok && now.Before(next) {
		return false
	}
	l.nextAllowedAt[domain] = now.Add(l.minInterval)
	return true
}

// Until reports how long until the domain's next slot opens.
func (l *DomainLimiter) Until(domain string) time.Duration {
	now := time.Now()

	l.mu.Lock()
	next, ok := l.nextAllowedAt[domain]
	l.mu.Unlock()

	if !ok || !now.Before(next) {
		return 0
	}
	return next.Sub(now)
}

// WaitLimiter implements the queue-reserve policy: callers block until
// their reserved slot arrives, and concurrent callers queue
// monotonically with a minimum spacing of one interval.
type WaitLimiter struct {
	interval time.Duration
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

func NewWaitLimiter(interval time.Duration) *WaitLimiter {
	return &WaitLimiter{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the domain's next slot arrives or ctx is done.
func (w *WaitLimiter) Wait(ctx context.Context, domain string) error {
	return w.limiterFor(domain).Wait(ctx)
}

func (w *WaitLimiter) limiterFor(domain string) *rate.Limiter {
	w.mu.RLock()
	limiter, exists := w.limiters[domain]
	w.mu.RUnlock()

	if exists {
		return limiter
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Double-check pattern
	if limiter, exists := w.limiters[domain]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Every(w.interval), 1)
	w.limiters[domain] = limiter
	return limiter
}
