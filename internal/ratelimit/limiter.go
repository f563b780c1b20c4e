package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// minRetention is the shortest horizon Sweep keeps timestamps for.
const minRetention = 10 * time.Minute

// Limiter admits at most limit requests per client in any trailing window.
// Every call to Allow counts, including rejected ones.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	requests map[string][]time.Time
}

// New creates a limiter. Each limiter tracks its clients separately.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:    limit,
		window:   window,
		now:      time.Now,
		requests: make(map[string][]time.Time),
	}
}

// Limit returns the number of requests admitted per window.
func (l *Limiter) Limit() int { return l.limit }

// Window returns the length of the trailing window.
func (l *Limiter) Window() time.Duration { return l.window }

// Allow records a request from clientID and reports whether it is within
// the limit.
func (l *Limiter) Allow(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	reqs := prune(append(l.requests[clientID], now), now.Add(-l.window))
	l.requests[clientID] = reqs
	return len(reqs) <= l.limit
}

// Sweep drops timestamps older than the retention horizon and forgets
// clients with none left. It returns the number of clients removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.retention())
	removed := 0
	for id, reqs := range l.requests {
		reqs = prune(reqs, cutoff)
		if len(reqs) == 0 {
			delete(l.requests, id)
			removed++
			continue
		}
		l.requests[id] = reqs
	}
	return removed
}

// Clients returns the number of tracked clients.
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}

func (l *Limiter) retention() time.Duration {
	return max(minRetention, 2*l.window)
}

// prune drops the leading timestamps at or before cutoff. Timestamps are
// appended in order, so the slice stays sorted.
func prune(reqs []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(reqs) && !reqs[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return reqs
	}
	return append(reqs[:0], reqs[i:]...)
}

// SweepEvery sweeps the given limiters every interval until ctx is done.
func SweepEvery(ctx context.Context, interval time.Duration, limiters ...*Limiter) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := 0
			for _, l := range limiters {
				removed += l.Sweep()
			}
			if removed > 0 {
				slog.Debug("rate limiter sweep", "removed", removed)
			}
		}
	}
}
