package http

import (
	"sync"
	"time"
)

// rateLimiter allows up to limit events per minute window.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	counter int
	reset   *time.Ticker
}

func newRateLimiter(limit int) *rateLimiter {
	if limit <= 0 {
		return &rateLimiter{limit: 0}
	}
	return &rateLimiter{
		limit: limit,
		reset: time.NewTicker(time.Minute),
	}
}

func (r *rateLimiter) allow() bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter++
	return r.counter <= r.limit
}

func (r *rateLimiter) clear() {
	r.mu.Lock()
	r.counter = 0
	r.mu.Unlock()
}

// startReset clears the counter every minute until stop is closed. The
// returned channel is closed once the reset goroutine has exited.
func (r *rateLimiter) startReset(stop <-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	if r == nil || r.reset == nil {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		for {
			select {
			case <-r.reset.C:
				r.clear()
			case <-stop:
				r.reset.Stop()
				return
			}
		}
	}()
	return done
}
