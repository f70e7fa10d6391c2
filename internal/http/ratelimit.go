package http

import (
	"sync"
	"time"
)

// rateLimiter caps requests per client IP over a fixed window. Only mutating
// requests pass through it; reads serve from the cached snapshot and are not
// throttled.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	limit   int
	window  time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// clientWindow counts requests since the window opened for one client.
type clientWindow struct {
	start time.Time
	count int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		clients: make(map[string]*clientWindow),
		limit:   limit,
		window:  window,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// allow reports whether a request from the given IP fits in its current
// window. A window past its span resets rather than sliding.
func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[clientIP]
	if !ok || now.Sub(w.start) >= rl.window {
		rl.clients[clientIP] = &clientWindow{start: now, count: 1}
		return true
	}
	w.count++
	return w.count <= rl.limit
}

// sweep periodically drops clients that have been idle long enough that their
// window no longer matters.
func (rl *rateLimiter) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.dropStale()
		case <-rl.stop:
			return
		}
	}
}

func (rl *rateLimiter) dropStale() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-10 * rl.window)
	for ip, w := range rl.clients {
		if w.start.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// activeClients returns the number of currently tracked clients.
func (rl *rateLimiter) activeClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// shutdown stops the sweep goroutine.
func (rl *rateLimiter) shutdown() {
	rl.once.Do(func() {
		close(rl.stop)
	})
}
