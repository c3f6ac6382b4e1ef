package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory is a fixed-window limiter kept in process memory.
type Memory struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
	now      func() time.Time

	stop chan struct{}
	once sync.Once
}

type visitor struct {
	tokens    int
	windowEnd time.Time
}

// NewMemory allows limit requests per key per window. A non-positive limit
// or window disables limiting. Call Close to stop the background sweeper.
func NewMemory(limit int, window time.Duration) *Memory {
	m := &Memory{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if limit > 0 && window > 0 {
		go m.sweep()
	}
	return m
}

// Allow consumes a token for key if one is left in the current window.
func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	if m.limit <= 0 || m.window <= 0 {
		return Decision{Allowed: true}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	v, ok := m.visitors[key]
	if !ok || !now.Before(v.windowEnd) {
		m.visitors[key] = &visitor{tokens: m.limit - 1, windowEnd: now.Add(m.window)}
		return Decision{Allowed: true}, nil
	}

	if v.tokens <= 0 {
		return Decision{RetryAfter: v.windowEnd.Sub(now)}, nil
	}
	v.tokens--
	return Decision{Allowed: true}, nil
}

// Close stops the sweeper. It is safe to call more than once.
func (m *Memory) Close() {
	m.once.Do(func() { close(m.stop) })
}

// sweep drops visitors whose window ended at least one window ago.
func (m *Memory) sweep() {
	ticker := time.NewTicker(m.window)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			cutoff := m.now().Add(-m.window)
			for key, v := range m.visitors {
				if v.windowEnd.Before(cutoff) {
					delete(m.visitors, key)
				}
			}
			m.mu.Unlock()
		}
	}
}
