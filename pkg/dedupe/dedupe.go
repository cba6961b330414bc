package dedupe

import (
	"context"
	"sync"
	"time"
)

// Deduper is the event-id dedup contract. Implementations must be safe for
// concurrent use.
type Deduper interface {
	// MarkOnce reports whether the caller is the first observer of the id.
	MarkOnce(ctx context.Context, eventID string) bool
}

// Memory is the single-process fallback when no Valkey is configured.
// Entries expire after the TTL via an opportunistic sweep on insert.
type Memory struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	ttl     time.Duration
	lastGC  time.Time
	nowFunc func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Memory{
		seen:    make(map[string]time.Time),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

func (m *Memory) MarkOnce(_ context.Context, eventID string) bool {
	now := m.nowFunc()

	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastGC) > m.ttl {
		for k, at := range m.seen {
			if now.Sub(at) > m.ttl {
				delete(m.seen, k)
			}
		}
		m.lastGC = now
	}

	if at, ok := m.seen[eventID]; ok && now.Sub(at) <= m.ttl {
		return false
	}
	m.seen[eventID] = now
	return true
}
