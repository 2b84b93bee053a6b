package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// memoryCoordinator serializes writers inside one process. Waiters park on
// the holder's done channel instead of polling.
type memoryCoordinator struct {
	mu    sync.Mutex
	slots map[string]*memorySlot
}

type memorySlot struct {
	holder Holder
	done   chan struct{}
}

type memoryLease struct {
	c     *memoryCoordinator
	key   string
	token string
}

func NewMemoryCoordinator() Coordinator {
	return &memoryCoordinator{slots: make(map[string]*memorySlot)}
}

func (c *memoryCoordinator) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	for {
		c.mu.Lock()
		now := time.Now()
		cur, held := c.slots[key]
		if !held || cur.holder.Expired(now) {
			if held {
				close(cur.done)
			}
			h := newHolder(key, ttl, now)
			c.slots[key] = &memorySlot{holder: h, done: make(chan struct{})}
			c.mu.Unlock()
			return &memoryLease{c: c, key: key, token: h.Token}, nil
		}
		wait := cur.holder.Expires.Sub(now)
		c.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("acquire %s: %w", key, ctx.Err())
		case <-cur.done:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Release is a no-op once the lease expired and another writer took over.
func (l *memoryLease) Release(_ context.Context) error {
	l.c.mu.Lock()
	defer l.c.mu.Unlock()
	s, ok := l.c.slots[l.key]
	if !ok || s.holder.Token != l.token {
		return nil
	}
	delete(l.c.slots, l.key)
	close(s.done)
	return nil
}
