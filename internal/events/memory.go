package events

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Bus for single-instance deployments and
// tests. Dispatch is synchronous, which keeps tests deterministic;
// handlers must not block.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewMemoryBus() *MemoryBus { return &MemoryBus{} }

func (b *MemoryBus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	hs := make([]Handler, len(b.handlers))
	copy(hs, b.handlers)
	b.mu.RUnlock()

	for _, h := range hs {
		h(ctx, e)
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
	return nil
}
