package realtime

import (
	"context"
	"sync"
)

// MemoryBroker delivers events inside a single process
type MemoryBroker struct {
	mu      sync.RWMutex
	deliver func(Event)
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{}
}

func (m *MemoryBroker) Publish(_ context.Context, event Event) error {
	m.mu.RLock()
	deliver := m.deliver
	m.mu.RUnlock()

	if deliver != nil {
		deliver(event)
	}
	return nil
}

func (m *MemoryBroker) Start(_ context.Context, deliver func(Event)) error {
	m.mu.Lock()
	m.deliver = deliver
	m.mu.Unlock()
	return nil
}

func (m *MemoryBroker) Close() error {
	m.mu.Lock()
	m.deliver = nil
	m.mu.Unlock()
	return nil
}
