package store

import (
	"sync"
)

const subscriberBuffer = 16

// MemoryStore is an in-memory implementation of [Store].
//
// Subscribers receive renders via buffered channels. Sends are non-blocking;
// if a subscriber's buffer is full the render is dropped for that subscriber
// rather than blocking the poll cycle.
type MemoryStore struct {
	mu      sync.RWMutex
	latest  Badge
	present bool

	subMu       sync.RWMutex
	subscribers map[chan Badge]struct{}
}

// NewMemoryStore creates a new in-memory [Store] implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscribers: make(map[chan Badge]struct{}),
	}
}

// Update replaces the current badge and notifies all subscribers.
func (m *MemoryStore) Update(b Badge) {
	m.mu.Lock()
	m.latest = b
	m.present = true
	m.mu.Unlock()

	m.notifySubscribers(b)
}

// Latest returns the current badge, or false before the first Update.
func (m *MemoryStore) Latest() (Badge, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest, m.present
}

// Subscribe creates a new subscription.
// Caller must call [MemoryStore.Unsubscribe] when done.
func (m *MemoryStore) Subscribe() <-chan Badge {
	ch := make(chan Badge, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Badge) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

func (m *MemoryStore) notifySubscribers(b Badge) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- b:
		default:
			// subscriber is slow, drop the render
		}
	}
}
