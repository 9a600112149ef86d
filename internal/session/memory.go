package session

import (
	"context"
	"sync"
)

// MemoryStorage keeps records in process memory. It backs single-instance
// development setups and the tests.
type MemoryStorage struct {
	mu       sync.Mutex
	records  map[string][]byte
	watchers map[string]map[*memoryWatch]struct{}
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records:  make(map[string][]byte),
		watchers: make(map[string]map[*memoryWatch]struct{}),
	}
}

// Get returns a copy of the record under key.
func (m *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Put stores a copy of value and notifies the other origins.
func (m *MemoryStorage) Put(_ context.Context, key string, value []byte, origin string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[key] = append([]byte(nil), value...)
	m.broadcast(key, origin)
	return nil
}

// Delete removes the record and notifies the other origins.
func (m *MemoryStorage) Delete(_ context.Context, key string, origin string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, key)
	m.broadcast(key, origin)
	return nil
}

// Watch registers a watcher for key. The watch is released on Close or when
// ctx is done, whichever comes first.
func (m *MemoryStorage) Watch(ctx context.Context, key string, origin string) (Watch, error) {
	w := &memoryWatch{
		storage: m,
		key:     key,
		origin:  origin,
		events:  make(chan ChangeEvent, 1),
		done:    make(chan struct{}),
	}

	m.mu.Lock()
	if m.watchers[key] == nil {
		m.watchers[key] = make(map[*memoryWatch]struct{})
	}
	m.watchers[key][w] = struct{}{}
	m.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = w.Close()
		case <-w.done:
		}
	}()

	return w, nil
}

// watcherCount reports how many watches are open on key.
func (m *MemoryStorage) watcherCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers[key])
}

// broadcast must be called with m.mu held.
func (m *MemoryStorage) broadcast(key, origin string) {
	ev := ChangeEvent{Key: key, Origin: origin}
	for w := range m.watchers[key] {
		if w.origin == origin {
			continue
		}
		offer(w.events, ev)
	}
}

type memoryWatch struct {
	storage *MemoryStorage
	key     string
	origin  string
	events  chan ChangeEvent
	done    chan struct{}
	once    sync.Once
}

func (w *memoryWatch) Events() <-chan ChangeEvent {
	return w.events
}

func (w *memoryWatch) Close() error {
	w.once.Do(func() {
		w.storage.mu.Lock()
		delete(w.storage.watchers[w.key], w)
		if len(w.storage.watchers[w.key]) == 0 {
			delete(w.storage.watchers, w.key)
		}
		w.storage.mu.Unlock()
		close(w.done)
	})
	return nil
}
