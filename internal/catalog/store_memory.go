package catalog

import (
	"context"
	"sync"
	"time"
)

// MemStore is an in-process Store. It is also its own Detector: every
// append bumps a version that serves as the change signal.
type MemStore struct {
	mu      sync.RWMutex
	items   []Item
	version int64
	now     func() time.Time
}

func NewMemStore(seed ...Item) *MemStore {
	s := &MemStore{now: time.Now}
	s.items = append(s.items, seed...)
	return s
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) ReadAll(ctx context.Context) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *MemStore) FindByID(ctx context.Context, id int64) (Item, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := findByID(s.items, id)
	return it, ok, nil
}

func (s *MemStore) Append(ctx context.Context, n NewItem) (Item, error) {
	if err := n.Validate(); err != nil {
		return Item{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	it := Item{
		ID:       nextID(s.now(), s.items),
		Name:     n.Name,
		Category: n.Category,
		Price:    n.Price,
	}
	s.items = append(s.items, it)
	s.version++
	return it, nil
}

func (s *MemStore) CurrentSignal(ctx context.Context) (Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Signal{ModTime: s.version, Size: int64(len(s.items))}, nil
}
