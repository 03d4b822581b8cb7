package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vyrodovalexey/itemservice/internal/model"
)

// MemoryStore implements ItemRepository with in-memory storage. It ignores
// transactions, so tests reset it with Clear instead of rolling back.
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[int64]model.Item
	sequence int64
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[int64]model.Item),
	}
}

// Save stores the item under the next sequence value.
func (s *MemoryStore) Save(ctx context.Context, item *model.Item) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("save item: %w", ctx.Err())
	default:
	}

	if err := CheckNew(item); err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequence++
	item.ID = s.sequence
	s.items[item.ID] = *item

	return item, nil
}

// Update overwrites the mutable fields of an existing item.
func (s *MemoryStore) Update(ctx context.Context, id int64, param model.ItemUpdate) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("update item: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.items[id]
	if !exists {
		return fmt.Errorf("update item %d: %w", id, ErrNotFound)
	}

	existing.Apply(param)
	s.items[id] = existing

	return nil
}

// FindByID retrieves an item by its ID.
func (s *MemoryStore) FindByID(ctx context.Context, id int64) (model.Item, bool, error) {
	select {
	case <-ctx.Done():
		return model.Item{}, false, fmt.Errorf("find item: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[id]
	return item, exists, nil
}

// FindAll returns the matching items in insertion order.
func (s *MemoryStore) FindAll(ctx context.Context, cond model.ItemSearch) ([]model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("find items: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.Item, 0, len(s.items))
	for _, item := range s.items {
		if cond.Matches(item) {
			items = append(items, item)
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	return items, nil
}

// Clear removes every item. The sequence keeps counting so identifiers are
// never reused.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[int64]model.Item)
}
