// Package derived implements store.ItemRepository on top of Finder, a fixed
// set of named gorm queries. FindAll picks the query that matches the filters
// present in the search.
package derived

import (
	"context"
	"fmt"

	"github.com/vyrodovalexey/itemservice/internal/database"
	"github.com/vyrodovalexey/itemservice/internal/model"
	"github.com/vyrodovalexey/itemservice/internal/store"
)

// Store adapts a Finder to the repository contract.
type Store struct {
	db     *database.DB
	finder *Finder
}

// New creates a Store over db.
func New(db *database.DB) *Store {
	return &Store{db: db, finder: NewFinder(db)}
}

// Save inserts the item through the finder.
func (s *Store) Save(ctx context.Context, item *model.Item) (*model.Item, error) {
	if err := store.CheckNew(item); err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}

	row := *item
	if err := s.finder.Save(ctx, &row); err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}

	item.ID = row.ID
	return item, nil
}

// Update loads the item, applies param and saves it back in one transaction.
func (s *Store) Update(ctx context.Context, id int64, param model.ItemUpdate) error {
	err := s.db.WithinTx(ctx, func(ctx context.Context) error {
		item, ok, err := s.findByID(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return store.ErrNotFound
		}

		item.Apply(param)
		return s.finder.Save(ctx, &item)
	})
	if err != nil {
		return fmt.Errorf("update item %d: %w", id, err)
	}
	return nil
}

// FindByID looks the item up by key.
func (s *Store) FindByID(ctx context.Context, id int64) (model.Item, bool, error) {
	item, ok, err := s.findByID(ctx, id)
	if err != nil {
		return model.Item{}, false, fmt.Errorf("find item %d: %w", id, err)
	}
	return item, ok, nil
}

// FindAll dispatches to the finder query for the filters present.
func (s *Store) FindAll(ctx context.Context, cond model.ItemSearch) ([]model.Item, error) {
	var (
		items []model.Item
		err   error
	)

	switch {
	case cond.HasName() && cond.HasMaxPrice():
		items, err = s.finder.FindItems(ctx, store.LikePattern(cond.ItemName), *cond.MaxPrice)
	case cond.HasName():
		items, err = s.finder.FindByItemNameLike(ctx, store.LikePattern(cond.ItemName))
	case cond.HasMaxPrice():
		items, err = s.finder.FindByPriceLessThanEqual(ctx, *cond.MaxPrice)
	default:
		items, err = s.finder.FindAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

func (s *Store) findByID(ctx context.Context, id int64) (model.Item, bool, error) {
	items, err := s.finder.FindByID(ctx, id)
	if err != nil {
		return model.Item{}, false, err
	}

	switch len(items) {
	case 0:
		return model.Item{}, false, nil
	case 1:
		return items[0], true, nil
	default:
		return model.Item{}, false, store.ErrAmbiguousResult
	}
}
