// Package simpleinsert implements store.ItemRepository with an INSERT that is
// derived from the item table's metadata instead of written by hand. Reads
// and updates use named parameters.
package simpleinsert

import (
	"context"
	"fmt"

	"github.com/vyrodovalexey/itemservice/internal/database"
	"github.com/vyrodovalexey/itemservice/internal/model"
	"github.com/vyrodovalexey/itemservice/internal/store"
	"github.com/vyrodovalexey/itemservice/internal/store/named"
)

// Store inserts through a metadata-driven Insert.
type Store struct {
	*named.Store

	db     *database.DB
	insert *Insert
}

// New creates a Store over db.
func New(db *database.DB) *Store {
	return &Store{
		Store:  named.New(db),
		db:     db,
		insert: NewInsert(model.TableName, "id"),
	}
}

// Save inserts the item's non-key columns and assigns the generated key.
func (s *Store) Save(ctx context.Context, item *model.Item) (*model.Item, error) {
	if err := store.CheckNew(item); err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}

	id, err := s.insert.ExecuteAndReturnKey(ctx, s.db.Conn(ctx), item)
	if err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}

	item.ID = id
	return item, nil
}
