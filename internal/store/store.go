// Package store defines the item repository contract and its in-memory
// implementation. SQL-backed strategies live in the sub-packages.
package store

import (
	"context"
	"errors"

	"github.com/vyrodovalexey/itemservice/internal/model"
)

// Store errors.
var (
	ErrNotFound        = errors.New("item not found")
	ErrAmbiguousResult = errors.New("more than one item matched a unique lookup")
	ErrIDAssigned      = errors.New("item already has an identifier")
	ErrNilItem         = errors.New("item cannot be nil")
)

// ItemRepository is implemented by every persistence strategy. Callers own the
// transaction boundary; see database.DB.WithinTx.
type ItemRepository interface {
	// Save inserts an unsaved item and assigns the generated identifier to it.
	Save(ctx context.Context, item *model.Item) (*model.Item, error)

	// Update overwrites name, price and quantity of the item with the given id.
	// It returns ErrNotFound when no such item exists.
	Update(ctx context.Context, id int64, param model.ItemUpdate) error

	// FindByID reports false when the item does not exist.
	FindByID(ctx context.Context, id int64) (model.Item, bool, error)

	// FindAll returns every item matching all present filters, ordered by id.
	FindAll(ctx context.Context, cond model.ItemSearch) ([]model.Item, error)
}

// CheckNew validates the Save precondition shared by all strategies.
func CheckNew(item *model.Item) error {
	if item == nil {
		return ErrNilItem
	}
	if item.Persisted() {
		return ErrIDAssigned
	}
	return nil
}

// LikePattern turns a substring into a LIKE pattern whose wildcard characters
// match literally. Use it together with ESCAPE '\'.
func LikePattern(substr string) string {
	escaped := make([]byte, 0, len(substr)+2)
	escaped = append(escaped, '%')
	for i := 0; i < len(substr); i++ {
		switch c := substr[i]; c {
		case '%', '_', '\\':
			escaped = append(escaped, '\\', c)
		default:
			escaped = append(escaped, c)
		}
	}
	return string(append(escaped, '%'))
}
