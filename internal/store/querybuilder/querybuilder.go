// Package querybuilder implements store.ItemRepository with the orm unit of
// work for writes and a squirrel-built query for FindAll. Each filter is a
// predicate fragment that is nil when the filter is absent, so the query is
// assembled without branching on combinations.
package querybuilder

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/vyrodovalexey/itemservice/internal/model"
	"github.com/vyrodovalexey/itemservice/internal/store"
	"github.com/vyrodovalexey/itemservice/internal/store/orm"
)

var itemColumns = []string{"id", "item_name", "price", "quantity"}

// Store shares Save, Update and FindByID with orm.Store.
type Store struct {
	*orm.Store
}

// New wraps an orm.Store.
func New(base *orm.Store) *Store {
	return &Store{Store: base}
}

// FindAll flushes pending changes and runs the built query once.
func (s *Store) FindAll(ctx context.Context, cond model.ItemSearch) ([]model.Item, error) {
	query, args, err := buildFindAll(cond).ToSql()
	if err != nil {
		return nil, fmt.Errorf("find items: build query: %w", err)
	}

	var items []model.Item
	err = s.DB().WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Flush(ctx); err != nil {
			return err
		}

		var rows []model.Item
		if err := s.DB().Gorm(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
			return err
		}
		items = s.Manage(ctx, rows)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	return items, nil
}

func buildFindAll(cond model.ItemSearch) sq.SelectBuilder {
	return sq.Select(itemColumns...).
		From(model.TableName).
		Where(likeItemName(cond)).
		Where(maxPrice(cond)).
		OrderBy("id")
}

func likeItemName(cond model.ItemSearch) sq.Sqlizer {
	if !cond.HasName() {
		return nil
	}
	return sq.Expr(`item_name LIKE ? ESCAPE '\'`, store.LikePattern(cond.ItemName))
}

func maxPrice(cond model.ItemSearch) sq.Sqlizer {
	if !cond.HasMaxPrice() {
		return nil
	}
	return sq.LtOrEq{"price": *cond.MaxPrice}
}
