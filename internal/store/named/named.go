// Package named implements store.ItemRepository with sqlx named parameters.
// Parameters are bound from structs or maps and rows are mapped onto
// model.Item through its db tags.
package named

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/vyrodovalexey/itemservice/internal/database"
	"github.com/vyrodovalexey/itemservice/internal/model"
	"github.com/vyrodovalexey/itemservice/internal/store"
)

const (
	insertSQL = "INSERT INTO item (item_name, price, quantity) VALUES (:item_name, :price, :quantity)"
	updateSQL = "UPDATE item SET item_name = :item_name, price = :price, quantity = :quantity WHERE id = :id"
	selectSQL = "SELECT id, item_name, price, quantity FROM item"
)

// searchParams is the named-parameter source for FindAll.
type searchParams struct {
	ItemName string `db:"item_name"`
	MaxPrice int    `db:"max_price"`
}

// Store binds parameters by name.
type Store struct {
	db *database.DB
}

// New creates a Store over db.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// Save binds the insert from the item's own fields.
func (s *Store) Save(ctx context.Context, item *model.Item) (*model.Item, error) {
	if err := store.CheckNew(item); err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}

	res, err := sqlx.NamedExecContext(ctx, s.db.Conn(ctx), insertSQL, item)
	if err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("save item: read generated key: %w", err)
	}

	item.ID = id
	return item, nil
}

// Update binds the new values and the key from a map.
func (s *Store) Update(ctx context.Context, id int64, param model.ItemUpdate) error {
	res, err := sqlx.NamedExecContext(ctx, s.db.Conn(ctx), updateSQL, map[string]any{
		"item_name": param.ItemName,
		"price":     param.Price,
		"quantity":  param.Quantity,
		"id":        id,
	})
	if err != nil {
		return fmt.Errorf("update item %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update item %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update item %d: %w", id, store.ErrNotFound)
	}
	return nil
}

// FindByID selects by key and maps the row through struct tags.
func (s *Store) FindByID(ctx context.Context, id int64) (model.Item, bool, error) {
	items, err := s.selectNamed(ctx, selectSQL+" WHERE id = :id", map[string]any{"id": id})
	if err != nil {
		return model.Item{}, false, fmt.Errorf("find item %d: %w", id, err)
	}

	switch len(items) {
	case 0:
		return model.Item{}, false, nil
	case 1:
		return items[0], true, nil
	default:
		return model.Item{}, false, fmt.Errorf("find item %d: %w", id, store.ErrAmbiguousResult)
	}
}

// FindAll binds the search from a parameter struct.
func (s *Store) FindAll(ctx context.Context, cond model.ItemSearch) ([]model.Item, error) {
	query, params := buildFindAll(cond)

	items, err := s.selectNamed(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	return items, nil
}

func buildFindAll(cond model.ItemSearch) (string, searchParams) {
	var (
		clauses []string
		params  searchParams
	)

	if cond.HasName() {
		clauses = append(clauses, `item_name LIKE :item_name ESCAPE '\'`)
		params.ItemName = store.LikePattern(cond.ItemName)
	}
	if cond.HasMaxPrice() {
		clauses = append(clauses, "price <= :max_price")
		params.MaxPrice = *cond.MaxPrice
	}

	query := selectSQL
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	return query + " ORDER BY id", params
}

func (s *Store) selectNamed(ctx context.Context, query string, arg any) ([]model.Item, error) {
	bound, args, err := s.db.BindNamed(query, arg)
	if err != nil {
		return nil, fmt.Errorf("bind named query: %w", err)
	}

	items := make([]model.Item, 0)
	if err := sqlx.SelectContext(ctx, s.db.Conn(ctx), &items, bound, args...); err != nil {
		return nil, err
	}
	return items, nil
}
