// Package sqltemplate implements store.ItemRepository with hand-written SQL,
// positional parameters and explicit row mapping.
package sqltemplate

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/vyrodovalexey/itemservice/internal/database"
	"github.com/vyrodovalexey/itemservice/internal/model"
	"github.com/vyrodovalexey/itemservice/internal/store"
)

const (
	insertSQL = "INSERT INTO item (item_name, price, quantity) VALUES (?, ?, ?)"
	updateSQL = "UPDATE item SET item_name = ?, price = ?, quantity = ? WHERE id = ?"
	selectSQL = "SELECT id, item_name, price, quantity FROM item"
)

// Store runs every statement on the ambient transaction when there is one.
type Store struct {
	db *database.DB
}

// New creates a Store over db.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// Save inserts the item and reads the generated key back from the driver.
func (s *Store) Save(ctx context.Context, item *model.Item) (*model.Item, error) {
	if err := store.CheckNew(item); err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}

	res, err := s.db.Conn(ctx).ExecContext(ctx, insertSQL, item.ItemName, item.Price, item.Quantity)
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

// Update overwrites name, price and quantity.
func (s *Store) Update(ctx context.Context, id int64, param model.ItemUpdate) error {
	res, err := s.db.Conn(ctx).ExecContext(ctx, updateSQL, param.ItemName, param.Price, param.Quantity, id)
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

// FindByID selects by primary key.
func (s *Store) FindByID(ctx context.Context, id int64) (model.Item, bool, error) {
	items, err := s.query(ctx, selectSQL+" WHERE id = ?", id)
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

// FindAll builds the WHERE clause from the filters that are present.
func (s *Store) FindAll(ctx context.Context, cond model.ItemSearch) ([]model.Item, error) {
	query, args := buildFindAll(cond)

	items, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	return items, nil
}

func buildFindAll(cond model.ItemSearch) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if cond.HasName() {
		clauses = append(clauses, `item_name LIKE ? ESCAPE '\'`)
		args = append(args, store.LikePattern(cond.ItemName))
	}
	if cond.HasMaxPrice() {
		clauses = append(clauses, "price <= ?")
		args = append(args, *cond.MaxPrice)
	}

	var sb strings.Builder
	sb.WriteString(selectSQL)
	if len(clauses) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(clauses, " AND "))
	}
	sb.WriteString(" ORDER BY id")

	return sb.String(), args
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]model.Item, error) {
	rows, err := s.db.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return mapRows(rows)
}

func mapRows(rows *sql.Rows) ([]model.Item, error) {
	items := make([]model.Item, 0)
	for rows.Next() {
		var item model.Item
		if err := rows.Scan(&item.ID, &item.ItemName, &item.Price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
