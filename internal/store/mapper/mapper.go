// Package mapper implements store.ItemRepository with SQL kept outside the
// code in a YAML mapper file. Statements are Go templates with named
// parameters; the findAll statement builds its WHERE clause from the search.
package mapper

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vyrodovalexey/itemservice/internal/database"
	"github.com/vyrodovalexey/itemservice/internal/model"
	"github.com/vyrodovalexey/itemservice/internal/store"
)

// updateParams binds the update statement.
type updateParams struct {
	ID int64 `db:"id"`
	model.ItemUpdate
}

// searchParams binds and renders the findAll statement.
type searchParams struct {
	ItemName    string `db:"item_name"`
	MaxPrice    int    `db:"max_price"`
	HasName     bool   `db:"-"`
	HasMaxPrice bool   `db:"-"`
}

// Store runs the statements of a mapper File.
type Store struct {
	db   *database.DB
	file *File
}

// New creates a Store running file's statements on db.
func New(db *database.DB, file *File) *Store {
	return &Store{db: db, file: file}
}

// Save runs the save statement and assigns the generated key.
func (s *Store) Save(ctx context.Context, item *model.Item) (*model.Item, error) {
	if err := store.CheckNew(item); err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}

	st, err := s.file.Statement(StatementSave)
	if err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}
	if st.KeyColumn == "" {
		return nil, fmt.Errorf("save item: statement %s declares no key_column", st.Name)
	}

	res, err := s.exec(ctx, StatementSave, item)
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

// Update runs the update statement.
func (s *Store) Update(ctx context.Context, id int64, param model.ItemUpdate) error {
	res, err := s.exec(ctx, StatementUpdate, updateParams{ID: id, ItemUpdate: param})
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

// FindByID runs the findById statement.
func (s *Store) FindByID(ctx context.Context, id int64) (model.Item, bool, error) {
	items, err := s.query(ctx, StatementFindByID, map[string]any{"id": id})
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

// FindAll runs the findAll statement rendered for the present filters.
func (s *Store) FindAll(ctx context.Context, cond model.ItemSearch) ([]model.Item, error) {
	params := searchParams{
		HasName:     cond.HasName(),
		HasMaxPrice: cond.HasMaxPrice(),
	}
	if params.HasName {
		params.ItemName = store.LikePattern(cond.ItemName)
	}
	if params.HasMaxPrice {
		params.MaxPrice = *cond.MaxPrice
	}

	items, err := s.query(ctx, StatementFindAll, params)
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	return items, nil
}

func (s *Store) exec(ctx context.Context, name string, arg any) (sql.Result, error) {
	query, err := s.render(name, arg)
	if err != nil {
		return nil, err
	}
	return sqlx.NamedExecContext(ctx, s.db.Conn(ctx), query, arg)
}

func (s *Store) query(ctx context.Context, name string, arg any) ([]model.Item, error) {
	query, err := s.render(name, arg)
	if err != nil {
		return nil, err
	}

	bound, args, err := s.db.BindNamed(query, arg)
	if err != nil {
		return nil, fmt.Errorf("bind statement %s: %w", name, err)
	}

	items := make([]model.Item, 0)
	if err := sqlx.SelectContext(ctx, s.db.Conn(ctx), &items, bound, args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) render(name string, arg any) (string, error) {
	st, err := s.file.Statement(name)
	if err != nil {
		return "", err
	}
	return st.Render(arg)
}
