// Package orm implements store.ItemRepository on gorm with a unit of work.
//
// Save persists immediately. Items read or saved inside a transaction become
// managed: Update only changes the managed copy, and the change is written
// when the transaction commits or before the next FindAll query runs in it.
// Operations called without a transaction run in one of their own.
package orm

import (
	"context"
	"fmt"

	"github.com/vyrodovalexey/itemservice/internal/database"
	"github.com/vyrodovalexey/itemservice/internal/model"
	"github.com/vyrodovalexey/itemservice/internal/store"
)

// uowKey identifies the unit of work a Store keeps in a transaction.
type uowKey struct {
	store *Store
}

// Store is the gorm-backed repository.
type Store struct {
	db *database.DB
}

// New creates a Store over db.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// DB returns the database the store runs on.
func (s *Store) DB() *database.DB {
	return s.db
}

// Save inserts the item and starts tracking it.
func (s *Store) Save(ctx context.Context, item *model.Item) (*model.Item, error) {
	if err := store.CheckNew(item); err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}

	err := s.db.WithinTx(ctx, func(ctx context.Context) error {
		row := *item
		if err := s.db.Gorm(ctx).Create(&row).Error; err != nil {
			return err
		}
		s.unitOfWork(ctx).manage(row)
		item.ID = row.ID
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}
	return item, nil
}

// Update changes the managed item. The write happens at flush time.
func (s *Store) Update(ctx context.Context, id int64, param model.ItemUpdate) error {
	err := s.db.WithinTx(ctx, func(ctx context.Context) error {
		_, ok, err := s.find(ctx, id)
		if err != nil {
			return err
		}
		if !ok || !s.unitOfWork(ctx).modify(id, param) {
			return store.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update item %d: %w", id, err)
	}
	return nil
}

// FindByID returns the managed item, loading it on first access.
func (s *Store) FindByID(ctx context.Context, id int64) (model.Item, bool, error) {
	var (
		item model.Item
		ok   bool
	)
	err := s.db.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		item, ok, err = s.find(ctx, id)
		return err
	})
	if err != nil {
		return model.Item{}, false, fmt.Errorf("find item %d: %w", id, err)
	}
	return item, ok, nil
}

// FindAll flushes pending changes and queries with the present filters.
func (s *Store) FindAll(ctx context.Context, cond model.ItemSearch) ([]model.Item, error) {
	var items []model.Item
	err := s.db.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Flush(ctx); err != nil {
			return err
		}

		query := s.db.Gorm(ctx).Model(&model.Item{})
		if cond.HasName() {
			query = query.Where(`item_name LIKE ? ESCAPE '\'`, store.LikePattern(cond.ItemName))
		}
		if cond.HasMaxPrice() {
			query = query.Where("price <= ?", *cond.MaxPrice)
		}

		var rows []model.Item
		if err := query.Order("id").Find(&rows).Error; err != nil {
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

// Flush writes the changed columns of every managed item in the ambient
// transaction.
func (s *Store) Flush(ctx context.Context) error {
	uow := s.unitOfWork(ctx)
	if uow == nil {
		return nil
	}

	for _, c := range uow.dirty() {
		res := s.db.Gorm(ctx).Model(&model.Item{}).Where("id = ?", c.id).Updates(c.columns)
		if res.Error != nil {
			return fmt.Errorf("flush item %d: %w", c.id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("flush item %d: %w", c.id, store.ErrNotFound)
		}
		uow.synced(c.id)
	}
	return nil
}

// Manage tracks rows read by a query in the ambient transaction and returns
// their managed state. Rows already tracked keep the managed state.
func (s *Store) Manage(ctx context.Context, rows []model.Item) []model.Item {
	items := make([]model.Item, 0, len(rows))
	uow := s.unitOfWork(ctx)
	for _, row := range rows {
		if uow != nil {
			row = uow.manage(row)
		}
		items = append(items, row)
	}
	return items
}

func (s *Store) find(ctx context.Context, id int64) (model.Item, bool, error) {
	uow := s.unitOfWork(ctx)
	if uow != nil {
		if item, ok := uow.get(id); ok {
			return item, true, nil
		}
	}

	var rows []model.Item
	if err := s.db.Gorm(ctx).Where("id = ?", id).Limit(2).Find(&rows).Error; err != nil {
		return model.Item{}, false, err
	}

	switch len(rows) {
	case 0:
		return model.Item{}, false, nil
	case 1:
		if uow != nil {
			return uow.manage(rows[0]), true, nil
		}
		return rows[0], true, nil
	default:
		return model.Item{}, false, store.ErrAmbiguousResult
	}
}

// unitOfWork returns the unit of work bound to the ambient transaction,
// creating it and its flush hook on first use. It returns nil outside a
// transaction.
func (s *Store) unitOfWork(ctx context.Context) *unitOfWork {
	tx, ok := database.TxFrom(ctx)
	if !ok {
		return nil
	}

	created := false
	uow := tx.Resource(uowKey{store: s}, func() any {
		created = true
		return newUnitOfWork()
	}).(*unitOfWork)

	if created {
		tx.BeforeCommit(s.Flush)
	}
	return uow
}
