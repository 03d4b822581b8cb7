// Package service exposes item use cases over an ItemRepository and owns the
// transaction boundary of each call.
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/itemservice/internal/model"
	"github.com/vyrodovalexey/itemservice/internal/store"
)

// Transactor runs fn inside a transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoTx is a Transactor for stores without transactions.
type NoTx struct{}

// WithinTx calls fn directly.
func (NoTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ItemService runs every operation in its own transaction.
type ItemService struct {
	repo   store.ItemRepository
	tx     Transactor
	logger *zap.Logger
}

// NewItemService creates a new ItemService.
func NewItemService(repo store.ItemRepository, tx Transactor, logger *zap.Logger) *ItemService {
	if tx == nil {
		tx = NoTx{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemService{repo: repo, tx: tx, logger: logger}
}

// Save validates and stores a new item.
func (s *ItemService) Save(ctx context.Context, item *model.Item) (*model.Item, error) {
	if item == nil {
		return nil, store.ErrNilItem
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}

	var saved *model.Item
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		saved, err = s.repo.Save(ctx, item)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("item saved",
		zap.Int64("id", saved.ID),
		zap.String("item_name", saved.ItemName),
	)
	return saved, nil
}

// Update validates param and overwrites the item.
func (s *ItemService) Update(ctx context.Context, id int64, param model.ItemUpdate) error {
	if err := param.Validate(); err != nil {
		return err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, id, param)
	})
	if err != nil {
		return err
	}

	s.logger.Info("item updated", zap.Int64("id", id))
	return nil
}

// FindByID returns store.ErrNotFound when the item does not exist.
func (s *ItemService) FindByID(ctx context.Context, id int64) (model.Item, error) {
	var (
		item model.Item
		ok   bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		item, ok, err = s.repo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return model.Item{}, err
	}
	if !ok {
		return model.Item{}, fmt.Errorf("find item %d: %w", id, store.ErrNotFound)
	}
	return item, nil
}

// FindItems lists the items matching cond.
func (s *ItemService) FindItems(ctx context.Context, cond model.ItemSearch) ([]model.Item, error) {
	var items []model.Item
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.repo.FindAll(ctx, cond)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("items listed",
		zap.String("item_name", cond.ItemName),
		zap.Int("count", len(items)),
	)
	return items, nil
}
