package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/itemservice/internal/model"
	"github.com/vyrodovalexey/itemservice/internal/store"
	"github.com/vyrodovalexey/itemservice/internal/store/orm"
	"github.com/vyrodovalexey/itemservice/internal/store/storetest"
)

// countingTx records how many transactions were opened.
type countingTx struct {
	calls int
}

func (c *countingTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	c.calls++
	return fn(ctx)
}

func newMemoryService() (*ItemService, *store.MemoryStore, *countingTx) {
	repo := store.NewMemoryStore()
	tx := &countingTx{}
	return NewItemService(repo, tx, zap.NewNop()), repo, tx
}

func TestItemService_Save(t *testing.T) {
	tests := []struct {
		name    string
		item    *model.Item
		wantErr error
	}{
		{"valid item", &model.Item{ItemName: "itemA", Price: 10000, Quantity: 10}, nil},
		{"nil item", nil, store.ErrNilItem},
		{"empty name", &model.Item{Price: 1}, model.ErrEmptyName},
		{"name too long", &model.Item{ItemName: "abcdefghijk", Price: 1}, model.ErrNameTooLong},
		{"negative price", &model.Item{ItemName: "itemA", Price: -1}, model.ErrNegativePrice},
		{"assigned identifier", &model.Item{ID: 3, ItemName: "itemA"}, store.ErrIDAssigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			svc, _, tx := newMemoryService()

			// Act
			saved, err := svc.Save(context.Background(), tt.item)

			// Assert
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Save() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if saved.ID == 0 {
				t.Error("Save() should assign an identifier")
			}
			if tx.calls != 1 {
				t.Errorf("transactions = %d, want 1", tx.calls)
			}
		})
	}
}

func TestItemService_SaveSkipsStoreOnValidationError(t *testing.T) {
	svc, repo, tx := newMemoryService()

	if _, err := svc.Save(context.Background(), &model.Item{}); err == nil {
		t.Fatal("Save() expected validation error")
	}

	items, _ := repo.FindAll(context.Background(), model.ItemSearch{})
	if len(items) != 0 || tx.calls != 0 {
		t.Errorf("store touched on validation error: items=%d tx=%d", len(items), tx.calls)
	}
}

func TestItemService_Update(t *testing.T) {
	svc, _, _ := newMemoryService()
	ctx := context.Background()

	item := &model.Item{ItemName: "itemA", Price: 10000, Quantity: 10}
	if _, err := svc.Save(ctx, item); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	tests := []struct {
		name    string
		id      int64
		param   model.ItemUpdate
		wantErr error
	}{
		{"existing item", item.ID, model.ItemUpdate{ItemName: "itemB", Price: 20000, Quantity: 30}, nil},
		{"missing item", 999, model.ItemUpdate{ItemName: "itemB", Price: 1, Quantity: 1}, store.ErrNotFound},
		{"invalid update", item.ID, model.ItemUpdate{ItemName: "", Price: 1}, model.ErrEmptyName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Update(ctx, tt.id, tt.param)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Update() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	found, err := svc.FindByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	want := model.Item{ID: item.ID, ItemName: "itemB", Price: 20000, Quantity: 30}
	if found != want {
		t.Errorf("FindByID() = %+v, want %+v", found, want)
	}
}

func TestItemService_FindByIDMissing(t *testing.T) {
	svc, _, _ := newMemoryService()

	if _, err := svc.FindByID(context.Background(), 42); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("FindByID() error = %v, want %v", err, store.ErrNotFound)
	}
}

func TestItemService_FindItems(t *testing.T) {
	svc, _, _ := newMemoryService()
	ctx := context.Background()

	for _, item := range []*model.Item{
		{ItemName: "itemA-1", Price: 10000, Quantity: 10},
		{ItemName: "itemA-2", Price: 20000, Quantity: 20},
		{ItemName: "itemB-1", Price: 30000, Quantity: 30},
	} {
		if _, err := svc.Save(ctx, item); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	items, err := svc.FindItems(ctx, model.ItemSearch{ItemName: "itemA", MaxPrice: model.IntPtr(10000)})
	if err != nil {
		t.Fatalf("FindItems() error = %v", err)
	}
	if len(items) != 1 || items[0].ItemName != "itemA-1" {
		t.Errorf("FindItems() = %+v, want [itemA-1]", items)
	}
}

func TestItemService_UpdateCommitsUnitOfWork(t *testing.T) {
	// Arrange
	db := storetest.OpenSQLite(t)
	svc := NewItemService(orm.New(db), db, zap.NewNop())
	ctx := context.Background()

	item := &model.Item{ItemName: "itemA", Price: 10000, Quantity: 10}
	if _, err := svc.Save(ctx, item); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Act
	if err := svc.Update(ctx, item.ID, model.ItemUpdate{ItemName: "itemB", Price: 1, Quantity: 2}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	// Assert
	var name string
	if err := db.GetContext(ctx, &name, "SELECT item_name FROM item WHERE id = ?", item.ID); err != nil {
		t.Fatalf("read row: %v", err)
	}
	if name != "itemB" {
		t.Errorf("stored name = %s, want itemB", name)
	}
}

func TestNoTx(t *testing.T) {
	called := false
	err := NoTx{}.WithinTx(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Errorf("WithinTx() err = %v, called = %v", err, called)
	}
}
