// Package storetest holds the behaviour every store.ItemRepository must show,
// plus helpers that give each test a throwaway SQLite database and a
// transaction that is rolled back when the test ends.
package storetest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/itemservice/internal/database"
	"github.com/vyrodovalexey/itemservice/internal/model"
	"github.com/vyrodovalexey/itemservice/internal/store"
)

// Harness returns an empty repository and the context its operations run in.
type Harness func(t *testing.T) (store.ItemRepository, context.Context)

// OpenSQLite opens a migrated database in a per-test temporary directory.
func OpenSQLite(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(context.Background(), filepath.Join(t.TempDir(), "items.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// InRollback begins a transaction on db and rolls it back at cleanup. The
// returned context carries the transaction.
func InRollback(t *testing.T, db *database.DB) context.Context {
	t.Helper()

	ctx, tx, err := db.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin transaction: %v", err)
	}
	t.Cleanup(func() {
		_ = tx.Rollback()
	})
	return ctx
}

// SQLite builds a Harness for a strategy backed by database.DB. Each test gets
// a fresh database and runs inside a rolled-back transaction.
func SQLite(newRepo func(db *database.DB) store.ItemRepository) Harness {
	return func(t *testing.T) (store.ItemRepository, context.Context) {
		t.Helper()

		db := OpenSQLite(t)
		return newRepo(db), InRollback(t, db)
	}
}

// duplicateRowsSQL shadows the item table with a view that returns every row
// twice. Temporary objects take precedence over main for unqualified names,
// and the view goes away when the transaction that created it rolls back.
const duplicateRowsSQL = `CREATE TEMP VIEW item AS
SELECT * FROM main.item UNION ALL SELECT * FROM main.item`

// DuplicateRows makes every stored item appear twice to queries run in the
// transaction carried by ctx.
func DuplicateRows(t *testing.T, db *database.DB, ctx context.Context) {
	t.Helper()

	if _, ok := database.TxFrom(ctx); !ok {
		t.Fatal("DuplicateRows needs a context carrying a transaction")
	}
	if _, err := db.Conn(ctx).ExecContext(ctx, duplicateRowsSQL); err != nil {
		t.Fatalf("create duplicating view: %v", err)
	}
}

// RunAmbiguousLookup checks that FindByID reports store.ErrAmbiguousResult
// and no item when the key matches more than one row. newRepo is called
// again after the rows are duplicated so no cached state answers the lookup.
// It returns the database, the transaction context and the duplicated item
// for further assertions.
func RunAmbiguousLookup(t *testing.T, newRepo func(db *database.DB) store.ItemRepository) (*database.DB, context.Context, model.Item) {
	t.Helper()

	// Arrange
	db := OpenSQLite(t)
	ctx := InRollback(t, db)
	item := model.NewItem("itemA", 10000, 10)
	mustSave(ctx, t, newRepo(db), &item)
	DuplicateRows(t, db, ctx)

	// Act
	found, ok, err := newRepo(db).FindByID(ctx, item.ID)

	// Assert
	if !errors.Is(err, store.ErrAmbiguousResult) {
		t.Errorf("FindByID() error = %v, want %v", err, store.ErrAmbiguousResult)
	}
	if ok {
		t.Error("FindByID() should not report a match for a duplicated key")
	}
	if found != (model.Item{}) {
		t.Errorf("FindByID() = %+v, want the zero item", found)
	}
	return db, ctx, item
}

// Run exercises the repository contract against the harness.
func Run(t *testing.T, newRepo Harness) {
	t.Helper()

	t.Run("save assigns identifier and round-trips", func(t *testing.T) {
		repo, ctx := newRepo(t)

		// Arrange
		item := model.NewItem("itemA", 10000, 10)

		// Act
		saved, err := repo.Save(ctx, &item)
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		found, ok, err := repo.FindByID(ctx, saved.ID)

		// Assert
		if err != nil {
			t.Fatalf("FindByID() error = %v", err)
		}
		if saved != &item {
			t.Error("Save() should return the item it was given")
		}
		if item.ID == 0 {
			t.Fatal("Save() should assign an identifier")
		}
		if !ok {
			t.Fatal("FindByID() should find the saved item")
		}
		if found != item {
			t.Errorf("FindByID() = %+v, want %+v", found, item)
		}
	})

	t.Run("save assigns distinct identifiers", func(t *testing.T) {
		repo, ctx := newRepo(t)

		seen := make(map[int64]bool)
		for _, name := range []string{"itemA", "itemB", "itemC"} {
			item := model.NewItem(name, 100, 1)
			if _, err := repo.Save(ctx, &item); err != nil {
				t.Fatalf("Save(%s) error = %v", name, err)
			}
			if seen[item.ID] {
				t.Fatalf("identifier %d assigned twice", item.ID)
			}
			seen[item.ID] = true
		}
	})

	t.Run("save rejects invalid input", func(t *testing.T) {
		repo, ctx := newRepo(t)

		tests := []struct {
			name    string
			item    *model.Item
			wantErr error
		}{
			{"nil item", nil, store.ErrNilItem},
			{"identifier already set", &model.Item{ID: 42, ItemName: "itemA", Price: 1, Quantity: 1}, store.ErrIDAssigned},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := repo.Save(ctx, tt.item); !errors.Is(err, tt.wantErr) {
					t.Errorf("Save() error = %v, want %v", err, tt.wantErr)
				}
			})
		}

		if _, ok, err := repo.FindByID(ctx, 42); err != nil || ok {
			t.Errorf("rejected item should not be stored: ok=%v err=%v", ok, err)
		}
	})

	t.Run("save with cancelled context leaves item unsaved", func(t *testing.T) {
		repo, ctx := newRepo(t)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		item := model.NewItem("itemA", 10000, 10)
		if _, err := repo.Save(cancelled, &item); err == nil {
			t.Fatal("Save() expected error for cancelled context")
		}
		if item.ID != 0 {
			t.Errorf("failed Save() assigned identifier %d", item.ID)
		}
	})

	t.Run("update overwrites every field", func(t *testing.T) {
		repo, ctx := newRepo(t)

		// Arrange
		item := model.NewItem("item1", 10000, 10)
		other := model.NewItem("item2", 20000, 20)
		mustSave(ctx, t, repo, &item)
		mustSave(ctx, t, repo, &other)
		param := model.ItemUpdate{ItemName: "item2", Price: 20000, Quantity: 30}

		// Act
		err := repo.Update(ctx, item.ID, param)

		// Assert
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		found := mustFind(ctx, t, repo, item.ID)
		want := model.Item{ID: item.ID, ItemName: "item2", Price: 20000, Quantity: 30}
		if found != want {
			t.Errorf("after Update() = %+v, want %+v", found, want)
		}
		if untouched := mustFind(ctx, t, repo, other.ID); untouched != other {
			t.Errorf("Update() changed another item: %+v", untouched)
		}
	})

	t.Run("update missing item returns not found", func(t *testing.T) {
		repo, ctx := newRepo(t)

		err := repo.Update(ctx, 999999, model.ItemUpdate{ItemName: "x", Price: 1, Quantity: 1})
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Update() error = %v, want %v", err, store.ErrNotFound)
		}
	})

	t.Run("find by id of unknown identifier is absent", func(t *testing.T) {
		repo, ctx := newRepo(t)

		found, ok, err := repo.FindByID(ctx, 999999)
		if err != nil {
			t.Fatalf("FindByID() error = %v", err)
		}
		if ok {
			t.Errorf("FindByID() found %+v, want absent", found)
		}
		if found != (model.Item{}) {
			t.Errorf("FindByID() = %+v, want zero item", found)
		}
	})

	t.Run("find by id is repeatable", func(t *testing.T) {
		repo, ctx := newRepo(t)

		item := model.NewItem("itemA", 10000, 10)
		mustSave(ctx, t, repo, &item)

		first := mustFind(ctx, t, repo, item.ID)
		second := mustFind(ctx, t, repo, item.ID)
		if first != second {
			t.Errorf("FindByID() returned %+v then %+v", first, second)
		}
	})

	t.Run("find all on empty store", func(t *testing.T) {
		repo, ctx := newRepo(t)

		items, err := repo.FindAll(ctx, model.ItemSearch{})
		if err != nil {
			t.Fatalf("FindAll() error = %v", err)
		}
		if len(items) != 0 {
			t.Errorf("FindAll() = %+v, want empty", items)
		}
	})

	t.Run("find all applies filters", func(t *testing.T) {
		repo, ctx := newRepo(t)

		item1 := model.NewItem("itemA-1", 10000, 10)
		item2 := model.NewItem("itemA-2", 20000, 20)
		item3 := model.NewItem("itemB-1", 30000, 30)
		mustSave(ctx, t, repo, &item1)
		mustSave(ctx, t, repo, &item2)
		mustSave(ctx, t, repo, &item3)

		tests := []struct {
			name string
			cond model.ItemSearch
			want []model.Item
		}{
			{"no filters", model.ItemSearch{}, []model.Item{item1, item2, item3}},
			{"empty name is absent", model.ItemSearch{ItemName: ""}, []model.Item{item1, item2, item3}},
			{"name prefix", model.ItemSearch{ItemName: "itemA"}, []model.Item{item1, item2}},
			{"name substring", model.ItemSearch{ItemName: "temA"}, []model.Item{item1, item2}},
			{"other name", model.ItemSearch{ItemName: "itemB"}, []model.Item{item3}},
			{"max price inclusive", model.ItemSearch{MaxPrice: model.IntPtr(10000)}, []model.Item{item1}},
			{"both filters", model.ItemSearch{ItemName: "itemA", MaxPrice: model.IntPtr(10000)}, []model.Item{item1}},
			{"name is case sensitive", model.ItemSearch{ItemName: "ITEMA"}, nil},
			{"max price below all", model.ItemSearch{MaxPrice: model.IntPtr(9999)}, nil},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.FindAll(ctx, tt.cond)
				if err != nil {
					t.Fatalf("FindAll() error = %v", err)
				}
				assertItems(t, got, tt.want)
			})
		}
	})

	t.Run("find all matches wildcards literally", func(t *testing.T) {
		repo, ctx := newRepo(t)

		percent := model.NewItem("50%off", 100, 1)
		plain := model.NewItem("50xoff", 100, 1)
		underscore := model.NewItem("a_b", 100, 1)
		other := model.NewItem("axb", 100, 1)
		for _, item := range []*model.Item{&percent, &plain, &underscore, &other} {
			mustSave(ctx, t, repo, item)
		}

		got, err := repo.FindAll(ctx, model.ItemSearch{ItemName: "%"})
		if err != nil {
			t.Fatalf("FindAll(%%) error = %v", err)
		}
		assertItems(t, got, []model.Item{percent})

		got, err = repo.FindAll(ctx, model.ItemSearch{ItemName: "_"})
		if err != nil {
			t.Fatalf("FindAll(_) error = %v", err)
		}
		assertItems(t, got, []model.Item{underscore})
	})

	t.Run("find all sees updates", func(t *testing.T) {
		repo, ctx := newRepo(t)

		item := model.NewItem("itemA", 10000, 10)
		mustSave(ctx, t, repo, &item)
		if err := repo.Update(ctx, item.ID, model.ItemUpdate{ItemName: "itemZ", Price: 500, Quantity: 1}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		got, err := repo.FindAll(ctx, model.ItemSearch{ItemName: "itemZ", MaxPrice: model.IntPtr(500)})
		if err != nil {
			t.Fatalf("FindAll() error = %v", err)
		}
		assertItems(t, got, []model.Item{{ID: item.ID, ItemName: "itemZ", Price: 500, Quantity: 1}})
	})
}

func mustSave(ctx context.Context, t *testing.T, repo store.ItemRepository, item *model.Item) {
	t.Helper()

	if _, err := repo.Save(ctx, item); err != nil {
		t.Fatalf("Save(%s) error = %v", item.ItemName, err)
	}
}

func mustFind(ctx context.Context, t *testing.T, repo store.ItemRepository, id int64) model.Item {
	t.Helper()

	item, ok, err := repo.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("FindByID(%d) error = %v", id, err)
	}
	if !ok {
		t.Fatalf("FindByID(%d) found nothing", id)
	}
	return item
}

func assertItems(t *testing.T, got, want []model.Item) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("got %d items %+v, want %d items %+v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
