package simpleinsert

import (
	"context"
	"testing"

	"github.com/vyrodovalexey/itemservice/internal/database"
	"github.com/vyrodovalexey/itemservice/internal/model"
	"github.com/vyrodovalexey/itemservice/internal/store"
	"github.com/vyrodovalexey/itemservice/internal/store/storetest"
)

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, storetest.SQLite(func(db *database.DB) store.ItemRepository {
		return New(db)
	}))
}

func TestStore_FindByIDRejectsDuplicateKey(t *testing.T) {
	storetest.RunAmbiguousLookup(t, func(db *database.DB) store.ItemRepository {
		return New(db)
	})
}

func TestInsert_CompilesFromTableMetadata(t *testing.T) {
	// Arrange
	db := storetest.OpenSQLite(t)
	ctx := storetest.InRollback(t, db)
	insert := NewInsert(model.TableName, "id")

	if cols := insert.Columns(); cols != nil {
		t.Fatalf("Columns() before first insert = %v, want nil", cols)
	}

	// Act
	id, err := insert.ExecuteAndReturnKey(ctx, db.Conn(ctx), model.NewItem("itemA", 10000, 10))

	// Assert
	if err != nil {
		t.Fatalf("ExecuteAndReturnKey() error = %v", err)
	}
	if id == 0 {
		t.Error("ExecuteAndReturnKey() returned zero key")
	}

	want := []string{"item_name", "price", "quantity"}
	cols := insert.Columns()
	if len(cols) != len(want) {
		t.Fatalf("Columns() = %v, want %v", cols, want)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Errorf("Columns()[%d] = %s, want %s", i, cols[i], want[i])
		}
	}
}

func TestInsert_UnknownTable(t *testing.T) {
	db := storetest.OpenSQLite(t)
	insert := NewInsert("missing", "id")

	if _, err := insert.ExecuteAndReturnKey(context.Background(), db.DB, model.NewItem("itemA", 1, 1)); err == nil {
		t.Fatal("ExecuteAndReturnKey() expected error for a table without columns")
	}
	if cols := insert.Columns(); cols != nil {
		t.Errorf("Columns() = %v, want nil after failed compile", cols)
	}
}

func TestBuildStatement(t *testing.T) {
	got := buildStatement("item", []string{"item_name", "price", "quantity"})
	want := "INSERT INTO item (item_name, price, quantity) VALUES (:item_name, :price, :quantity)"
	if got != want {
		t.Errorf("buildStatement() = %q, want %q", got, want)
	}
}
