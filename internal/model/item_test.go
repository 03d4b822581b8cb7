package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestItem_Validate(t *testing.T) {
	tests := []struct {
		name    string
		item    Item
		wantErr error
	}{
		{
			name:    "valid item",
			item:    NewItem("itemA", 10000, 10),
			wantErr: nil,
		},
		{
			name:    "valid item - zero price and quantity",
			item:    NewItem("free", 0, 0),
			wantErr: nil,
		},
		{
			name:    "valid item - max name length",
			item:    NewItem(strings.Repeat("a", MaxNameLength), 10, 1),
			wantErr: nil,
		},
		{
			name:    "valid item - multibyte name counted by rune",
			item:    NewItem(strings.Repeat("가", MaxNameLength), 10, 1),
			wantErr: nil,
		},
		{
			name:    "invalid - empty name",
			item:    NewItem("", 10, 1),
			wantErr: ErrEmptyName,
		},
		{
			name:    "invalid - name too long",
			item:    NewItem(strings.Repeat("a", MaxNameLength+1), 10, 1),
			wantErr: ErrNameTooLong,
		},
		{
			name:    "invalid - negative price",
			item:    NewItem("itemA", -1, 1),
			wantErr: ErrNegativePrice,
		},
		{
			name:    "invalid - negative quantity",
			item:    NewItem("itemA", 1, -1),
			wantErr: ErrNegativeQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			err := tt.item.Validate()

			// Assert
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestItemUpdate_Validate(t *testing.T) {
	valid := ItemUpdate{ItemName: "item2", Price: 20000, Quantity: 30}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	invalid := ItemUpdate{ItemName: "", Price: 20000, Quantity: 30}
	if err := invalid.Validate(); !errors.Is(err, ErrEmptyName) {
		t.Errorf("Validate() error = %v, want %v", err, ErrEmptyName)
	}
}

func TestItem_Apply(t *testing.T) {
	// Arrange
	item := Item{ID: 7, ItemName: "item1", Price: 10000, Quantity: 10}

	// Act
	item.Apply(ItemUpdate{ItemName: "item2", Price: 20000, Quantity: 30})

	// Assert
	want := Item{ID: 7, ItemName: "item2", Price: 20000, Quantity: 30}
	if item != want {
		t.Errorf("Apply() = %+v, want %+v", item, want)
	}
}

func TestItem_Persisted(t *testing.T) {
	if NewItem("itemA", 1, 1).Persisted() {
		t.Error("new item should not be persisted")
	}
	if !(Item{ID: 1}).Persisted() {
		t.Error("item with ID should be persisted")
	}
}

func TestItem_TableName(t *testing.T) {
	if got := (Item{}).TableName(); got != "item" {
		t.Errorf("TableName() = %s, want item", got)
	}
}

func TestItemSearch_Matches(t *testing.T) {
	itemA1 := Item{ID: 1, ItemName: "itemA-1", Price: 10000}
	itemB1 := Item{ID: 3, ItemName: "itemB-1", Price: 30000}

	tests := []struct {
		name   string
		search ItemSearch
		item   Item
		want   bool
	}{
		{"no filters", ItemSearch{}, itemB1, true},
		{"substring match", ItemSearch{ItemName: "temA"}, itemA1, true},
		{"substring miss", ItemSearch{ItemName: "itemB"}, itemA1, false},
		{"case sensitive", ItemSearch{ItemName: "ITEMA"}, itemA1, false},
		{"price inclusive", ItemSearch{MaxPrice: IntPtr(10000)}, itemA1, true},
		{"price above bound", ItemSearch{MaxPrice: IntPtr(9999)}, itemA1, false},
		{"both filters conjunctive", ItemSearch{ItemName: "itemA", MaxPrice: IntPtr(10000)}, itemB1, false},
		{"wildcards are literal", ItemSearch{ItemName: "item%"}, itemA1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.search.Matches(tt.item); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestItem_JSONMarshal(t *testing.T) {
	// Arrange
	item := Item{ID: 42, ItemName: "itemA", Price: 10000, Quantity: 10}

	// Act
	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	// Assert
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	for _, field := range []string{"id", "itemName", "price", "quantity"} {
		if _, ok := result[field]; !ok {
			t.Errorf("JSON should contain field %q", field)
		}
	}
}

func TestAPIResponse_Success(t *testing.T) {
	tests := []struct {
		name string
		data any
	}{
		{"string data", "test"},
		{"item data", Item{ID: 1, ItemName: "itemA"}},
		{"slice data", []Item{{ID: 1}, {ID: 2}}},
		{"nil data", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			resp := NewSuccessResponse(tt.data)

			// Assert
			if !resp.Success {
				t.Errorf("Success = false, want true")
			}
			if resp.Error != "" {
				t.Errorf("Error = %s, want empty string", resp.Error)
			}
		})
	}
}

func TestAPIResponse_Error(t *testing.T) {
	// Act
	resp := NewErrorResponse[any]("validation failed")

	// Assert
	if resp.Success {
		t.Errorf("Success = true, want false")
	}
	if resp.Error != "validation failed" {
		t.Errorf("Error = %s, want validation failed", resp.Error)
	}
}

func TestErrorResponse_JSONOmitEmpty(t *testing.T) {
	data, err := json.Marshal(ErrorResponse{Code: 404, Message: "item not found"})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "details") {
		t.Errorf("empty details should be omitted, got %s", data)
	}
}
