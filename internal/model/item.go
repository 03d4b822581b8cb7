// Package model defines data structures used throughout the application.
package model

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Validation errors for Item.
var (
	ErrEmptyName        = errors.New("item name cannot be empty")
	ErrNameTooLong      = errors.New("item name cannot exceed 10 characters")
	ErrNegativePrice    = errors.New("price cannot be negative")
	ErrNegativeQuantity = errors.New("quantity cannot be negative")
)

// MaxNameLength mirrors the item_name column width.
const MaxNameLength = 10

// TableName is the relational table holding items.
const TableName = "item"

// Item is the single persisted entity. ID is zero until the store assigns one.
type Item struct {
	ID       int64  `json:"id" db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	ItemName string `json:"itemName" db:"item_name" gorm:"column:item_name"`
	Price    int    `json:"price" db:"price" gorm:"column:price"`
	Quantity int    `json:"quantity" db:"quantity" gorm:"column:quantity"`
}

// NewItem returns an unsaved item.
func NewItem(name string, price, quantity int) Item {
	return Item{ItemName: name, Price: price, Quantity: quantity}
}

// TableName tells gorm which table backs Item.
func (Item) TableName() string {
	return TableName
}

// Persisted reports whether the store has assigned an identifier.
func (i Item) Persisted() bool {
	return i.ID != 0
}

// Apply overwrites every mutable field with the values from u.
func (i *Item) Apply(u ItemUpdate) {
	i.ItemName = u.ItemName
	i.Price = u.Price
	i.Quantity = u.Quantity
}

// Validate checks the field rules enforced at the API boundary.
// Repositories store whatever they are given.
func (i *Item) Validate() error {
	return validateFields(i.ItemName, i.Price, i.Quantity)
}

// ItemUpdate carries the complete set of new values for an existing item.
type ItemUpdate struct {
	ItemName string `json:"itemName" db:"item_name"`
	Price    int    `json:"price" db:"price"`
	Quantity int    `json:"quantity" db:"quantity"`
}

// Validate checks the field rules enforced at the API boundary.
func (u *ItemUpdate) Validate() error {
	return validateFields(u.ItemName, u.Price, u.Quantity)
}

// ItemSearch filters a listing. An empty ItemName and a nil MaxPrice are
// both treated as absent.
type ItemSearch struct {
	ItemName string
	MaxPrice *int
}

// HasName reports whether the name filter is present.
func (s ItemSearch) HasName() bool {
	return s.ItemName != ""
}

// HasMaxPrice reports whether the price filter is present.
func (s ItemSearch) HasMaxPrice() bool {
	return s.MaxPrice != nil
}

// Matches evaluates the search against an item in memory.
func (s ItemSearch) Matches(item Item) bool {
	if s.HasName() && !strings.Contains(item.ItemName, s.ItemName) {
		return false
	}
	if s.HasMaxPrice() && item.Price > *s.MaxPrice {
		return false
	}
	return true
}

// IntPtr is a small helper for building searches.
func IntPtr(v int) *int {
	return &v
}

func validateFields(name string, price, quantity int) error {
	if name == "" {
		return ErrEmptyName
	}

	if utf8.RuneCountInString(name) > MaxNameLength {
		return ErrNameTooLong
	}

	if price < 0 {
		return ErrNegativePrice
	}

	if quantity < 0 {
		return ErrNegativeQuantity
	}

	return nil
}

// APIResponse is a generic wrapper for API responses.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error API response.
func NewErrorResponse[T any](errMsg string) APIResponse[T] {
	return APIResponse[T]{
		Success: false,
		Error:   errMsg,
	}
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
