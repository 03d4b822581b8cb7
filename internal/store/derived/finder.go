package derived

import (
	"context"

	"github.com/vyrodovalexey/itemservice/internal/database"
	"github.com/vyrodovalexey/itemservice/internal/model"
)

// findItemsSQL is the hand-written query behind FindItems.
const findItemsSQL = `SELECT id, item_name, price, quantity FROM item
WHERE item_name LIKE ? ESCAPE '\' AND price <= ?
ORDER BY id`

// Finder is the fixed set of item queries, one function per query shape.
// Name patterns are LIKE patterns; see store.LikePattern.
type Finder struct {
	db *database.DB
}

// NewFinder creates a Finder over db.
func NewFinder(db *database.DB) *Finder {
	return &Finder{db: db}
}

// Save inserts item when it has no identifier and overwrites the row
// otherwise. The generated identifier is set on item.
func (f *Finder) Save(ctx context.Context, item *model.Item) error {
	return f.db.Gorm(ctx).Save(item).Error
}

// FindByID returns at most two rows so callers can detect duplicates.
func (f *Finder) FindByID(ctx context.Context, id int64) ([]model.Item, error) {
	var items []model.Item
	err := f.db.Gorm(ctx).Where("id = ?", id).Limit(2).Find(&items).Error
	return items, err
}

// FindAll returns every item.
func (f *Finder) FindAll(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	err := f.db.Gorm(ctx).Order("id").Find(&items).Error
	return items, err
}

// FindByItemNameLike returns items whose name matches pattern.
func (f *Finder) FindByItemNameLike(ctx context.Context, pattern string) ([]model.Item, error) {
	var items []model.Item
	err := f.db.Gorm(ctx).
		Where(`item_name LIKE ? ESCAPE '\'`, pattern).
		Order("id").
		Find(&items).Error
	return items, err
}

// FindByPriceLessThanEqual returns items priced at most price.
func (f *Finder) FindByPriceLessThanEqual(ctx context.Context, price int) ([]model.Item, error) {
	var items []model.Item
	err := f.db.Gorm(ctx).
		Where("price <= ?", price).
		Order("id").
		Find(&items).Error
	return items, err
}

// FindByItemNameLikeAndPriceLessThanEqual combines both conditions.
func (f *Finder) FindByItemNameLikeAndPriceLessThanEqual(ctx context.Context, pattern string, price int) ([]model.Item, error) {
	var items []model.Item
	err := f.db.Gorm(ctx).
		Where(`item_name LIKE ? ESCAPE '\'`, pattern).
		Where("price <= ?", price).
		Order("id").
		Find(&items).Error
	return items, err
}

// FindItems is FindByItemNameLikeAndPriceLessThanEqual written as raw SQL.
func (f *Finder) FindItems(ctx context.Context, pattern string, price int) ([]model.Item, error) {
	var items []model.Item
	err := f.db.Gorm(ctx).Raw(findItemsSQL, pattern, price).Scan(&items).Error
	return items, err
}
