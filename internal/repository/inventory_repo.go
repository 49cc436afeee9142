package repository

import (
	"context"
	"strings"

	"go-pos-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryFilter narrows FindAll.
type InventoryFilter struct {
	Category string
	Query    string
}

type InventoryRepository interface {
	Create(ctx context.Context, item *model.InventoryItem) error
	FindAll(ctx context.Context, filter InventoryFilter) ([]model.InventoryItem, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error)
	FindBySKU(ctx context.Context, sku string) (*model.InventoryItem, error)
	// FindAtOrBelowReorder returns items whose quantity is at or below their reorder level.
	FindAtOrBelowReorder(ctx context.Context) ([]model.InventoryItem, error)
	// Modify locks the item, applies fn and saves the result in one transaction.
	Modify(ctx context.Context, id uuid.UUID, fn func(item *model.InventoryItem) error) (*model.InventoryItem, error)
	Delete(ctx context.Context, id uuid.UUID, deletedBy string) error
}

type inventoryRepo struct {
	db *gorm.DB
}

func NewInventoryRepo(db *gorm.DB) InventoryRepository {
	return &inventoryRepo{db}
}

func (r *inventoryRepo) Create(ctx context.Context, item *model.InventoryItem) error {
	return classify(r.db.WithContext(ctx).Create(item).Error)
}

func (r *inventoryRepo) FindAll(ctx context.Context, filter InventoryFilter) ([]model.InventoryItem, error) {
	q := r.db.WithContext(ctx).Model(&model.InventoryItem{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if s := strings.TrimSpace(filter.Query); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", like, like)
	}

	var items []model.InventoryItem
	if err := q.Order("name ASC").Find(&items).Error; err != nil {
		return nil, classify(err)
	}
	return items, nil
}

func (r *inventoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	return &item, nil
}

func (r *inventoryRepo) FindBySKU(ctx context.Context, sku string) (*model.InventoryItem, error) {
	var item model.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "sku = ?", sku).Error; err != nil {
		return nil, classify(err)
	}
	return &item, nil
}

func (r *inventoryRepo) FindAtOrBelowReorder(ctx context.Context) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	err := r.db.WithContext(ctx).
		Where("quantity <= reorder_level OR quantity = 0").
		Order("quantity ASC, name ASC").
		Find(&items).Error
	if err != nil {
		return nil, classify(err)
	}
	return items, nil
}

func (r *inventoryRepo) Modify(ctx context.Context, id uuid.UUID, fn func(item *model.InventoryItem) error) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if q.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&item, "id = ?", id).Error; err != nil {
			return classify(err)
		}
		if err := fn(&item); err != nil {
			return err
		}
		return classify(tx.Save(&item).Error)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *inventoryRepo) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.InventoryItem{}).Where("id = ?", id).Update("deleted_by", deletedBy).Error; err != nil {
			return classify(err)
		}
		res := tx.Delete(&model.InventoryItem{}, "id = ?", id)
		if res.Error != nil {
			return classify(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
