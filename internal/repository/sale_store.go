package repository

import (
	"context"
	"time"

	"go-pos-inventory/internal/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaleStore is the transactional boundary of the checkout. Everything done
// through a SaleTx commits or rolls back as one unit.
type SaleStore interface {
	RunInTransaction(ctx context.Context, fn func(tx SaleTx) error) error
}

// SaleTx is the set of reads and writes available inside a sale transaction.
type SaleTx interface {
	// FindItem reads an inventory record as of the transaction snapshot and
	// validates it.
	FindItem(id uuid.UUID) (*model.InventoryItem, error)
	// SetItemQuantity writes quantity only if the stored value still equals
	// expected; otherwise it returns ErrConflict.
	SetItemQuantity(id uuid.UUID, expected, quantity int, updatedBy string) error
	CreateSale(sale *model.Sale) error
	FindSale(id uuid.UUID) (*model.Sale, error)
	// ReplaceSale overwrites the sale header and its lines.
	ReplaceSale(sale *model.Sale) error
}

type gormSaleStore struct {
	db *gorm.DB
}

func NewSaleStore(db *gorm.DB) SaleStore {
	return &gormSaleStore{db: db}
}

func (s *gormSaleStore) RunInTransaction(ctx context.Context, fn func(tx SaleTx) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&gormSaleTx{tx: tx})
		return fnErr
	})
	if err == nil {
		return nil
	}
	if fnErr != nil && err == fnErr {
		// already classified by the tx methods, or a business error from fn
		return err
	}
	return classify(err)
}

type gormSaleTx struct {
	tx *gorm.DB
}

func (t *gormSaleTx) FindItem(id uuid.UUID) (*model.InventoryItem, error) {
	q := t.tx
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var item model.InventoryItem
	if err := q.First(&item, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return &item, nil
}

func (t *gormSaleTx) SetItemQuantity(id uuid.UUID, expected, quantity int, updatedBy string) error {
	if quantity < 0 {
		return errors.Errorf("refusing to store negative quantity %d for item %s", quantity, id)
	}
	res := t.tx.Model(&model.InventoryItem{}).
		Where("id = ? AND quantity = ?", id, expected).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"updated_by": updatedBy,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrConflict, "item %s changed since it was read", id)
	}
	return nil
}

func (t *gormSaleTx) CreateSale(sale *model.Sale) error {
	return classify(t.tx.Create(sale).Error)
}

func (t *gormSaleTx) FindSale(id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := t.tx.Preload("Lines").First(&sale, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	return &sale, nil
}

func (t *gormSaleTx) ReplaceSale(sale *model.Sale) error {
	if err := t.tx.Where("sale_id = ?", sale.ID).Delete(&model.SaleLine{}).Error; err != nil {
		return classify(err)
	}
	lines := sale.Lines
	for i := range lines {
		lines[i].ID = 0
		lines[i].SaleID = sale.ID
	}
	if err := t.tx.Omit(clause.Associations).Save(sale).Error; err != nil {
		return classify(err)
	}
	if len(lines) > 0 {
		if err := t.tx.Create(&lines).Error; err != nil {
			return classify(err)
		}
	}
	return nil
}
