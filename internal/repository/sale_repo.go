package repository

import (
	"context"
	"time"

	"go-pos-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleRepository is the read side of the sales collection.
type SaleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	// FindInRange returns sales created in [from, to), newest first. A zero
	// limit means no limit.
	FindInRange(ctx context.Context, from, to time.Time, limit, offset int) ([]model.Sale, error)
	CountInRange(ctx context.Context, from, to time.Time) (int64, error)
	// FindPage returns up to limit sales created in [from, to) that sort after
	// the cursor in (created_at, id) order, oldest first. A nil cursor starts
	// at the beginning of the window.
	FindPage(ctx context.Context, from, to time.Time, after *SaleCursor, limit int) ([]model.Sale, error)
}

// SaleCursor is the (created_at, id) position of the last sale of a page.
type SaleCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

type saleRepo struct {
	db *gorm.DB
}

func NewSaleRepo(db *gorm.DB) SaleRepository {
	return &saleRepo{db}
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	err := r.db.WithContext(ctx).Preload("Lines").First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, classify(err)
	}
	return &sale, nil
}

func (r *saleRepo) FindInRange(ctx context.Context, from, to time.Time, limit, offset int) ([]model.Sale, error) {
	q := r.db.WithContext(ctx).Preload("Lines").
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	var sales []model.Sale
	if err := q.Find(&sales).Error; err != nil {
		return nil, classify(err)
	}
	return sales, nil
}

func (r *saleRepo) CountInRange(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&n).Error
	return n, classify(err)
}

func (r *saleRepo) FindPage(ctx context.Context, from, to time.Time, after *SaleCursor, limit int) ([]model.Sale, error) {
	q := r.db.WithContext(ctx).Preload("Lines").
		Where("created_at >= ? AND created_at < ?", from, to)
	if after != nil {
		q = q.Where("created_at > ? OR (created_at = ? AND id > ?)", after.CreatedAt, after.CreatedAt, after.ID)
	}

	var sales []model.Sale
	if err := q.Order("created_at ASC, id ASC").Limit(limit).Find(&sales).Error; err != nil {
		return nil, classify(err)
	}
	return sales, nil
}
