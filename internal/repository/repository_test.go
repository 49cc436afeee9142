package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go-pos-inventory/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use a unique in-memory database per test to avoid cross-test collisions.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func seedItem(t *testing.T, db *gorm.DB, name, sku string, qty, reorder int) *model.InventoryItem {
	t.Helper()
	item := &model.InventoryItem{
		Name:         name,
		SKU:          sku,
		Category:     "grocery",
		UnitPrice:    decimal.RequireFromString("10.50"),
		CostPrice:    decimal.RequireFromString("7"),
		Quantity:     qty,
		ReorderLevel: reorder,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func quantityOf(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var item model.InventoryItem
	require.NoError(t, db.First(&item, "id = ?", id).Error)
	return item.Quantity
}

func TestSaleStoreCommitsAllWrites(t *testing.T) {
	db := setupTestDB(t)
	store := NewSaleStore(db)
	item := seedItem(t, db, "Rice", "RICE-1", 5, 2)

	sale := &model.Sale{
		ReceiptNo:     "R-1",
		PaymentMethod: model.PaymentCash,
		Subtotal:      decimal.NewFromInt(21),
		Total:         decimal.NewFromInt(21),
		Lines: []model.SaleLine{
			{ItemID: item.ID, Name: item.Name, UnitPrice: item.UnitPrice, Quantity: 2, LineTotal: decimal.NewFromInt(21)},
		},
	}

	err := store.RunInTransaction(context.Background(), func(tx SaleTx) error {
		got, err := tx.FindItem(item.ID)
		if err != nil {
			return err
		}
		if err := tx.SetItemQuantity(item.ID, got.Quantity, got.Quantity-2, "tester"); err != nil {
			return err
		}
		return tx.CreateSale(sale)
	})
	require.NoError(t, err)

	assert.Equal(t, 3, quantityOf(t, db, item.ID))
	var lines int64
	db.Model(&model.SaleLine{}).Where("sale_id = ?", sale.ID).Count(&lines)
	assert.Equal(t, int64(1), lines)
}

func TestSaleStoreRollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	store := NewSaleStore(db)
	item := seedItem(t, db, "Rice", "RICE-1", 5, 2)
	boom := errors.New("business rule")

	err := store.RunInTransaction(context.Background(), func(tx SaleTx) error {
		if err := tx.SetItemQuantity(item.ID, 5, 1, "tester"); err != nil {
			return err
		}
		if err := tx.CreateSale(&model.Sale{ReceiptNo: "R-2", PaymentMethod: model.PaymentCash}); err != nil {
			return err
		}
		return boom
	})
	assert.Same(t, boom, err)

	assert.Equal(t, 5, quantityOf(t, db, item.ID))
	var sales int64
	db.Model(&model.Sale{}).Count(&sales)
	assert.Zero(t, sales)
}

func TestSetItemQuantityDetectsConcurrentChange(t *testing.T) {
	db := setupTestDB(t)
	store := NewSaleStore(db)
	item := seedItem(t, db, "Rice", "RICE-1", 5, 2)

	err := store.RunInTransaction(context.Background(), func(tx SaleTx) error {
		return tx.SetItemQuantity(item.ID, 4, 3, "tester")
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 5, quantityOf(t, db, item.ID))
}

func TestSetItemQuantityRejectsNegative(t *testing.T) {
	db := setupTestDB(t)
	store := NewSaleStore(db)
	item := seedItem(t, db, "Rice", "RICE-1", 1, 0)

	err := store.RunInTransaction(context.Background(), func(tx SaleTx) error {
		return tx.SetItemQuantity(item.ID, 1, -1, "tester")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, quantityOf(t, db, item.ID))
}

func TestFindItemValidatesRecord(t *testing.T) {
	db := setupTestDB(t)
	store := NewSaleStore(db)
	item := seedItem(t, db, "Rice", "RICE-1", 1, 0)
	require.NoError(t, db.Model(&model.InventoryItem{}).Where("id = ?", item.ID).Update("quantity", -3).Error)

	err := store.RunInTransaction(context.Background(), func(tx SaleTx) error {
		_, err := tx.FindItem(item.ID)
		return err
	})
	assert.ErrorIs(t, err, model.ErrMalformedItem)

	err = store.RunInTransaction(context.Background(), func(tx SaleTx) error {
		_, err := tx.FindItem(uuid.New())
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplaceSaleRewritesLines(t *testing.T) {
	db := setupTestDB(t)
	store := NewSaleStore(db)
	a := seedItem(t, db, "Rice", "RICE-1", 5, 0)
	b := seedItem(t, db, "Beans", "BEAN-1", 5, 0)

	sale := &model.Sale{
		ReceiptNo:     "R-3",
		PaymentMethod: model.PaymentCash,
		Lines: []model.SaleLine{
			{ItemID: a.ID, Name: a.Name, UnitPrice: a.UnitPrice, Quantity: 1, LineTotal: a.UnitPrice},
		},
	}
	require.NoError(t, store.RunInTransaction(context.Background(), func(tx SaleTx) error {
		return tx.CreateSale(sale)
	}))

	require.NoError(t, store.RunInTransaction(context.Background(), func(tx SaleTx) error {
		got, err := tx.FindSale(sale.ID)
		if err != nil {
			return err
		}
		got.PaymentMethod = model.PaymentOnline
		got.Lines = []model.SaleLine{
			{ItemID: b.ID, Name: b.Name, UnitPrice: b.UnitPrice, Quantity: 2, LineTotal: decimal.NewFromInt(21)},
		}
		return tx.ReplaceSale(got)
	}))

	var stored model.Sale
	require.NoError(t, db.Preload("Lines").First(&stored, "id = ?", sale.ID).Error)
	assert.Equal(t, model.PaymentOnline, stored.PaymentMethod)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, b.ID, stored.Lines[0].ItemID)
	assert.Equal(t, 2, stored.Lines[0].Quantity)
}

func TestInventoryRepo(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInventoryRepo(db)
	ctx := context.Background()

	seedItem(t, db, "Rice", "RICE-1", 0, 5)
	seedItem(t, db, "Beans", "BEAN-1", 3, 5)
	soap := seedItem(t, db, "Soap", "SOAP-1", 40, 5)
	require.NoError(t, db.Model(soap).Update("category", "household").Error)

	all, err := repo.FindAll(ctx, InventoryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	grocery, err := repo.FindAll(ctx, InventoryFilter{Category: "grocery"})
	require.NoError(t, err)
	assert.Len(t, grocery, 2)

	found, err := repo.FindAll(ctx, InventoryFilter{Query: "soap"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "SOAP-1", found[0].SKU)

	low, err := repo.FindAtOrBelowReorder(ctx)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "Rice", low[0].Name)

	dup := &model.InventoryItem{Name: "Rice again", SKU: "RICE-1"}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicate)

	require.NoError(t, repo.Delete(ctx, soap.ID, "manager"))
	_, err = repo.FindByID(ctx, soap.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, soap.ID, "manager"), ErrNotFound)
}

func TestInventoryRepoModify(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInventoryRepo(db)
	ctx := context.Background()
	item := seedItem(t, db, "Rice", "RICE-1", 5, 2)

	got, err := repo.Modify(ctx, item.ID, func(i *model.InventoryItem) error {
		i.Quantity = 12
		i.UpdatedBy = "manager"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 12, got.Quantity)
	assert.Equal(t, 12, quantityOf(t, db, item.ID))

	errStop := errors.New("stop")
	_, err = repo.Modify(ctx, item.ID, func(i *model.InventoryItem) error {
		i.Quantity = 0
		return errStop
	})
	assert.ErrorIs(t, err, errStop)
	assert.Equal(t, 12, quantityOf(t, db, item.ID))

	_, err = repo.Modify(ctx, uuid.New(), func(*model.InventoryItem) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaleRepoFindPageWalksTiesByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSaleRepo(db)
	ctx := context.Background()

	at := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	for i, ts := range []time.Time{at, at, at, at.Add(time.Minute), at.Add(2 * time.Hour)} {
		sale := &model.Sale{
			ReceiptNo:     fmt.Sprintf("R-%d", i),
			PaymentMethod: model.PaymentCash,
			Subtotal:      decimal.NewFromInt(1),
			Total:         decimal.NewFromInt(1),
		}
		sale.CreatedAt = ts
		require.NoError(t, db.Create(sale).Error)
	}

	var got []string
	var after *SaleCursor
	for {
		page, err := repo.FindPage(ctx, at, at.Add(time.Hour), after, 2)
		require.NoError(t, err)
		for _, s := range page {
			got = append(got, s.ReceiptNo)
		}
		if len(page) < 2 {
			break
		}
		last := page[len(page)-1]
		after = &SaleCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	// the sale two hours later is outside the window
	require.Len(t, got, 4)
	assert.ElementsMatch(t, []string{"R-0", "R-1", "R-2"}, got[:3])
	assert.Equal(t, "R-3", got[3])
}
