package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pos-inventory/internal/events"
	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/repository"
)

func itemRequest(name, sku string, qty, reorder int) InventoryItemRequest {
	return InventoryItemRequest{
		Name:         name,
		SKU:          sku,
		Category:     "grocery",
		UnitPrice:    decimal.RequireFromString("2.50"),
		CostPrice:    decimal.RequireFromString("1.75"),
		Quantity:     qty,
		ReorderLevel: reorder,
	}
}

func TestInventoryServiceCreate(t *testing.T) {
	db := setupTestDB(t)
	rec := &recorder{}
	svc := NewInventoryService(repository.NewInventoryRepo(db), rec, nil)

	item, err := svc.CreateItem(context.Background(), itemRequest(" Rice ", "RICE-1", 10, 2), cashier)
	require.NoError(t, err)
	assert.Equal(t, "Rice", item.Name)
	assert.Equal(t, cashier.ID, item.CreatedBy)
	assert.Equal(t, []string{events.TopicInventoryChanged}, rec.topics())

	_, err = svc.CreateItem(context.Background(), itemRequest("Rice 2", "RICE-1", 1, 0), cashier)
	assert.ErrorIs(t, err, ErrDuplicateSKU)
}

func TestInventoryServiceCreateLowStockRaisesAlert(t *testing.T) {
	db := setupTestDB(t)
	rec := &recorder{}
	svc := NewInventoryService(repository.NewInventoryRepo(db), rec, nil)

	_, err := svc.CreateItem(context.Background(), itemRequest("Salt", "SALT", 0, 5), cashier)
	require.NoError(t, err)

	alerts := rec.byTopic(events.TopicStockAlert)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertCritical, alerts[0].(events.StockAlertEvent).Level)
}

func TestInventoryServiceValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewInventoryService(repository.NewInventoryRepo(db), nil, nil)

	req := itemRequest("", "", -1, -2)
	req.UnitPrice = decimal.NewFromInt(-1)
	_, err := svc.CreateItem(context.Background(), req, cashier)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	for _, f := range []string{"name", "sku", "quantity", "reorder_level", "unit_price"} {
		assert.Contains(t, verr.Fields, f)
	}
}

func TestInventoryServiceRejectsSubCentPrices(t *testing.T) {
	db := setupTestDB(t)
	svc := NewInventoryService(repository.NewInventoryRepo(db), nil, nil)

	req := itemRequest("Oil", "OIL", 10, 4)
	req.UnitPrice = decimal.RequireFromString("1.005")
	req.CostPrice = decimal.RequireFromString("0.5001")
	_, err := svc.CreateItem(context.Background(), req, cashier)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "unit_price")
	assert.Contains(t, verr.Fields, "cost_price")
}

func TestInventoryServiceUpdate(t *testing.T) {
	db := setupTestDB(t)
	rec := &recorder{}
	svc := NewInventoryService(repository.NewInventoryRepo(db), rec, nil)

	item, err := svc.CreateItem(context.Background(), itemRequest("Oil", "OIL", 10, 4), cashier)
	require.NoError(t, err)
	other, err := svc.CreateItem(context.Background(), itemRequest("Soap", "SOAP", 10, 4), cashier)
	require.NoError(t, err)

	updated, err := svc.UpdateItem(context.Background(), item.ID, itemRequest("Olive Oil", "OIL", 2, 4), cashier)
	require.NoError(t, err)
	assert.Equal(t, "Olive Oil", updated.Name)
	assert.Equal(t, 2, updated.Quantity)
	assert.Equal(t, 2, quantityOf(t, db, item.ID))

	changes := rec.byTopic(events.TopicInventoryChanged)
	last := changes[len(changes)-1].(events.InventoryEvent)
	assert.Equal(t, 10, last.OldQuantity)
	assert.Equal(t, 2, last.NewQuantity)
	assert.Equal(t, "updated", last.Reason)
	assert.Len(t, rec.byTopic(events.TopicStockAlert), 1)

	_, err = svc.UpdateItem(context.Background(), other.ID, itemRequest("Soap", "OIL", 1, 0), cashier)
	assert.ErrorIs(t, err, ErrDuplicateSKU)

	_, err = svc.UpdateItem(context.Background(), uuid.New(), itemRequest("Ghost", "GHOST", 1, 0), cashier)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestInventoryServiceDelete(t *testing.T) {
	db := setupTestDB(t)
	svc := NewInventoryService(repository.NewInventoryRepo(db), nil, nil)

	item, err := svc.CreateItem(context.Background(), itemRequest("Tea", "TEA", 3, 1), cashier)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteItem(context.Background(), item.ID, cashier))
	_, err = svc.GetItem(context.Background(), item.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.ErrorIs(t, svc.DeleteItem(context.Background(), item.ID, cashier), ErrItemNotFound)
}

func TestInventoryServiceListAlertsOrdersBySeverity(t *testing.T) {
	db := setupTestDB(t)
	svc := NewInventoryService(repository.NewInventoryRepo(db), nil, nil)

	for _, r := range []InventoryItemRequest{
		itemRequest("Medium", "M", 4, 4),
		itemRequest("Fine", "F", 9, 4),
		itemRequest("Critical", "C", 0, 4),
		itemRequest("High", "H", 2, 4),
	} {
		_, err := svc.CreateItem(context.Background(), r, cashier)
		require.NoError(t, err)
	}

	alerts, err := svc.ListAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	assert.Equal(t, "Critical", alerts[0].Name)
	assert.Equal(t, model.AlertHigh, alerts[1].AlertLevel)
	assert.Equal(t, model.AlertMedium, alerts[2].AlertLevel)
}
