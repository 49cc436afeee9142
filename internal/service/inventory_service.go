package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go-pos-inventory/internal/events"
	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/pricing"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InventoryItemRequest is the admin payload for creating or updating an item.
// Quantity is absolute stock, not a delta.
type InventoryItemRequest struct {
	Name         string          `json:"name" validate:"required,max=255"`
	SKU          string          `json:"sku" validate:"required,max=50"`
	Category     string          `json:"category" validate:"max=100"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	Quantity     int             `json:"quantity" validate:"gte=0"`
	ReorderLevel int             `json:"reorder_level" validate:"gte=0"`
}

type InventoryService interface {
	CreateItem(ctx context.Context, req InventoryItemRequest, actor events.Actor) (*model.InventoryItem, error)
	UpdateItem(ctx context.Context, id uuid.UUID, req InventoryItemRequest, actor events.Actor) (*model.InventoryItem, error)
	DeleteItem(ctx context.Context, id uuid.UUID, actor events.Actor) error
	GetItem(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error)
	ListItems(ctx context.Context, filter repository.InventoryFilter) ([]model.InventoryItem, error)
	// ListAlerts returns items needing restock, most urgent first.
	ListAlerts(ctx context.Context) ([]model.InventoryItemResponse, error)
}

type inventoryService struct {
	items  repository.InventoryRepository
	events events.Publisher
	logger *zap.Logger
}

func NewInventoryService(items repository.InventoryRepository, pub events.Publisher, logger *zap.Logger) InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &inventoryService{items: items, events: pub, logger: logger}
}

func (s *inventoryService) CreateItem(ctx context.Context, req InventoryItemRequest, actor events.Actor) (*model.InventoryItem, error) {
	if err := validateItemRequest(&req); err != nil {
		return nil, err
	}

	existing, err := s.items.FindBySKU(ctx, req.SKU)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if existing != nil {
		return nil, ErrDuplicateSKU
	}

	item := &model.InventoryItem{}
	applyItemRequest(item, req)
	item.CreatedBy = actor.ID
	item.UpdatedBy = actor.ID

	if err := s.items.Create(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateSKU
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.logger.Info("inventory item created",
		zap.String("item_id", item.ID.String()), zap.String("sku", item.SKU), zap.String("by", actor.ID))
	s.publishChange(item, 0, item.Quantity, "created", actor)
	return item, nil
}

func (s *inventoryService) UpdateItem(ctx context.Context, id uuid.UUID, req InventoryItemRequest, actor events.Actor) (*model.InventoryItem, error) {
	if err := validateItemRequest(&req); err != nil {
		return nil, err
	}

	if other, err := s.items.FindBySKU(ctx, req.SKU); err == nil && other.ID != id {
		return nil, ErrDuplicateSKU
	}

	oldQty := 0
	item, err := s.items.Modify(ctx, id, func(item *model.InventoryItem) error {
		oldQty = item.Quantity
		applyItemRequest(item, req)
		item.UpdatedBy = actor.ID
		return nil
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrItemNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return nil, ErrDuplicateSKU
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.logger.Info("inventory item updated",
		zap.String("item_id", item.ID.String()),
		zap.Int("old_quantity", oldQty),
		zap.Int("new_quantity", item.Quantity),
		zap.String("by", actor.ID))
	s.publishChange(item, oldQty, item.Quantity, "updated", actor)
	return item, nil
}

func (s *inventoryService) DeleteItem(ctx context.Context, id uuid.UUID, actor events.Actor) error {
	item, err := s.items.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrItemNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := s.items.Delete(ctx, id, actor.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.logger.Info("inventory item deleted", zap.String("item_id", id.String()), zap.String("by", actor.ID))
	s.events.Publish(events.TopicInventoryChanged, events.InventoryEvent{
		ItemID:      item.ID,
		SKU:         item.SKU,
		Name:        item.Name,
		OldQuantity: item.Quantity,
		NewQuantity: 0,
		AlertLevel:  item.AlertLevel(),
		Reason:      "deleted",
		Actor:       actor,
		At:          time.Now(),
	})
	return nil
}

func (s *inventoryService) GetItem(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	item, err := s.items.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return item, nil
}

func (s *inventoryService) ListItems(ctx context.Context, filter repository.InventoryFilter) ([]model.InventoryItem, error) {
	items, err := s.items.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return items, nil
}

func (s *inventoryService) ListAlerts(ctx context.Context) ([]model.InventoryItemResponse, error) {
	items, err := s.items.FindAtOrBelowReorder(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	out := make([]model.InventoryItemResponse, 0, len(items))
	for i := range items {
		r := items[i].ToResponse()
		if r.AlertLevel == model.AlertNone {
			continue
		}
		out = append(out, r)
	}
	// the repository already orders by quantity
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AlertLevel.Severity() > out[j].AlertLevel.Severity()
	})
	return out, nil
}

func (s *inventoryService) publishChange(item *model.InventoryItem, oldQty, newQty int, reason string, actor events.Actor) {
	now := time.Now()
	newLevel := model.ClassifyStock(newQty, item.ReorderLevel)
	s.events.Publish(events.TopicInventoryChanged, events.InventoryEvent{
		ItemID:      item.ID,
		SKU:         item.SKU,
		Name:        item.Name,
		OldQuantity: oldQty,
		NewQuantity: newQty,
		AlertLevel:  newLevel,
		Reason:      reason,
		Actor:       actor,
		At:          now,
	})
	if newLevel != model.AlertNone && (reason == "created" || newLevel.Severity() > model.ClassifyStock(oldQty, item.ReorderLevel).Severity()) {
		s.events.Publish(events.TopicStockAlert, events.StockAlertEvent{
			ItemID:       item.ID,
			SKU:          item.SKU,
			Name:         item.Name,
			Quantity:     newQty,
			ReorderLevel: item.ReorderLevel,
			Level:        newLevel,
			At:           now,
		})
	}
}

func validateItemRequest(req *InventoryItemRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.SKU = strings.TrimSpace(req.SKU)

	verr := newValidationError()
	for _, fe := range validator.ValidateStruct(req) {
		field := fe.FailedField
		if i := strings.LastIndex(field, "."); i >= 0 {
			field = field[i+1:]
		}
		verr.Add(jsonFieldName(field), fe.Tag)
	}
	if err := pricing.CheckPrice(req.UnitPrice); err != nil {
		verr.Add("unit_price", err.Error())
	}
	if err := pricing.CheckPrice(req.CostPrice); err != nil {
		verr.Add("cost_price", err.Error())
	}
	if verr.empty() {
		return nil
	}
	return verr
}

func applyItemRequest(item *model.InventoryItem, req InventoryItemRequest) {
	item.Name = req.Name
	item.SKU = req.SKU
	item.Category = req.Category
	item.UnitPrice = req.UnitPrice
	item.CostPrice = req.CostPrice
	item.Quantity = req.Quantity
	item.ReorderLevel = req.ReorderLevel
}

var itemFieldNames = map[string]string{
	"Name":         "name",
	"SKU":          "sku",
	"Category":     "category",
	"Quantity":     "quantity",
	"ReorderLevel": "reorder_level",
}

func jsonFieldName(field string) string {
	if n, ok := itemFieldNames[field]; ok {
		return n
	}
	return strings.ToLower(field)
}
