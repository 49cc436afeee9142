package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
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

// SaleRequest is a checkout (or a correction of one).
type SaleRequest struct {
	Lines           []model.CartLine    `json:"lines"`
	Customer        model.Customer      `json:"customer"`
	PaymentMethod   model.PaymentMethod `json:"payment_method"`
	DiscountPercent decimal.Decimal     `json:"discount_percent"`
	// TaxPercent falls back to the configured default when nil.
	TaxPercent *decimal.Decimal `json:"tax_percent,omitempty"`
}

// SaleResult is returned on a successful commit.
type SaleResult struct {
	SaleID    uuid.UUID        `json:"sale_id"`
	ReceiptNo string           `json:"receipt_no"`
	Totals    pricing.Totals   `json:"totals"`
	Lines     []model.SaleLine `json:"lines"`
	CreatedAt time.Time        `json:"created_at"`
}

type SaleService interface {
	ProcessSale(ctx context.Context, req SaleRequest, actor events.Actor) (*SaleResult, error)
	EditSale(ctx context.Context, id uuid.UUID, req SaleRequest, actor events.Actor) (*SaleResult, error)
	GetSale(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	ListSales(ctx context.Context, from, to time.Time, limit, offset int) ([]model.Sale, int64, error)
	// ScanSales walks every sale created in [from, to), oldest first, handing
	// fn one page at a time. Sales committed during the walk never shift a
	// page already handed out.
	ScanSales(ctx context.Context, from, to time.Time, pageSize int, fn func(page []model.Sale) error) error
}

// SaleOptions tunes retries and commit deadlines.
type SaleOptions struct {
	MaxAttempts       int
	RetryDelay        time.Duration
	CommitTimeout     time.Duration
	DefaultTaxPercent decimal.Decimal
}

type saleService struct {
	store    repository.SaleStore
	sales    repository.SaleRepository
	receipts ReceiptNumberer
	events   events.Publisher
	opts     SaleOptions
	logger   *zap.Logger
}

func NewSaleService(store repository.SaleStore, sales repository.SaleRepository, receipts ReceiptNumberer,
	pub events.Publisher, opts SaleOptions, logger *zap.Logger) SaleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pub == nil {
		pub = events.Nop{}
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 20 * time.Millisecond
	}
	if opts.CommitTimeout <= 0 {
		opts.CommitTimeout = 10 * time.Second
	}
	return &saleService{
		store:    store,
		sales:    sales,
		receipts: receipts,
		events:   pub,
		opts:     opts,
		logger:   logger,
	}
}

// stockChange records one inventory write made by a committed transaction.
type stockChange struct {
	item        model.InventoryItem
	oldQuantity int
	newQuantity int
}

// itemDemand is the total quantity requested for one item, in first-seen order.
type itemDemand struct {
	itemID    uuid.UUID
	lineIndex int
	quantity  int
}

// prepared is a validated and priced request.
type prepared struct {
	req     SaleRequest
	totals  pricing.Totals
	demands []itemDemand
}

func (s *saleService) ProcessSale(ctx context.Context, req SaleRequest, actor events.Actor) (*SaleResult, error) {
	p, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	receiptNo := s.receipts.Next()
	log := s.logger.With(zap.String("receipt_no", receiptNo), zap.String("cashier", actor.ID))

	var sale *model.Sale
	var changes []stockChange
	err = s.withRetry(ctx, log, func(ctx context.Context) error {
		sale, changes, err = s.commitSale(ctx, p, receiptNo, actor)
		return err
	})
	if err != nil {
		s.logFailure(log, "sale rejected", err)
		return nil, err
	}

	log.Info("sale committed",
		zap.String("sale_id", sale.ID.String()),
		zap.String("total", sale.Total.StringFixed(2)),
		zap.Int("lines", len(sale.Lines)))

	s.events.Publish(events.TopicSaleCommitted, events.SaleEvent{
		SaleID:    sale.ID,
		ReceiptNo: sale.ReceiptNo,
		Total:     sale.Total,
		ItemCount: len(p.demands),
		Actor:     actor,
		At:        sale.CreatedAt,
	})
	s.publishStockChanges(changes, "sale", actor)

	return &SaleResult{
		SaleID:    sale.ID,
		ReceiptNo: sale.ReceiptNo,
		Totals:    p.totals,
		Lines:     sale.Lines,
		CreatedAt: sale.CreatedAt,
	}, nil
}

// commitSale runs one attempt of the checkout transaction: snapshot reads of
// every item, the stock check, then the sale insert and conditional
// decrements.
func (s *saleService) commitSale(ctx context.Context, p *prepared, receiptNo string, actor events.Actor) (*model.Sale, []stockChange, error) {
	var sale *model.Sale
	var changes []stockChange

	err := s.store.RunInTransaction(ctx, func(tx repository.SaleTx) error {
		items, err := s.readItems(tx, p)
		if err != nil {
			return err
		}

		changes = changes[:0]
		for _, d := range p.demands {
			item := items[d.itemID]
			if item.Quantity < d.quantity {
				return &InsufficientStockError{
					ItemID:    item.ID,
					ItemName:  item.Name,
					Available: item.Quantity,
					Requested: d.quantity,
				}
			}
		}

		sale = buildSale(p, items)
		sale.ReceiptNo = receiptNo
		sale.CreatedBy = actor.ID
		sale.UpdatedBy = actor.ID
		sale.CashierID = parseActorID(actor)
		if err := tx.CreateSale(sale); err != nil {
			return err
		}

		for _, d := range p.demands {
			item := items[d.itemID]
			newQty := item.Quantity - d.quantity
			if err := tx.SetItemQuantity(item.ID, item.Quantity, newQty, actor.ID); err != nil {
				return err
			}
			changes = append(changes, stockChange{item: *item, oldQuantity: item.Quantity, newQuantity: newQty})
		}
		return nil
	})
	if err != nil {
		return nil, nil, s.translate(err)
	}
	return sale, changes, nil
}

func (s *saleService) readItems(tx repository.SaleTx, p *prepared) (map[uuid.UUID]*model.InventoryItem, error) {
	ids := make([]uuid.UUID, 0, len(p.demands))
	for _, d := range p.demands {
		ids = append(ids, d.itemID)
	}
	items, err := lockItems(tx, ids)
	if err != nil {
		return nil, err
	}
	for _, d := range p.demands {
		if _, ok := items[d.itemID]; !ok {
			verr := newValidationError()
			verr.Add(fmt.Sprintf("lines[%d].item_id", d.lineIndex), "unknown item")
			return nil, verr
		}
	}
	return items, nil
}

// lockItems reads every id inside tx in ascending id order, so two carts
// holding the same items always take their row locks in the same sequence.
// Missing items are left out of the map.
func lockItems(tx repository.SaleTx, ids []uuid.UUID) (map[uuid.UUID]*model.InventoryItem, error) {
	sorted := append([]uuid.UUID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})
	items := make(map[uuid.UUID]*model.InventoryItem, len(sorted))
	for _, id := range sorted {
		if _, seen := items[id]; seen {
			continue
		}
		item, err := tx.FindItem(id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		items[id] = item
	}
	return items, nil
}

func (s *saleService) EditSale(ctx context.Context, id uuid.UUID, req SaleRequest, actor events.Actor) (*SaleResult, error) {
	p, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("sale_id", id.String()), zap.String("editor", actor.ID))

	var sale *model.Sale
	var changes []stockChange
	err = s.withRetry(ctx, log, func(ctx context.Context) error {
		sale, changes, err = s.commitEdit(ctx, id, p, actor)
		return err
	})
	if err != nil {
		s.logFailure(log, "sale edit rejected", err)
		return nil, err
	}

	log.Info("sale edited", zap.String("total", sale.Total.StringFixed(2)), zap.Int("stock_changes", len(changes)))

	s.events.Publish(events.TopicSaleEdited, events.SaleEvent{
		SaleID:    sale.ID,
		ReceiptNo: sale.ReceiptNo,
		Total:     sale.Total,
		ItemCount: len(p.demands),
		Actor:     actor,
		At:        time.Now(),
	})
	s.publishStockChanges(changes, "sale_edit", actor)

	return &SaleResult{
		SaleID:    sale.ID,
		ReceiptNo: sale.ReceiptNo,
		Totals:    p.totals,
		Lines:     sale.Lines,
		CreatedAt: sale.CreatedAt,
	}, nil
}

// commitEdit rewrites a sale and moves inventory by the per-item difference
// between the stored lines and the new ones.
func (s *saleService) commitEdit(ctx context.Context, id uuid.UUID, p *prepared, actor events.Actor) (*model.Sale, []stockChange, error) {
	var sale *model.Sale
	var changes []stockChange

	err := s.store.RunInTransaction(ctx, func(tx repository.SaleTx) error {
		existing, err := tx.FindSale(id)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSaleNotFound
		}
		if err != nil {
			return err
		}

		before := existing.ItemQuantities()
		after := make(map[uuid.UUID]int, len(p.demands))
		for _, d := range p.demands {
			after[d.itemID] = d.quantity
		}

		ids := make([]uuid.UUID, 0, len(p.demands)+len(existing.Lines))
		for _, d := range p.demands {
			ids = append(ids, d.itemID)
		}
		for _, l := range existing.Lines {
			ids = append(ids, l.ItemID)
		}
		locked, err := lockItems(tx, ids)
		if err != nil {
			return err
		}

		items := make(map[uuid.UUID]*model.InventoryItem, len(p.demands))
		changes = changes[:0]

		// items still (or newly) on the sale, in cart order
		for _, d := range p.demands {
			item, ok := locked[d.itemID]
			if !ok {
				if before[d.itemID] >= d.quantity {
					// deleted since the sale; keep the snapshot, nothing to take from stock
					items[d.itemID] = snapshotItem(existing, d.itemID)
					continue
				}
				verr := newValidationError()
				verr.Add(fmt.Sprintf("lines[%d].item_id", d.lineIndex), "unknown item")
				return verr
			}
			items[d.itemID] = item

			delta := d.quantity - before[d.itemID]
			if delta == 0 {
				continue
			}
			if delta > 0 && item.Quantity < delta {
				return &InsufficientStockError{ItemID: item.ID, ItemName: item.Name, Available: item.Quantity, Requested: delta}
			}
			newQty := item.Quantity - delta
			if err := tx.SetItemQuantity(item.ID, item.Quantity, newQty, actor.ID); err != nil {
				return err
			}
			changes = append(changes, stockChange{item: *item, oldQuantity: item.Quantity, newQuantity: newQty})
		}

		// items removed from the sale go back to stock
		for _, l := range existing.Lines {
			if _, kept := after[l.ItemID]; kept {
				continue
			}
			if _, done := items[l.ItemID]; done {
				continue
			}
			item, ok := locked[l.ItemID]
			if !ok {
				items[l.ItemID] = nil
				continue
			}
			items[l.ItemID] = item
			newQty := item.Quantity + before[l.ItemID]
			if err := tx.SetItemQuantity(item.ID, item.Quantity, newQty, actor.ID); err != nil {
				return err
			}
			changes = append(changes, stockChange{item: *item, oldQuantity: item.Quantity, newQuantity: newQty})
		}

		rebuilt := buildSale(p, items)
		rebuilt.BaseModel = existing.BaseModel
		rebuilt.ReceiptNo = existing.ReceiptNo
		rebuilt.CashierID = existing.CashierID
		rebuilt.UpdatedBy = actor.ID
		if err := tx.ReplaceSale(rebuilt); err != nil {
			return err
		}
		sale = rebuilt
		return nil
	})
	if err != nil {
		return nil, nil, s.translate(err)
	}
	return sale, changes, nil
}

func (s *saleService) GetSale(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	sale, err := s.sales.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		return nil, s.translate(err)
	}
	return sale, nil
}

func (s *saleService) ListSales(ctx context.Context, from, to time.Time, limit, offset int) ([]model.Sale, int64, error) {
	total, err := s.sales.CountInRange(ctx, from, to)
	if err != nil {
		return nil, 0, s.translate(err)
	}
	sales, err := s.sales.FindInRange(ctx, from, to, limit, offset)
	if err != nil {
		return nil, 0, s.translate(err)
	}
	return sales, total, nil
}

func (s *saleService) ScanSales(ctx context.Context, from, to time.Time, pageSize int, fn func(page []model.Sale) error) error {
	if pageSize <= 0 {
		pageSize = 500
	}
	var after *repository.SaleCursor
	for {
		page, err := s.sales.FindPage(ctx, from, to, after, pageSize)
		if err != nil {
			return s.translate(err)
		}
		if len(page) > 0 {
			if err := fn(page); err != nil {
				return err
			}
		}
		if len(page) < pageSize {
			return nil
		}
		last := page[len(page)-1]
		after = &repository.SaleCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
}

// prepare validates the request and prices it without touching the store.
func (s *saleService) prepare(req SaleRequest) (*prepared, error) {
	verr := newValidationError()

	if len(req.Lines) == 0 {
		verr.Add("lines", "cart is empty")
		return nil, verr
	}
	if !req.PaymentMethod.Valid() {
		verr.Add("payment_method", "must be cash or online")
	}
	if errs := validator.ValidateStruct(&req.Customer); len(errs) > 0 {
		verr.Add("customer.email", "invalid email")
	}

	tax := s.opts.DefaultTaxPercent
	if req.TaxPercent != nil {
		tax = *req.TaxPercent
	}
	if err := pricing.CheckPercent(req.DiscountPercent); err != nil {
		verr.Add("discount_percent", err.Error())
	}
	if err := pricing.CheckPercent(tax); err != nil {
		verr.Add("tax_percent", err.Error())
	}

	var demands []itemDemand
	index := make(map[uuid.UUID]int)
	lines := make([]pricing.Line, 0, len(req.Lines))
	for i, l := range req.Lines {
		for _, fe := range validator.ValidateStruct(&l) {
			switch fe.Tag {
			case "uuid_required":
				verr.Add(fmt.Sprintf("lines[%d].item_id", i), "required")
			case "gte":
				verr.Add(fmt.Sprintf("lines[%d].quantity", i), "must be at least 1")
			}
		}
		if err := pricing.CheckPrice(l.UnitPrice); err != nil {
			verr.Add(fmt.Sprintf("lines[%d].unit_price", i), err.Error())
		}
		if l.Quantity < 1 || l.ItemID == uuid.Nil {
			continue
		}
		lines = append(lines, pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity})
		if j, ok := index[l.ItemID]; ok {
			demands[j].quantity += l.Quantity
			continue
		}
		index[l.ItemID] = len(demands)
		demands = append(demands, itemDemand{itemID: l.ItemID, lineIndex: i, quantity: l.Quantity})
	}

	if !verr.empty() {
		return nil, verr
	}

	totals, err := pricing.Compute(lines, req.DiscountPercent, tax)
	if err != nil {
		verr.Add("lines", err.Error())
		return nil, verr
	}
	req.TaxPercent = &tax
	return &prepared{req: req, totals: totals, demands: demands}, nil
}

// buildSale snapshots the cart lines with item names taken from the
// transaction's reads.
func buildSale(p *prepared, items map[uuid.UUID]*model.InventoryItem) *model.Sale {
	lines := make([]model.SaleLine, 0, len(p.req.Lines))
	for _, l := range p.req.Lines {
		name := ""
		if item := items[l.ItemID]; item != nil {
			name = item.Name
		}
		lines = append(lines, model.SaleLine{
			ItemID:    l.ItemID,
			Name:      name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			LineTotal: pricing.Round(pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity}.Total()),
		})
	}
	return &model.Sale{
		Customer:        p.req.Customer,
		PaymentMethod:   p.req.PaymentMethod,
		Lines:           lines,
		Subtotal:        p.totals.Subtotal,
		DiscountPercent: p.totals.DiscountPercent,
		DiscountAmount:  p.totals.DiscountAmount,
		TaxPercent:      p.totals.TaxPercent,
		TaxAmount:       p.totals.TaxAmount,
		Total:           p.totals.Total,
	}
}

func snapshotItem(sale *model.Sale, id uuid.UUID) *model.InventoryItem {
	for _, l := range sale.Lines {
		if l.ItemID == id {
			return &model.InventoryItem{BaseModel: model.BaseModel{ID: id}, Name: l.Name}
		}
	}
	return nil
}

// withRetry reruns attempt while it fails with a store conflict, up to
// MaxAttempts. The commit is detached from the caller's cancellation and
// bounded by CommitTimeout instead.
func (s *saleService) withRetry(ctx context.Context, log *zap.Logger, attempt func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.CommitTimeout)
	defer cancel()

	for n := 1; ; n++ {
		err := attempt(ctx)
		if !errors.Is(err, ErrTransactionConflict) {
			return err
		}
		if n >= s.opts.MaxAttempts {
			return err
		}
		log.Warn("transaction conflict, retrying", zap.Int("attempt", n), zap.Int("max_attempts", s.opts.MaxAttempts))

		timer := time.NewTimer(time.Duration(n) * s.opts.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, ctx.Err())
		case <-timer.C:
		}
	}
}

// translate maps store errors onto the service error surface. Business and
// validation errors pass through unchanged.
func (s *saleService) translate(err error) error {
	var verr *ValidationError
	var stock *InsufficientStockError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &verr), errors.As(err, &stock),
		errors.Is(err, ErrSaleNotFound), errors.Is(err, model.ErrMalformedItem):
		return err
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %v", ErrTransactionConflict, err)
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func (s *saleService) logFailure(log *zap.Logger, msg string, err error) {
	var verr *ValidationError
	var stock *InsufficientStockError
	switch {
	case errors.As(err, &verr), errors.Is(err, ErrSaleNotFound):
		log.Debug(msg, zap.Error(err))
	case errors.As(err, &stock):
		log.Info(msg, zap.String("item", stock.ItemName), zap.Int("available", stock.Available), zap.Int("requested", stock.Requested))
	default:
		log.Error(msg, zap.Error(err))
	}
}

func (s *saleService) publishStockChanges(changes []stockChange, reason string, actor events.Actor) {
	now := time.Now()
	for _, c := range changes {
		oldLevel := model.ClassifyStock(c.oldQuantity, c.item.ReorderLevel)
		newLevel := model.ClassifyStock(c.newQuantity, c.item.ReorderLevel)
		s.events.Publish(events.TopicInventoryChanged, events.InventoryEvent{
			ItemID:      c.item.ID,
			SKU:         c.item.SKU,
			Name:        c.item.Name,
			OldQuantity: c.oldQuantity,
			NewQuantity: c.newQuantity,
			AlertLevel:  newLevel,
			Reason:      reason,
			Actor:       actor,
			At:          now,
		})
		if newLevel.Severity() > oldLevel.Severity() {
			s.events.Publish(events.TopicStockAlert, events.StockAlertEvent{
				ItemID:       c.item.ID,
				SKU:          c.item.SKU,
				Name:         c.item.Name,
				Quantity:     c.newQuantity,
				ReorderLevel: c.item.ReorderLevel,
				Level:        newLevel,
				At:           now,
			})
		}
	}
}

func parseActorID(actor events.Actor) *uuid.UUID {
	id, err := uuid.Parse(actor.ID)
	if err != nil {
		return nil
	}
	return &id
}
