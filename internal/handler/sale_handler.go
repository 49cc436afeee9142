package handler

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"go-pos-inventory/internal/middleware"
	"go-pos-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type SaleHandler struct {
	service service.SaleService
	loc     *time.Location
	logger  *zap.Logger
}

func NewSaleHandler(s service.SaleService, loc *time.Location, logger *zap.Logger) *SaleHandler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleHandler{service: s, loc: loc, logger: logger}
}

// Checkout commits a cart as a sale.
// POST /api/v1/sales
func (h *SaleHandler) Checkout(c *fiber.Ctx) error {
	var req service.SaleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	result, err := h.service.ProcessSale(c.UserContext(), req, middleware.Actor(c))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Sale completed", "data": result})
}

// EditSale corrects a committed sale.
// PUT /api/v1/sales/:id
func (h *SaleHandler) EditSale(c *fiber.Ctx) error {
	id, ok := parseIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid sale ID"})
	}
	var req service.SaleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	result, err := h.service.EditSale(c.UserContext(), id, req, middleware.Actor(c))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "Sale updated", "data": result})
}

// GET /api/v1/sales/:id
func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	id, ok := parseIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid sale ID"})
	}
	sale, err := h.service.GetSale(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(sale)
}

// GetSales lists sales in a window, newest first.
// GET /api/v1/sales?range=7d&limit=50&offset=0
func (h *SaleHandler) GetSales(c *fiber.Ctx) error {
	from, to, err := parseRange(c, h.loc, time.Now())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultPageSize)))
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	sales, total, err := h.service.ListSales(c.UserContext(), from, to, limit, offset)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"data":   sales,
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"from":   from,
		"to":     to,
	})
}

// ExportSales streams the sales of a window as CSV.
// GET /api/v1/sales/export?from=2024-01-01&to=2024-01-31
func (h *SaleHandler) ExportSales(c *fiber.Ctx) error {
	from, to, err := parseRange(c, h.loc, time.Now())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var buf bytes.Buffer
	rows, err := service.ExportSalesCSV(c.UserContext(), h.service, from, to, &buf)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	h.logger.Info("sales exported", zap.Int("rows", rows), zap.String("by", middleware.Actor(c).ID))
	filename := fmt.Sprintf("sales_%s_%s.csv", from.Format("20060102"), to.AddDate(0, 0, -1).Format("20060102"))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(buf.Bytes())
}
