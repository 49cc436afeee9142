package handler

import (
	"strconv"
	"time"

	"go-pos-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	service service.DashboardService
	loc     *time.Location
	logger  *zap.Logger
}

func NewDashboardHandler(s service.DashboardService, loc *time.Location, logger *zap.Logger) *DashboardHandler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{service: s, loc: loc, logger: logger}
}

// GetSummary returns sales figures for the window plus the stock overview.
// GET /api/v1/dashboard/summary?range=7d&top=5
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	from, to, err := parseRange(c, h.loc, time.Now())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	top, _ := strconv.Atoi(c.Query("top", "5"))

	summary, err := h.service.Summary(c.UserContext(), from, to, top)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	stock, err := h.service.StockOverview(c.UserContext())
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"sales": summary, "stock": stock})
}

// GetDaily returns the revenue series for charts.
// GET /api/v1/dashboard/daily?range=1m
func (h *DashboardHandler) GetDaily(c *fiber.Ctx) error {
	from, to, err := parseRange(c, h.loc, time.Now())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	data, err := h.service.Daily(c.UserContext(), from, to)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"from": from, "to": to, "data": data})
}
