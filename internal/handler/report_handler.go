package handler

import (
	"context"
	"time"

	"go-pos-inventory/internal/model"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// DailyReportFinder looks up an archived end-of-day report. A missing report
// is (nil, nil).
type DailyReportFinder interface {
	FindDailyReport(ctx context.Context, date string) (*model.DailyReport, error)
}

type ReportHandler struct {
	reports DailyReportFinder
	logger  *zap.Logger
}

func NewReportHandler(reports DailyReportFinder, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{reports: reports, logger: logger}
}

// GetDailyReport returns the report the scheduler archived for a day.
// GET /api/v1/reports/daily/:date
func (h *ReportHandler) GetDailyReport(c *fiber.Ctx) error {
	date := c.Params("date")
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "date must be YYYY-MM-DD"})
	}

	report, err := h.reports.FindDailyReport(c.UserContext(), date)
	if err != nil {
		h.logger.Error("load daily report", zap.String("date", date), zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "report archive unavailable, please retry"})
	}
	if report == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no report archived for " + date})
	}
	return c.JSON(report)
}
