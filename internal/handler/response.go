package handler

import (
	"errors"
	"time"

	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// writeError maps service errors onto HTTP responses.
func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var verr *service.ValidationError
	var stock *service.InsufficientStockError

	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation failed", "fields": verr.Fields})
	case errors.As(err, &stock):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "insufficient stock", "detail": stock})
	case errors.Is(err, service.ErrTransactionConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": service.ErrTransactionConflict.Error()})
	case errors.Is(err, service.ErrDuplicateSKU):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrSaleNotFound), errors.Is(err, service.ErrItemNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrStoreUnavailable):
		log.Error("store unavailable", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "store unavailable, please retry"})
	case errors.Is(err, model.ErrMalformedItem):
		log.Error("malformed inventory record", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "inventory record is corrupted"})
	default:
		log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}
}

func parseIDParam(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// parseRange reads a reporting window from the query string: either explicit
// from/to bounds or a range shortcut such as 7d, 1m, 3m, 6m or 12m. Bounds are
// YYYY-MM-DD in loc (to inclusive) or RFC3339 instants (to exclusive). The
// window is [from, to).
func parseRange(c *fiber.Ctx, loc *time.Location, now time.Time) (time.Time, time.Time, error) {
	now = now.In(loc)
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	to := startOfToday.AddDate(0, 0, 1)

	if fromStr := c.Query("from"); fromStr != "" {
		from, _, err := parseBound(fromStr, loc)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be YYYY-MM-DD or RFC3339")
		}
		if toStr := c.Query("to"); toStr != "" {
			end, dateOnly, err := parseBound(toStr, loc)
			if err != nil {
				return time.Time{}, time.Time{}, errors.New("to must be YYYY-MM-DD or RFC3339")
			}
			to = end
			if dateOnly {
				to = end.AddDate(0, 0, 1)
			}
		}
		if !from.Before(to) {
			return time.Time{}, time.Time{}, errors.New("from must not be after to")
		}
		return from, to, nil
	}

	switch c.Query("range", "7d") {
	case "1d":
		return startOfToday, to, nil
	case "7d":
		return startOfToday.AddDate(0, 0, -6), to, nil
	case "1m":
		return startOfToday.AddDate(0, -1, 0), to, nil
	case "3m":
		return startOfToday.AddDate(0, -3, 0), to, nil
	case "6m":
		return startOfToday.AddDate(0, -6, 0), to, nil
	case "12m":
		return startOfToday.AddDate(0, -12, 0), to, nil
	default:
		return time.Time{}, time.Time{}, errors.New("range must be one of 1d, 7d, 1m, 3m, 6m, 12m")
	}
}

func parseBound(s string, loc *time.Location) (time.Time, bool, error) {
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.In(loc), false, nil
}
