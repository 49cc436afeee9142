package repository

import (
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a record does not exist (or is soft deleted).
	ErrNotFound = errors.New("record not found")
	// ErrConflict means a concurrent writer changed a record read by the
	// transaction. The operation may be retried with fresh reads.
	ErrConflict = errors.New("concurrent modification")
	// ErrUnavailable covers backend failures unrelated to the data itself.
	ErrUnavailable = errors.New("store unavailable")
	// ErrDuplicate is returned on unique constraint violations.
	ErrDuplicate = errors.New("duplicate record")
)

// classify maps a driver or gorm error onto the package sentinels, keeping the
// original message for logs.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict),
		errors.Is(err, ErrUnavailable), errors.Is(err, ErrDuplicate):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isDuplicate(err):
		return errors.Wrap(ErrDuplicate, err.Error())
	case isConflict(err):
		return errors.Wrap(ErrConflict, err.Error())
	default:
		return errors.Wrap(ErrUnavailable, err.Error())
	}
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isDuplicate(err error) bool {
	return pgCode(err) == "23505" || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isConflict(err error) bool {
	switch pgCode(err) {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return true
	}
	// sqlite reports lock contention as busy/locked
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}
