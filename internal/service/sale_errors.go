package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrTransactionConflict is returned when concurrent checkouts kept
	// invalidating the transaction's reads for every allowed attempt.
	ErrTransactionConflict = errors.New("transaction conflict, please try again")
	// ErrStoreUnavailable wraps backend failures unrelated to business rules.
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrSaleNotFound     = errors.New("sale not found")
	ErrItemNotFound     = errors.New("inventory item not found")
	ErrDuplicateSKU     = errors.New("SKU already exists")
)

// ValidationError lists rejected input fields. It never reaches the store.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

func (e *ValidationError) Add(field, reason string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = reason
	}
}

func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// InsufficientStockError aborts a sale when an item cannot cover the
// requested quantity. Nothing is written when it is returned.
type InsufficientStockError struct {
	ItemID    uuid.UUID `json:"item_id"`
	ItemName  string    `json:"item_name"`
	Available int       `json:"available"`
	Requested int       `json:"requested"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: %d available, %d requested", e.ItemName, e.Available, e.Requested)
}
