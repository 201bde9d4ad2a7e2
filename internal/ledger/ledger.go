// Package ledger stores per-SKU unit economics entered by the user.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/AngelCh415/amazon-ppc-etl/internal/models"
)

var (
	// ErrNotFound is returned when no entry exists for a SKU.
	ErrNotFound = errors.New("cost entry not found")

	// ErrInvalidInput is returned for an empty SKU or a negative or
	// non-finite amount.
	ErrInvalidInput = errors.New("invalid cost entry")
)

// Ledger holds at most one CostEntry per SKU. Entries are only removed by
// Delete or Replace; SKUs missing from the latest business report keep
// their entries.
type Ledger interface {
	All(ctx context.Context) ([]models.CostEntry, error)
	Get(ctx context.Context, sku string) (models.CostEntry, error)
	Upsert(ctx context.Context, e models.CostEntry) (models.CostEntry, error)
	Replace(ctx context.Context, entries []models.CostEntry) error
	Delete(ctx context.Context, sku string) error
	// EnsureSKUs adds zero-valued entries for SKUs not yet present and
	// returns how many were added.
	EnsureSKUs(ctx context.Context, skus []string) (int, error)
}

// Map loads the ledger keyed by SKU.
func Map(ctx context.Context, l Ledger) (map[string]models.CostEntry, error) {
	all, err := l.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.CostEntry, len(all))
	for _, e := range all {
		out[e.SKU] = e
	}
	return out, nil
}

// Validate trims the SKU and checks amounts.
func Validate(e models.CostEntry) (models.CostEntry, error) {
	e.SKU = strings.TrimSpace(e.SKU)
	if e.SKU == "" {
		return e, fmt.Errorf("%w: sku is required", ErrInvalidInput)
	}
	for name, v := range map[string]float64{"sale_price": e.SalePrice, "amazon_fees": e.AmazonFees, "cogs": e.COGS} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return e, fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidInput, name)
		}
	}
	return e, nil
}

var (
	_ Ledger = (*MemoryLedger)(nil)
	_ Ledger = (*SQLiteLedger)(nil)
)
