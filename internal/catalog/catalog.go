// Package catalog is the boundary to the product/price store. The
// administration screens own the catalog's CRUD; this subsystem only
// touches it through the compensation operations the reversal engine
// needs.
package catalog

import (
	"context"
	"time"
)

// Store defines the catalog operations consumed by reversal compensations.
type Store interface {
	DeleteProduct(ctx context.Context, code string) error
	UpdateProduct(ctx context.Context, code string, fields map[string]any) error
	DeleteLatestPrice(ctx context.Context, code string) error
	InsertPrice(ctx context.Context, code string, price float64, at time.Time) error
}
