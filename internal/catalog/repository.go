package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricedesk/pricedesk/internal/shared"
)

// Columns a reversal is allowed to write back onto a product.
var updatableColumns = map[string]struct{}{
	"name":      {},
	"category":  {},
	"unit":      {},
	"is_active": {},
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// DeleteProduct removes the product identified by code.
func (r *Repository) DeleteProduct(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE code=$1`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateProduct writes the given fields back onto the product. Unknown
// field names are rejected rather than interpolated.
func (r *Repository) UpdateProduct(ctx context.Context, code string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	var sets []string
	var args []interface{}
	argPos := 1
	for column, value := range fields {
		if _, ok := updatableColumns[column]; !ok {
			return fmt.Errorf("catalog: column %q is not updatable", column)
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, code)

	query := fmt.Sprintf("UPDATE products SET %s WHERE code = $%d", strings.Join(sets, ", "), argPos)
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteLatestPrice removes the most recent price record for the product.
func (r *Repository) DeleteLatestPrice(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM price_history WHERE id = (
SELECT id FROM price_history WHERE product_code=$1
ORDER BY effective_at DESC, id DESC LIMIT 1)`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// InsertPrice appends a price record effective at the given time.
func (r *Repository) InsertPrice(ctx context.Context, code string, price float64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO price_history (product_code, price, effective_at)
VALUES ($1, $2, $3)`, code, price, at)
	return err
}

var _ Store = (*Repository)(nil)
