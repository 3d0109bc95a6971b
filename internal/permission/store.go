package permission

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricedesk/pricedesk/internal/shared"
)

// StorePort defines persistence operations for role grants.
type StorePort interface {
	GetGrant(ctx context.Context, role, action string) (Grant, error)
	ListGrants(ctx context.Context) ([]Grant, error)
	UpsertGrant(ctx context.Context, role, action string, allowed bool) error
}

// Store provides PostgreSQL backed persistence for role grants.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// GetGrant fetches the grant for a role+action pair.
func (s *Store) GetGrant(ctx context.Context, role, action string) (Grant, error) {
	var g Grant
	err := s.pool.QueryRow(ctx, `SELECT role, action, allowed, updated_at
FROM role_grants WHERE role=$1 AND action=$2`, role, action).Scan(&g.Role, &g.Action, &g.Allowed, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Grant{}, shared.ErrNotFound
		}
		return Grant{}, err
	}
	return g, nil
}

// ListGrants returns all grants ordered by role then action.
func (s *Store) ListGrants(ctx context.Context) ([]Grant, error) {
	rows, err := s.pool.Query(ctx, `SELECT role, action, allowed, updated_at
FROM role_grants ORDER BY role, action`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.Role, &g.Action, &g.Allowed, &g.UpdatedAt); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}

// UpsertGrant inserts or updates the grant for a role+action pair.
func (s *Store) UpsertGrant(ctx context.Context, role, action string, allowed bool) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO role_grants (role, action, allowed, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (role, action) DO UPDATE SET allowed = EXCLUDED.allowed, updated_at = NOW()`, role, action, allowed)
	return err
}

var _ StorePort = (*Store)(nil)
