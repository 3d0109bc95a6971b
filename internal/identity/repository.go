package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricedesk/pricedesk/internal/permission"
	"github.com/pricedesk/pricedesk/internal/shared"
)

// ErrEmailTaken indicates the email is already registered.
var ErrEmailTaken = errors.New("identity: email already registered")

// RepositoryPort defines persistence operations for identities.
type RepositoryPort interface {
	Create(ctx context.Context, email, passwordHash string) (*Identity, error)
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	Get(ctx context.Context, id int64) (*Identity, error)

	// CountProfiles counts identities whose role has been assigned.
	CountProfiles(ctx context.Context) (int, error)
	// ClaimFirstAdmin promotes the identity to admin only when no profile
	// exists yet. The count check and the role write are one statement, so
	// two racing first registrations yield exactly one claim.
	ClaimFirstAdmin(ctx context.Context, id int64) (bool, error)
	// SetRoleIfUnset assigns the role only when none is set yet.
	SetRoleIfUnset(ctx context.Context, id int64, role string) (bool, error)
	// SetRole assigns the role unconditionally.
	SetRole(ctx context.Context, id int64, role string) error

	SetOverride(ctx context.Context, identityID int64, action string, allowed bool) (previous *bool, err error)
	Profile(ctx context.Context, identityID int64) (permission.Profile, error)
	IsAdmin(ctx context.Context, identityID int64) (bool, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new identity with no profile yet.
func (r *Repository) Create(ctx context.Context, email, passwordHash string) (*Identity, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO identities (email, password_hash, created_at, updated_at)
VALUES ($1, $2, NOW(), NOW())
RETURNING id, email, password_hash, role, created_at, updated_at`, email, passwordHash)
	ident, err := scanIdentity(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return ident, nil
}

// FindByEmail fetches an identity by email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, email, password_hash, role, created_at, updated_at
FROM identities WHERE email=$1`, email)
	ident, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return ident, nil
}

// Get fetches an identity by ID.
func (r *Repository) Get(ctx context.Context, id int64) (*Identity, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, email, password_hash, role, created_at, updated_at
FROM identities WHERE id=$1`, id)
	ident, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return ident, nil
}

// CountProfiles counts identities with an assigned role.
func (r *Repository) CountProfiles(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM identities WHERE role IS NOT NULL`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ClaimFirstAdmin performs the atomic first-admin claim.
func (r *Repository) ClaimFirstAdmin(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE identities SET role=$2, updated_at=NOW()
WHERE id=$1 AND role IS NULL
  AND NOT EXISTS (SELECT 1 FROM identities WHERE role IS NOT NULL)`, id, permission.RoleAdmin)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetRoleIfUnset assigns the role only when the identity has no profile yet.
func (r *Repository) SetRoleIfUnset(ctx context.Context, id int64, role string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE identities SET role=$2, updated_at=NOW()
WHERE id=$1 AND role IS NULL`, id, role)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetRole assigns the role unconditionally.
func (r *Repository) SetRole(ctx context.Context, id int64, role string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE identities SET role=$2, updated_at=NOW() WHERE id=$1`, id, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetOverride upserts a per-identity override and returns the prior value,
// nil when no override existed.
func (r *Repository) SetOverride(ctx context.Context, identityID int64, action string, allowed bool) (*bool, error) {
	var previous *bool
	var prior bool
	err := r.pool.QueryRow(ctx, `SELECT allowed FROM permission_overrides
WHERE identity_id=$1 AND action=$2`, identityID, action).Scan(&prior)
	switch {
	case err == nil:
		previous = &prior
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, err
	}

	_, err = r.pool.Exec(ctx, `INSERT INTO permission_overrides (identity_id, action, allowed, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (identity_id, action) DO UPDATE SET allowed = EXCLUDED.allowed, updated_at = NOW()`, identityID, action, allowed)
	if err != nil {
		return nil, err
	}
	return previous, nil
}

// Profile loads the current role and overrides for the permission engine.
func (r *Repository) Profile(ctx context.Context, identityID int64) (permission.Profile, error) {
	var role pgtype.Text
	err := r.pool.QueryRow(ctx, `SELECT role FROM identities WHERE id=$1`, identityID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return permission.Profile{}, shared.ErrNotFound
		}
		return permission.Profile{}, err
	}

	prof := permission.Profile{ID: identityID, Role: permission.RoleUser}
	if role.Valid && role.String != "" {
		prof.Role = role.String
	}

	rows, err := r.pool.Query(ctx, `SELECT action, allowed FROM permission_overrides
WHERE identity_id=$1`, identityID)
	if err != nil {
		return permission.Profile{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var action string
		var allowed bool
		if err := rows.Scan(&action, &allowed); err != nil {
			return permission.Profile{}, err
		}
		if prof.Overrides == nil {
			prof.Overrides = make(map[string]bool)
		}
		prof.Overrides[action] = allowed
	}
	if err := rows.Err(); err != nil {
		return permission.Profile{}, err
	}
	return prof, nil
}

// IsAdmin reports whether the identity currently holds the admin role.
func (r *Repository) IsAdmin(ctx context.Context, identityID int64) (bool, error) {
	prof, err := r.Profile(ctx, identityID)
	if err != nil {
		return false, err
	}
	return prof.Role == permission.RoleAdmin, nil
}

func scanIdentity(row pgx.Row) (*Identity, error) {
	var ident Identity
	var role pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&ident.ID, &ident.Email, &ident.PasswordHash, &role, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if role.Valid {
		ident.Role = role.String
	}
	ident.CreatedAt = createdAt.Time
	ident.UpdatedAt = updatedAt.Time
	return &ident, nil
}

var _ RepositoryPort = (*Repository)(nil)
var _ permission.ProfileSource = (*Repository)(nil)
var _ permission.OverrideWriter = (*Repository)(nil)
