package promotion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricedesk/pricedesk/internal/permission"
	"github.com/pricedesk/pricedesk/internal/platform/db"
	"github.com/pricedesk/pricedesk/internal/shared"
)

// RepositoryPort defines persistence operations for promotion requests.
type RepositoryPort interface {
	Create(ctx context.Context, requesterID int64) (*Request, error)
	Get(ctx context.Context, id uuid.UUID) (*Request, error)
	ListPending(ctx context.Context) ([]Request, error)
	// Resolve moves a pending request to a terminal state and, on
	// approval, promotes the requester in the same transaction.
	Resolve(ctx context.Context, id uuid.UUID, resolverID int64, decision Decision) (*Request, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new pending request. The partial unique index on
// pending rows turns a duplicate into ErrDuplicateRequest.
func (r *Repository) Create(ctx context.Context, requesterID int64) (*Request, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO promotion_requests (id, requester_id, status, requested_at)
VALUES ($1, $2, $3, NOW())
RETURNING id, requester_id, status, requested_at, resolved_at, resolved_by`,
		uuid.New(), requesterID, StatusPending)
	req, err := scanRequest(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrDuplicateRequest
		}
		return nil, err
	}
	return req, nil
}

// Get fetches a request by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Request, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, requester_id, status, requested_at, resolved_at, resolved_by
FROM promotion_requests WHERE id=$1`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

// ListPending returns unresolved requests, oldest first.
func (r *Repository) ListPending(ctx context.Context) ([]Request, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, requester_id, status, requested_at, resolved_at, resolved_by
FROM promotion_requests WHERE status=$1 ORDER BY requested_at ASC`, StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var requests []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}

// Resolve applies the decision. The status transition and the role
// mutation commit or roll back together so the two never diverge.
func (r *Repository) Resolve(ctx context.Context, id uuid.UUID, resolverID int64, decision Decision) (*Request, error) {
	var resolved *Request
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT id, requester_id, status, requested_at, resolved_at, resolved_by
FROM promotion_requests WHERE id=$1 FOR UPDATE`, id)
		req, err := scanRequest(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}
		if req.Resolved() {
			return shared.ErrAlreadyResolved
		}

		status := StatusRejected
		if decision == DecisionApprove {
			status = StatusApproved
		}
		now := time.Now().UTC()
		if _, err := tx.Exec(ctx, `UPDATE promotion_requests
SET status=$2, resolved_at=$3, resolved_by=$4 WHERE id=$1`, id, status, now, resolverID); err != nil {
			return err
		}

		if status == StatusApproved {
			tag, err := tx.Exec(ctx, `UPDATE identities SET role=$2, updated_at=NOW() WHERE id=$1`,
				req.RequesterID, permission.RoleAdmin)
			if err != nil {
				return fmt.Errorf("promotion: promote requester: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("promotion: promote requester: %w", shared.ErrNotFound)
			}
		}

		req.Status = status
		req.ResolvedAt = &now
		req.ResolvedBy = &resolverID
		resolved = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

func scanRequest(row pgx.Row) (*Request, error) {
	var req Request
	var status string
	var resolvedAt pgtype.Timestamptz
	var resolvedBy pgtype.Int8
	if err := row.Scan(&req.ID, &req.RequesterID, &status, &req.RequestedAt, &resolvedAt, &resolvedBy); err != nil {
		return nil, err
	}
	req.Status = Status(status)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		req.ResolvedAt = &t
	}
	if resolvedBy.Valid {
		v := resolvedBy.Int64
		req.ResolvedBy = &v
	}
	return &req, nil
}

var _ RepositoryPort = (*Repository)(nil)
