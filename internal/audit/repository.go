package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricedesk/pricedesk/internal/shared"
)

// RepositoryPort defines persistence for the append-only audit log.
type RepositoryPort interface {
	Append(ctx context.Context, entry *Entry) error
	Get(ctx context.Context, id uuid.UUID) (*Entry, error)
	// MarkReverted flips the reverted flag, returning false when the
	// entry was already flagged (or does not exist).
	MarkReverted(ctx context.Context, id uuid.UUID) (bool, error)
	ListRecent(ctx context.Context, limit, offset int) ([]Entry, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts the entry. The write is a single row insert, so an
// abandoned call never leaves a half-written entry behind.
func (r *Repository) Append(ctx context.Context, entry *Entry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("audit: encode payload: %w", err)
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO audit_entries (id, action_type, actor_id, payload, created_at, revertible, reverted)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, string(entry.Type), entry.ActorID, payload, entry.CreatedAt, entry.Revertible, entry.Reverted)
	if err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}

// Get fetches an entry by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, action_type, actor_id, payload, created_at, revertible, reverted
FROM audit_entries WHERE id=$1`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

// MarkReverted conditionally flips the reverted flag.
func (r *Repository) MarkReverted(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE audit_entries SET reverted=TRUE
WHERE id=$1 AND reverted=FALSE`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListRecent returns entries by recency.
func (r *Repository) ListRecent(ctx context.Context, limit, offset int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, action_type, actor_id, payload, created_at, revertible, reverted
FROM audit_entries ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var entry Entry
	var actionType string
	var payload []byte
	var createdAt time.Time
	if err := row.Scan(&entry.ID, &actionType, &entry.ActorID, &payload, &createdAt, &entry.Revertible, &entry.Reverted); err != nil {
		return nil, err
	}
	entry.Type = ActionType(actionType)
	entry.CreatedAt = createdAt
	decoded, err := decodePayload(entry.Type, payload)
	if err != nil {
		return nil, err
	}
	entry.Payload = decoded
	return &entry, nil
}

var _ RepositoryPort = (*Repository)(nil)
