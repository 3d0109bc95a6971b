package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pricedesk/pricedesk/internal/catalog"
	"github.com/pricedesk/pricedesk/internal/shared"
)

// GrantWriter restores role grants for permission_change reversals.
type GrantWriter interface {
	UpsertGrant(ctx context.Context, role, action string, allowed bool) error
}

// AdminChecker answers whether the actor holds the admin role right now.
type AdminChecker interface {
	IsAdmin(ctx context.Context, identityID int64) (bool, error)
}

// Reverter executes type-specific compensating operations for revertible
// audit entries.
type Reverter struct {
	entries RepositoryPort
	records *Service
	catalog catalog.Store
	grants  GrantWriter
	admins  AdminChecker
	logger  *slog.Logger
}

// NewReverter constructs a Reverter.
func NewReverter(entries RepositoryPort, records *Service, store catalog.Store, grants GrantWriter, admins AdminChecker, logger *slog.Logger) *Reverter {
	return &Reverter{
		entries: entries,
		records: records,
		catalog: store,
		grants:  grants,
		admins:  admins,
		logger:  logger,
	}
}

// Revert undoes the effect of a prior audited action. On success the
// original entry is flagged reverted and an action_reverted entry is
// appended for traceability. A failed compensation leaves the original
// entry untouched and the error reaches the caller as-is.
func (r *Reverter) Revert(ctx context.Context, entryID uuid.UUID, actorID int64) error {
	entry, err := r.entries.Get(ctx, entryID)
	if err != nil {
		return err
	}
	if !entry.Type.Revertible() {
		return shared.ErrNotRevertible
	}
	if entry.Reverted {
		return shared.ErrAlreadyReverted
	}

	isAdmin, err := r.admins.IsAdmin(ctx, actorID)
	if err != nil {
		// Ambiguous identity state never fails open.
		r.logger.ErrorContext(ctx, "revert admin check",
			slog.Int64("actor_id", actorID), slog.Any("error", err))
		return shared.ErrForbidden
	}
	if !isAdmin {
		return shared.ErrForbidden
	}

	if err := r.compensate(ctx, entry); err != nil {
		return err
	}

	flipped, err := r.entries.MarkReverted(ctx, entryID)
	if err != nil {
		return fmt.Errorf("%w: mark reverted: %v", shared.ErrStoreUnavailable, err)
	}
	if !flipped {
		return shared.ErrAlreadyReverted
	}

	if _, err := r.records.Record(ctx, actorID, &Reverted{
		OriginalID:   entry.ID,
		OriginalType: entry.Type,
	}); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "reverted audited action",
		slog.String("entry_id", entry.ID.String()),
		slog.String("action_type", string(entry.Type)),
		slog.Int64("actor_id", actorID),
	)
	return nil
}

// compensate dispatches on action type to the inverse operation.
func (r *Reverter) compensate(ctx context.Context, entry *Entry) error {
	switch payload := entry.Payload.(type) {
	case *ProductAdded:
		return r.catalog.DeleteProduct(ctx, payload.Code)

	case *ProductUpdated:
		return r.catalog.UpdateProduct(ctx, payload.Code, payload.PreviousValues)

	case *PriceChange:
		// Not a historical rollback: the latest price record is removed
		// and the old value, when known, re-enters dated to now. The
		// original effective date and any intervening rows stay lost.
		if err := r.catalog.DeleteLatestPrice(ctx, payload.Code); err != nil {
			return err
		}
		if payload.PreviousPrice == nil {
			return nil
		}
		return r.catalog.InsertPrice(ctx, payload.Code, *payload.PreviousPrice, time.Now().UTC())

	case *PermissionChange:
		return r.grants.UpsertGrant(ctx, payload.Role, payload.Action, payload.PreviousAllowed)

	default:
		return shared.ErrNotRevertible
	}
}
