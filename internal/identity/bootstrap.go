package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pricedesk/pricedesk/internal/permission"
)

// GrantSeeder writes the default role grants claimed during bootstrap.
type GrantSeeder interface {
	UpsertGrant(ctx context.Context, role, action string, allowed bool) error
}

// BootstrapRecorder appends the audit entry for a successful claim.
type BootstrapRecorder interface {
	RecordAdminBootstrapped(ctx context.Context, identityID int64, email string) error
}

// Bootstrap assigns the first registered identity administrator rights
// exactly once and seeds the default-deny grant baseline.
type Bootstrap struct {
	repo   RepositoryPort
	grants GrantSeeder
	audit  BootstrapRecorder
	logger *slog.Logger
}

// NewBootstrap constructs a Bootstrap.
func NewBootstrap(repo RepositoryPort, grants GrantSeeder, audit BootstrapRecorder, logger *slog.Logger) *Bootstrap {
	return &Bootstrap{repo: repo, grants: grants, audit: audit, logger: logger}
}

// FirstUser runs once after an identity first establishes a session. An
// identity that already has a role is left untouched. The admin claim is a
// single conditional update against the store, so two near-simultaneous
// first sessions end with exactly one admin.
func (b *Bootstrap) FirstUser(ctx context.Context, identityID int64) error {
	ident, err := b.repo.Get(ctx, identityID)
	if err != nil {
		return fmt.Errorf("identity: bootstrap load: %w", err)
	}
	if ident.HasProfile() {
		return nil
	}

	claimed, err := b.repo.ClaimFirstAdmin(ctx, identityID)
	if err != nil {
		return fmt.Errorf("identity: bootstrap claim: %w", err)
	}
	if !claimed {
		// Someone else is (or became) the first admin; this identity
		// falls to the default role.
		if _, err := b.repo.SetRoleIfUnset(ctx, identityID, permission.RoleUser); err != nil {
			return fmt.Errorf("identity: bootstrap default role: %w", err)
		}
		return nil
	}

	if err := b.seedGrants(ctx); err != nil {
		return err
	}

	if b.audit != nil {
		if err := b.audit.RecordAdminBootstrapped(ctx, identityID, ident.Email); err != nil {
			b.logger.ErrorContext(ctx, "record bootstrap audit entry",
				slog.Int64("identity_id", identityID), slog.Any("error", err))
		}
	}
	b.logger.InfoContext(ctx, "bootstrapped initial administrator",
		slog.Int64("identity_id", identityID), slog.String("email", ident.Email))
	return nil
}

// seedGrants upserts the default policy rows: every mutation action is
// allowed for admins and denied for users. Upserts keep re-seeding
// idempotent.
func (b *Bootstrap) seedGrants(ctx context.Context) error {
	for _, action := range permission.MutationActions() {
		if err := b.grants.UpsertGrant(ctx, permission.RoleAdmin, action, true); err != nil {
			return fmt.Errorf("identity: seed grant (%s, %s): %w", permission.RoleAdmin, action, err)
		}
		if err := b.grants.UpsertGrant(ctx, permission.RoleUser, action, false); err != nil {
			return fmt.Errorf("identity: seed grant (%s, %s): %w", permission.RoleUser, action, err)
		}
	}
	return nil
}
