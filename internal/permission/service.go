package permission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pricedesk/pricedesk/internal/shared"
)

// OverrideWriter persists per-identity permission overrides.
type OverrideWriter interface {
	SetOverride(ctx context.Context, identityID int64, action string, allowed bool) (previous *bool, err error)
}

// AuditRecorder appends audit entries for permission mutations.
type AuditRecorder interface {
	RecordPermissionChange(ctx context.Context, actorID int64, role, action string, previousAllowed, allowed bool) error
	RecordOverrideSet(ctx context.Context, actorID, identityID int64, action string, previous *bool, allowed bool) error
}

// Service handles administrative permission mutations. Every mutation is
// gated through the engine and leaves an audit entry.
type Service struct {
	engine    *Engine
	grants    StorePort
	overrides OverrideWriter
	audit     AuditRecorder
	logger    *slog.Logger
}

// NewService builds Service instance.
func NewService(engine *Engine, grants StorePort, overrides OverrideWriter, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{engine: engine, grants: grants, overrides: overrides, audit: audit, logger: logger}
}

// Grants lists all role grants. Restricted to user managers.
func (s *Service) Grants(ctx context.Context, actorID int64) ([]Grant, error) {
	if !s.engine.Can(ctx, actorID, ActionManageUsers) {
		return nil, shared.ErrForbidden
	}
	return s.grants.ListGrants(ctx)
}

// SetGrant updates the default policy for a role+action pair and records
// a revertible permission_change audit entry.
func (s *Service) SetGrant(ctx context.Context, actorID int64, role, action string, allowed bool) error {
	if !s.engine.Can(ctx, actorID, ActionManageUsers) {
		return shared.ErrForbidden
	}
	action = NormalizeAction(action)
	if action == "" {
		return errors.New("permission: action required")
	}
	if role != RoleAdmin && role != RoleUser {
		return fmt.Errorf("permission: unknown role %q", role)
	}

	previous := false
	if g, err := s.grants.GetGrant(ctx, role, action); err == nil {
		previous = g.Allowed
	} else if !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("permission: read grant: %w", err)
	}

	if err := s.grants.UpsertGrant(ctx, role, action, allowed); err != nil {
		return fmt.Errorf("permission: upsert grant: %w", err)
	}
	if err := s.audit.RecordPermissionChange(ctx, actorID, role, action, previous, allowed); err != nil {
		s.logger.ErrorContext(ctx, "record permission change",
			slog.String("role", role), slog.String("action", action), slog.Any("error", err))
	}
	return nil
}

// SetOverride sets a per-identity exception to role defaults. Overrides
// are sticky: a later role change does not clear them.
func (s *Service) SetOverride(ctx context.Context, actorID, identityID int64, action string, allowed bool) error {
	if !s.engine.Can(ctx, actorID, ActionManageUsers) {
		return shared.ErrForbidden
	}
	action = NormalizeAction(action)
	if action == "" {
		return errors.New("permission: action required")
	}

	previous, err := s.overrides.SetOverride(ctx, identityID, action, allowed)
	if err != nil {
		return fmt.Errorf("permission: set override: %w", err)
	}
	if err := s.audit.RecordOverrideSet(ctx, actorID, identityID, action, previous, allowed); err != nil {
		s.logger.ErrorContext(ctx, "record override set",
			slog.Int64("identity_id", identityID), slog.String("action", action), slog.Any("error", err))
	}
	return nil
}
