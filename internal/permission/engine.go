package permission

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/pricedesk/pricedesk/internal/shared"
)

// ProfileSource loads the current role and overrides for an identity.
type ProfileSource interface {
	Profile(ctx context.Context, identityID int64) (Profile, error)
}

// Engine computes effective allow/deny decisions. It holds no decision
// state of its own: every call re-reads role, overrides and grants so a
// concurrent promotion or grant change is visible immediately.
type Engine struct {
	profiles ProfileSource
	grants   StorePort
	logger   *slog.Logger
}

// NewEngine constructs an Engine.
func NewEngine(profiles ProfileSource, grants StorePort, logger *slog.Logger) *Engine {
	return &Engine{profiles: profiles, grants: grants, logger: logger}
}

// Can reports whether the identity may perform the action. Precedence:
// admin role wins unconditionally, then a per-identity override, then the
// role grant. Anything unresolved, including a store failure, denies.
func (e *Engine) Can(ctx context.Context, identityID int64, action string) bool {
	action = NormalizeAction(action)
	if action == "" {
		return false
	}

	prof, err := e.profiles.Profile(ctx, identityID)
	if err != nil {
		e.log(ctx, "load profile", identityID, action, err)
		return false
	}
	if prof.Role == RoleAdmin {
		return true
	}
	if allowed, ok := prof.Overrides[action]; ok {
		return allowed
	}

	grant, err := e.grants.GetGrant(ctx, prof.Role, action)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			e.log(ctx, "load grant", identityID, action, err)
		}
		return false
	}
	return grant.Allowed
}

func (e *Engine) log(ctx context.Context, op string, identityID int64, action string, err error) {
	if e.logger == nil {
		return
	}
	e.logger.ErrorContext(ctx, "permission check denied on store error",
		slog.String("op", op),
		slog.Int64("identity_id", identityID),
		slog.String("action", action),
		slog.Any("error", err),
	)
}

// NormalizeAction lower-cases and trims an action name.
func NormalizeAction(action string) string {
	return strings.TrimSpace(strings.ToLower(action))
}
