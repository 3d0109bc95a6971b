package promotion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pricedesk/pricedesk/internal/permission"
	"github.com/pricedesk/pricedesk/internal/shared"
)

// Checker answers permission questions for resolvers.
type Checker interface {
	Can(ctx context.Context, identityID int64, action string) bool
}

// AuditRecorder appends the audit entry for a resolved request.
type AuditRecorder interface {
	RecordRequestResolved(ctx context.Context, actorID int64, requestID uuid.UUID, requesterID int64, decision string) error
}

// Service orchestrates the promotion request workflow.
type Service struct {
	repo    RepositoryPort
	checker Checker
	audit   AuditRecorder
	logger  *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, checker Checker, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, checker: checker, audit: audit, logger: logger}
}

// Request files a new promotion request for the identity. A pending
// request already on file fails with ErrDuplicateRequest.
func (s *Service) Request(ctx context.Context, requesterID int64) (*Request, error) {
	return s.repo.Create(ctx, requesterID)
}

// Get fetches a request by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Request, error) {
	return s.repo.Get(ctx, id)
}

// ListPending returns unresolved requests for the admin queue.
func (s *Service) ListPending(ctx context.Context, actorID int64) ([]Request, error) {
	if !s.checker.Can(ctx, actorID, permission.ActionManageUsers) {
		return nil, shared.ErrForbidden
	}
	return s.repo.ListPending(ctx)
}

// Resolve applies an admin's decision to a pending request. Approval
// promotes the requester to admin in the same transaction as the status
// change.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, resolverID int64, decision Decision) (*Request, error) {
	if !s.checker.Can(ctx, resolverID, permission.ActionManageUsers) {
		return nil, shared.ErrForbidden
	}
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, fmt.Errorf("promotion: unknown decision %q", decision)
	}

	resolved, err := s.repo.Resolve(ctx, id, resolverID, decision)
	if err != nil {
		return nil, err
	}

	if err := s.audit.RecordRequestResolved(ctx, resolverID, resolved.ID, resolved.RequesterID, string(resolved.Status)); err != nil {
		// The workflow state is already committed; losing the trail is
		// an operator problem, not a caller failure.
		s.logger.ErrorContext(ctx, "record request resolution",
			slog.String("request_id", resolved.ID.String()), slog.Any("error", err))
	}
	return resolved, nil
}
