package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pricedesk/pricedesk/internal/shared"
)

// Service appends audit entries and serves the recency view.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Record appends an entry for the actor. The action type and the
// revertible flag derive from the payload's shape. A store failure
// surfaces as ErrStoreUnavailable; a lost audit write must never pass
// silently.
func (s *Service) Record(ctx context.Context, actorID int64, payload Payload) (*Entry, error) {
	if payload == nil {
		return nil, errors.New("audit: payload required")
	}
	actionType := TypeOf(payload)
	entry := &Entry{
		ID:         uuid.New(),
		Type:       actionType,
		ActorID:    actorID,
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
		Revertible: actionType.Revertible(),
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	return entry, nil
}

// Recent lists entries by recency. Limit is clamped to keep the admin
// log screen's queries bounded.
func (s *Service) Recent(ctx context.Context, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListRecent(ctx, limit, offset)
}

// RecordPermissionChange appends the entry for a role-grant mutation.
func (s *Service) RecordPermissionChange(ctx context.Context, actorID int64, role, action string, previousAllowed, allowed bool) error {
	_, err := s.Record(ctx, actorID, &PermissionChange{
		Role:            role,
		Action:          action,
		PreviousAllowed: previousAllowed,
		Allowed:         allowed,
	})
	return err
}

// RecordOverrideSet appends the entry for an override mutation.
func (s *Service) RecordOverrideSet(ctx context.Context, actorID, identityID int64, action string, previous *bool, allowed bool) error {
	_, err := s.Record(ctx, actorID, &OverrideSet{
		IdentityID: identityID,
		Action:     action,
		Previous:   previous,
		Allowed:    allowed,
	})
	return err
}

// RecordRequestResolved appends the entry for a promotion resolution.
func (s *Service) RecordRequestResolved(ctx context.Context, actorID int64, requestID uuid.UUID, requesterID int64, decision string) error {
	_, err := s.Record(ctx, actorID, &RequestResolved{
		RequestID:   requestID,
		RequesterID: requesterID,
		Decision:    decision,
	})
	return err
}

// RecordAdminBootstrapped appends the entry for the first-admin claim.
func (s *Service) RecordAdminBootstrapped(ctx context.Context, identityID int64, email string) error {
	_, err := s.Record(ctx, identityID, &AdminBootstrapped{
		IdentityID: identityID,
		Email:      email,
	})
	return err
}
