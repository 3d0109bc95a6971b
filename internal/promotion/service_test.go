package promotion

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricedesk/pricedesk/internal/shared"
)

// ============================================================================
// FAKES
// ============================================================================

type fakeRepository struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*Request
	// roles stands in for the identities table so the promotion side
	// effect of an approval is observable.
	roles map[int64]string

	createError  error
	resolveError error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		requests: make(map[uuid.UUID]*Request),
		roles:    make(map[int64]string),
	}
}

func (f *fakeRepository) Create(ctx context.Context, requesterID int64) (*Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createError != nil {
		return nil, f.createError
	}
	for _, req := range f.requests {
		if req.RequesterID == requesterID && req.Status == StatusPending {
			return nil, shared.ErrDuplicateRequest
		}
	}
	req := &Request{
		ID:          uuid.New(),
		RequesterID: requesterID,
		Status:      StatusPending,
		RequestedAt: time.Now().UTC(),
	}
	f.requests[req.ID] = req
	clone := *req
	return &clone, nil
}

func (f *fakeRepository) Get(ctx context.Context, id uuid.UUID) (*Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *req
	return &clone, nil
}

func (f *fakeRepository) ListPending(ctx context.Context) ([]Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pending []Request
	for _, req := range f.requests {
		if req.Status == StatusPending {
			pending = append(pending, *req)
		}
	}
	return pending, nil
}

func (f *fakeRepository) Resolve(ctx context.Context, id uuid.UUID, resolverID int64, decision Decision) (*Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if req.Resolved() {
		return nil, shared.ErrAlreadyResolved
	}
	// Role promotion and status change stay atomic, as in the SQL
	// transaction: a failed promotion leaves the request pending.
	if decision == DecisionApprove {
		if f.resolveError != nil {
			return nil, f.resolveError
		}
		f.roles[req.RequesterID] = "admin"
		req.Status = StatusApproved
	} else {
		req.Status = StatusRejected
	}
	now := time.Now().UTC()
	req.ResolvedAt = &now
	req.ResolvedBy = &resolverID
	clone := *req
	return &clone, nil
}

var _ RepositoryPort = (*fakeRepository)(nil)

type fakeChecker struct {
	managers map[int64]bool
}

func (f *fakeChecker) Can(ctx context.Context, identityID int64, action string) bool {
	return f.managers[identityID]
}

type fakeResolutionRecorder struct {
	mu       sync.Mutex
	resolved []string
	err      error
}

func (f *fakeResolutionRecorder) RecordRequestResolved(ctx context.Context, actorID int64, requestID uuid.UUID, requesterID int64, decision string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.resolved = append(f.resolved, decision)
	return nil
}

func newTestService() (*Service, *fakeRepository, *fakeResolutionRecorder) {
	repo := newFakeRepository()
	recorder := &fakeResolutionRecorder{}
	checker := &fakeChecker{managers: map[int64]bool{1: true}}
	svc := NewService(repo, checker, recorder, slog.New(slog.DiscardHandler))
	return svc, repo, recorder
}

// ============================================================================
// TESTS
// ============================================================================

func TestRequestRejectsSecondPending(t *testing.T) {
	svc, _, _ := newTestService()

	req, err := svc.Request(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, int64(2), req.RequesterID)

	_, err = svc.Request(context.Background(), 2)
	require.ErrorIs(t, err, shared.ErrDuplicateRequest)
}

func TestRequestAllowedAgainAfterRejection(t *testing.T) {
	svc, _, _ := newTestService()

	req, err := svc.Request(context.Background(), 2)
	require.NoError(t, err)
	_, err = svc.Resolve(context.Background(), req.ID, 1, DecisionReject)
	require.NoError(t, err)

	again, err := svc.Request(context.Background(), 2)
	require.NoError(t, err)
	assert.NotEqual(t, req.ID, again.ID)
}

func TestResolveRequiresManager(t *testing.T) {
	svc, repo, _ := newTestService()

	req, err := svc.Request(context.Background(), 2)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), req.ID, 2, DecisionApprove)
	require.ErrorIs(t, err, shared.ErrForbidden)
	assert.Empty(t, repo.roles[2], "denied resolution must not promote")
}

func TestResolveApprovePromotesRequester(t *testing.T) {
	svc, repo, recorder := newTestService()

	req, err := svc.Request(context.Background(), 2)
	require.NoError(t, err)

	resolved, err := svc.Resolve(context.Background(), req.ID, 1, DecisionApprove)
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, int64(1), *resolved.ResolvedBy)
	assert.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, "admin", repo.roles[2])
	assert.Equal(t, []string{"approved"}, recorder.resolved)
}

func TestResolveRejectLeavesRoleUntouched(t *testing.T) {
	svc, repo, recorder := newTestService()

	req, err := svc.Request(context.Background(), 2)
	require.NoError(t, err)

	resolved, err := svc.Resolve(context.Background(), req.ID, 1, DecisionReject)
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, resolved.Status)
	assert.Empty(t, repo.roles[2])
	assert.Equal(t, []string{"rejected"}, recorder.resolved)
}

func TestResolveTwiceConflicts(t *testing.T) {
	svc, repo, _ := newTestService()

	req, err := svc.Request(context.Background(), 2)
	require.NoError(t, err)
	_, err = svc.Resolve(context.Background(), req.ID, 1, DecisionReject)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), req.ID, 1, DecisionApprove)
	require.ErrorIs(t, err, shared.ErrAlreadyResolved)
	assert.Empty(t, repo.roles[2], "re-resolution must not promote")
}

func TestResolveUnknownRequest(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Resolve(context.Background(), uuid.New(), 1, DecisionApprove)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestResolveRejectsUnknownDecision(t *testing.T) {
	svc, _, _ := newTestService()

	req, err := svc.Request(context.Background(), 2)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), req.ID, 1, Decision("maybe"))
	require.Error(t, err)

	got, err := svc.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestResolvePromotionFailureLeavesRequestPending(t *testing.T) {
	svc, repo, recorder := newTestService()

	req, err := svc.Request(context.Background(), 2)
	require.NoError(t, err)
	repo.resolveError = errors.New("connection refused")

	_, err = svc.Resolve(context.Background(), req.ID, 1, DecisionApprove)
	require.Error(t, err)

	got, err := svc.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Empty(t, recorder.resolved)
}

func TestResolveAuditFailureDoesNotFailCaller(t *testing.T) {
	svc, repo, recorder := newTestService()
	recorder.err = errors.New("audit store down")

	req, err := svc.Request(context.Background(), 2)
	require.NoError(t, err)

	resolved, err := svc.Resolve(context.Background(), req.ID, 1, DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, resolved.Status)
	assert.Equal(t, "admin", repo.roles[2])
}

func TestListPendingRequiresManager(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Request(context.Background(), 2)
	require.NoError(t, err)

	_, err = svc.ListPending(context.Background(), 2)
	require.ErrorIs(t, err, shared.ErrForbidden)

	pending, err := svc.ListPending(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
