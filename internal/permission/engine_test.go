package permission

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricedesk/pricedesk/internal/shared"
)

// ============================================================================
// FAKES
// ============================================================================

type fakeProfileSource struct {
	mu       sync.Mutex
	profiles map[int64]Profile
	err      error
}

func newFakeProfileSource() *fakeProfileSource {
	return &fakeProfileSource{profiles: make(map[int64]Profile)}
}

func (f *fakeProfileSource) Profile(ctx context.Context, identityID int64) (Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Profile{}, f.err
	}
	prof, ok := f.profiles[identityID]
	if !ok {
		return Profile{}, shared.ErrNotFound
	}
	return prof, nil
}

func (f *fakeProfileSource) setRole(id int64, role string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prof := f.profiles[id]
	prof.ID = id
	prof.Role = role
	f.profiles[id] = prof
}

func (f *fakeProfileSource) setOverride(id int64, action string, allowed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prof := f.profiles[id]
	if prof.Overrides == nil {
		prof.Overrides = make(map[string]bool)
	}
	prof.Overrides[action] = allowed
	f.profiles[id] = prof
}

type fakeGrantStore struct {
	mu     sync.Mutex
	grants map[string]bool
	err    error
}

func newFakeGrantStore() *fakeGrantStore {
	return &fakeGrantStore{grants: make(map[string]bool)}
}

func grantKey(role, action string) string { return role + "|" + action }

func (f *fakeGrantStore) GetGrant(ctx context.Context, role, action string) (Grant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Grant{}, f.err
	}
	allowed, ok := f.grants[grantKey(role, action)]
	if !ok {
		return Grant{}, shared.ErrNotFound
	}
	return Grant{Role: role, Action: action, Allowed: allowed}, nil
}

func (f *fakeGrantStore) ListGrants(ctx context.Context) ([]Grant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]Grant, 0, len(f.grants))
	for key, allowed := range f.grants {
		out = append(out, Grant{Role: key, Allowed: allowed})
	}
	return out, nil
}

func (f *fakeGrantStore) UpsertGrant(ctx context.Context, role, action string, allowed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.grants[grantKey(role, action)] = allowed
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ============================================================================
// TESTS
// ============================================================================

func TestCanAdminAlwaysAllowed(t *testing.T) {
	profiles := newFakeProfileSource()
	grants := newFakeGrantStore()
	engine := NewEngine(profiles, grants, testLogger())

	profiles.setRole(1, RoleAdmin)
	// A deny grant and a deny override must both lose to the admin role.
	require.NoError(t, grants.UpsertGrant(context.Background(), RoleAdmin, ActionProductAdd, false))
	profiles.setOverride(1, ActionProductAdd, false)

	for _, action := range MutationActions() {
		assert.True(t, engine.Can(context.Background(), 1, action), "admin denied %s", action)
	}
	assert.True(t, engine.Can(context.Background(), 1, "totally.unknown"))
}

func TestCanFailClosedDefault(t *testing.T) {
	profiles := newFakeProfileSource()
	grants := newFakeGrantStore()
	engine := NewEngine(profiles, grants, testLogger())

	profiles.setRole(2, RoleUser)

	// No grant, no override: deny.
	assert.False(t, engine.Can(context.Background(), 2, ActionProductAdd))
	// Unknown identity: deny.
	assert.False(t, engine.Can(context.Background(), 99, ActionProductAdd))
	// Empty action: deny.
	assert.False(t, engine.Can(context.Background(), 2, "  "))
}

func TestCanOverrideWinsOverGrant(t *testing.T) {
	profiles := newFakeProfileSource()
	grants := newFakeGrantStore()
	engine := NewEngine(profiles, grants, testLogger())

	profiles.setRole(3, RoleUser)
	require.NoError(t, grants.UpsertGrant(context.Background(), RoleUser, ActionProductAdd, false))
	profiles.setOverride(3, ActionProductAdd, true)

	assert.True(t, engine.Can(context.Background(), 3, ActionProductAdd))

	// And the inverse: an override can take a granted action away.
	require.NoError(t, grants.UpsertGrant(context.Background(), RoleUser, ActionPriceEdit, true))
	profiles.setOverride(3, ActionPriceEdit, false)
	assert.False(t, engine.Can(context.Background(), 3, ActionPriceEdit))
}

func TestCanFallsThroughToGrant(t *testing.T) {
	profiles := newFakeProfileSource()
	grants := newFakeGrantStore()
	engine := NewEngine(profiles, grants, testLogger())

	profiles.setRole(4, RoleUser)
	require.NoError(t, grants.UpsertGrant(context.Background(), RoleUser, ActionPriceAdd, true))

	assert.True(t, engine.Can(context.Background(), 4, ActionPriceAdd))
	assert.False(t, engine.Can(context.Background(), 4, ActionPriceDelete))
}

func TestCanDeniesOnStoreError(t *testing.T) {
	profiles := newFakeProfileSource()
	grants := newFakeGrantStore()
	engine := NewEngine(profiles, grants, testLogger())

	profiles.setRole(5, RoleUser)
	require.NoError(t, grants.UpsertGrant(context.Background(), RoleUser, ActionProductAdd, true))

	grants.err = errors.New("connection refused")
	assert.False(t, engine.Can(context.Background(), 5, ActionProductAdd))

	grants.err = nil
	profiles.err = errors.New("connection refused")
	assert.False(t, engine.Can(context.Background(), 5, ActionProductAdd))

	profiles.err = nil
	assert.True(t, engine.Can(context.Background(), 5, ActionProductAdd))
}

func TestCanSeesRoleChangeImmediately(t *testing.T) {
	profiles := newFakeProfileSource()
	grants := newFakeGrantStore()
	engine := NewEngine(profiles, grants, testLogger())

	profiles.setRole(6, RoleUser)
	require.NoError(t, grants.UpsertGrant(context.Background(), RoleUser, ActionProductAdd, false))
	assert.False(t, engine.Can(context.Background(), 6, ActionProductAdd))

	// A concurrent promotion must be visible on the very next check,
	// through the admin rule rather than any stale grant.
	profiles.setRole(6, RoleAdmin)
	assert.True(t, engine.Can(context.Background(), 6, ActionProductAdd))
}
