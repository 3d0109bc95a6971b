package permission

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricedesk/pricedesk/internal/shared"
)

type fakeOverrideWriter struct {
	mu        sync.Mutex
	overrides map[string]bool
	err       error
}

func newFakeOverrideWriter() *fakeOverrideWriter {
	return &fakeOverrideWriter{overrides: make(map[string]bool)}
}

func overrideKey(identityID int64, action string) string {
	return fmt.Sprintf("%d|%s", identityID, action)
}

func (f *fakeOverrideWriter) SetOverride(ctx context.Context, identityID int64, action string, allowed bool) (*bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	key := overrideKey(identityID, action)
	var previous *bool
	if prior, ok := f.overrides[key]; ok {
		previous = &prior
	}
	f.overrides[key] = allowed
	return previous, nil
}

type recordedChange struct {
	role, action      string
	previous, allowed bool
}

type recordedOverride struct {
	identityID int64
	action     string
	previous   *bool
	allowed    bool
}

type fakeAuditRecorder struct {
	changes   []recordedChange
	overrides []recordedOverride
}

func (f *fakeAuditRecorder) RecordPermissionChange(ctx context.Context, actorID int64, role, action string, previousAllowed, allowed bool) error {
	f.changes = append(f.changes, recordedChange{role: role, action: action, previous: previousAllowed, allowed: allowed})
	return nil
}

func (f *fakeAuditRecorder) RecordOverrideSet(ctx context.Context, actorID, identityID int64, action string, previous *bool, allowed bool) error {
	f.overrides = append(f.overrides, recordedOverride{identityID: identityID, action: action, previous: previous, allowed: allowed})
	return nil
}

func newTestService() (*Service, *fakeProfileSource, *fakeGrantStore, *fakeOverrideWriter, *fakeAuditRecorder) {
	profiles := newFakeProfileSource()
	grants := newFakeGrantStore()
	overrides := newFakeOverrideWriter()
	recorder := &fakeAuditRecorder{}
	engine := NewEngine(profiles, grants, testLogger())
	svc := NewService(engine, grants, overrides, recorder, testLogger())
	return svc, profiles, grants, overrides, recorder
}

func TestSetGrantRequiresManager(t *testing.T) {
	svc, profiles, grants, _, recorder := newTestService()
	profiles.setRole(1, RoleUser)

	err := svc.SetGrant(context.Background(), 1, RoleUser, ActionProductAdd, true)
	require.ErrorIs(t, err, shared.ErrForbidden)
	assert.Empty(t, grants.grants)
	assert.Empty(t, recorder.changes)
}

func TestSetGrantRecordsPreviousValue(t *testing.T) {
	svc, profiles, grants, _, recorder := newTestService()
	profiles.setRole(1, RoleAdmin)
	require.NoError(t, grants.UpsertGrant(context.Background(), RoleUser, ActionProductAdd, false))

	require.NoError(t, svc.SetGrant(context.Background(), 1, RoleUser, ActionProductAdd, true))

	allowed, ok := grants.grants[grantKey(RoleUser, ActionProductAdd)]
	require.True(t, ok)
	assert.True(t, allowed)
	require.Len(t, recorder.changes, 1)
	assert.Equal(t, recordedChange{role: RoleUser, action: ActionProductAdd, previous: false, allowed: true}, recorder.changes[0])
}

func TestSetGrantAbsentGrantDefaultsPreviousFalse(t *testing.T) {
	svc, profiles, _, _, recorder := newTestService()
	profiles.setRole(1, RoleAdmin)

	require.NoError(t, svc.SetGrant(context.Background(), 1, RoleUser, ActionPriceEdit, true))

	require.Len(t, recorder.changes, 1)
	assert.False(t, recorder.changes[0].previous)
}

func TestSetGrantRejectsUnknownRole(t *testing.T) {
	svc, profiles, _, _, _ := newTestService()
	profiles.setRole(1, RoleAdmin)

	err := svc.SetGrant(context.Background(), 1, "superuser", ActionProductAdd, true)
	require.Error(t, err)
}

func TestSetOverrideRecordsPriorState(t *testing.T) {
	svc, profiles, _, overrides, recorder := newTestService()
	profiles.setRole(1, RoleAdmin)

	require.NoError(t, svc.SetOverride(context.Background(), 1, 7, ActionProductAdd, true))
	require.Len(t, recorder.overrides, 1)
	assert.Nil(t, recorder.overrides[0].previous)

	require.NoError(t, svc.SetOverride(context.Background(), 1, 7, ActionProductAdd, false))
	require.Len(t, recorder.overrides, 2)
	require.NotNil(t, recorder.overrides[1].previous)
	assert.True(t, *recorder.overrides[1].previous)
	assert.False(t, overrides.overrides[overrideKey(7, ActionProductAdd)])
}

func TestSetOverrideRequiresManager(t *testing.T) {
	svc, profiles, _, overrides, _ := newTestService()
	profiles.setRole(2, RoleUser)

	err := svc.SetOverride(context.Background(), 2, 7, ActionProductAdd, true)
	require.ErrorIs(t, err, shared.ErrForbidden)
	assert.Empty(t, overrides.overrides)
}
