package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dearher/bagstore/internal/infrastructure/store/mocks"
	"github.com/dearher/bagstore/internal/readmodel"
)

type memoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	err     error
}

func newMemoryRevocations() *memoryRevocations {
	return &memoryRevocations{revoked: map[string]time.Time{}}
}

func (m *memoryRevocations) Revoke(_ context.Context, id string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[id] = until
	return nil
}

func (m *memoryRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.revoked[id]
	return ok, nil
}

func newTestIdentity(t *testing.T) (*Identity, *mocks.MockUserStore, *memoryRevocations) {
	t.Helper()
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)

	users := mocks.NewMockUserStore(
		&readmodel.UserReadModel{ID: "u-admin", Email: "owner@dearher.pk", PasswordHash: hash, Role: readmodel.RoleAdmin, IsActive: true},
		&readmodel.UserReadModel{ID: "u-shopper", Email: "shopper@example.com", PasswordHash: hash, Role: "customer", IsActive: true},
		&readmodel.UserReadModel{ID: "u-disabled", Email: "gone@example.com", PasswordHash: hash, Role: readmodel.RoleAdmin, IsActive: false},
	)
	revocations := newMemoryRevocations()
	identity := NewIdentity(users, newTestJWTService(), revocations, zap.NewNop())
	return identity, users, revocations
}

// ============================================
// SignIn Tests
// ============================================

func TestIdentity_SignIn_Success(t *testing.T) {
	identity, _, _ := newTestIdentity(t)

	token, session, err := identity.SignIn(context.Background(), " owner@dearher.pk ", "correct-horse")

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "u-admin", session.UserID)
	assert.NotEmpty(t, session.TokenID)
}

func TestIdentity_SignIn_Rejections(t *testing.T) {
	identity, _, _ := newTestIdentity(t)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", "correct-horse"},
		{"wrong password", "owner@dearher.pk", "wrong-horse"},
		{"inactive account", "gone@example.com", "correct-horse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := identity.SignIn(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

// ============================================
// Verify / SignOut Tests
// ============================================

func TestIdentity_VerifyAndSignOut(t *testing.T) {
	identity, _, _ := newTestIdentity(t)
	ctx := context.Background()

	token, _, err := identity.SignIn(ctx, "owner@dearher.pk", "correct-horse")
	require.NoError(t, err)

	session, err := identity.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "owner@dearher.pk", session.Email)

	require.NoError(t, identity.SignOut(ctx, token))

	_, err = identity.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrRevokedToken)
}

func TestIdentity_Verify_RevocationLookupFailureRejects(t *testing.T) {
	identity, _, revocations := newTestIdentity(t)
	ctx := context.Background()
	token, _, err := identity.SignIn(ctx, "owner@dearher.pk", "correct-horse")
	require.NoError(t, err)

	revocations.err = errors.New("redis down")

	_, err = identity.Verify(ctx, token)
	assert.Error(t, err)
}

func TestIdentity_SignOut_InvalidTokenIsNoop(t *testing.T) {
	identity, _, revocations := newTestIdentity(t)
	assert.NoError(t, identity.SignOut(context.Background(), "garbage"))
	assert.Empty(t, revocations.revoked)
}

// ============================================
// Role / Subscribe Tests
// ============================================

func TestIdentity_Role(t *testing.T) {
	identity, users, _ := newTestIdentity(t)
	ctx := context.Background()

	role, err := identity.Role(ctx, "u-admin")
	require.NoError(t, err)
	assert.Equal(t, readmodel.RoleAdmin, role)

	_, err = identity.Role(ctx, "missing")
	assert.ErrorIs(t, err, readmodel.ErrUserNotFound)
	assert.Equal(t, []string{"u-admin", "missing"}, users.RoleCalls)
}

func TestIdentity_Subscribe(t *testing.T) {
	identity, _, _ := newTestIdentity(t)
	ctx := context.Background()

	var events []SessionEvent
	cancel := identity.Subscribe(func(ev SessionEvent) { events = append(events, ev) })

	token, _, err := identity.SignIn(ctx, "shopper@example.com", "correct-horse")
	require.NoError(t, err)
	require.NoError(t, identity.SignOut(ctx, token))

	cancel()
	_, _, err = identity.SignIn(ctx, "shopper@example.com", "correct-horse")
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, SessionSignedIn, events[0].Kind)
	assert.Equal(t, SessionSignedOut, events[1].Kind)
	assert.Equal(t, "u-shopper", events[1].Session.UserID)
}
