package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dearher/bagstore/internal/auth"
	"github.com/dearher/bagstore/internal/infrastructure/store/mocks"
	"github.com/dearher/bagstore/internal/readmodel"
)

func TestSetupAdmin(t *testing.T) {
	users := mocks.NewMockUserStore()
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	u, err := setupAdmin(context.Background(), users, "  Owner@DearHer.pk ", "correct-horse", "Owner", now)

	require.NoError(t, err)
	assert.Equal(t, "owner@dearher.pk", u.Email)
	assert.Equal(t, readmodel.RoleAdmin, u.Role)
	assert.True(t, u.IsActive)
	assert.True(t, auth.CheckPassword("correct-horse", u.PasswordHash))
	require.Len(t, users.UpsertCalls, 1)

	role, err := users.GetRole(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, readmodel.RoleAdmin, role)
}

func TestSetupAdmin_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"missing email", "", "correct-horse", errEmailRequired},
		{"short password", "owner@dearher.pk", "short", auth.ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := mocks.NewMockUserStore()
			_, err := setupAdmin(context.Background(), users, tt.email, tt.password, "", time.Now())
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, users.UpsertCalls)
		})
	}
}
