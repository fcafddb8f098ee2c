package mocks

import (
	"context"
	"sync"

	"github.com/dearher/bagstore/internal/readmodel"
)

// MockUserStore is an in-memory user store for tests
type MockUserStore struct {
	mu    sync.RWMutex
	users map[string]*readmodel.UserReadModel

	// For tracking calls in tests
	RoleCalls   []string
	UpsertCalls []*readmodel.UserReadModel
	RoleErr     error
}

func NewMockUserStore(users ...*readmodel.UserReadModel) *MockUserStore {
	m := &MockUserStore{users: make(map[string]*readmodel.UserReadModel)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *MockUserStore) GetUserByEmail(ctx context.Context, email string) (*readmodel.UserReadModel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			found := *u
			return &found, nil
		}
	}
	return nil, readmodel.ErrUserNotFound
}

func (m *MockUserStore) GetUserByID(ctx context.Context, id string) (*readmodel.UserReadModel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, readmodel.ErrUserNotFound
	}
	found := *u
	return &found, nil
}

func (m *MockUserStore) GetRole(ctx context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RoleCalls = append(m.RoleCalls, userID)
	if m.RoleErr != nil {
		return "", m.RoleErr
	}
	u, ok := m.users[userID]
	if !ok {
		return "", readmodel.ErrUserNotFound
	}
	return u.Role, nil
}

func (m *MockUserStore) UpsertUser(ctx context.Context, u *readmodel.UserReadModel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls = append(m.UpsertCalls, u)
	stored := *u
	m.users[u.ID] = &stored
	return nil
}
