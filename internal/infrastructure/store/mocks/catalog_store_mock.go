package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dearher/bagstore/internal/domain/product"
)

// MockCatalogStore is an in-memory catalog.Store for tests
type MockCatalogStore struct {
	mu       sync.RWMutex
	products []product.Product // newest first
	seq      int
	now      func() time.Time

	// For tracking calls in tests
	CreateCalls []product.Input
	UpdateCalls []UpdateCall
	DeleteCalls []string
	ListCalls   int

	ListErr   error
	GetErr    error
	CreateErr error
	UpdateErr error
	DeleteErr error
}

// UpdateCall records parameters passed to Update
type UpdateCall struct {
	ID    string
	Patch product.Patch
}

// NewMockCatalogStore creates a store seeded with products in the given
// order, which is treated as newest first.
func NewMockCatalogStore(seed ...product.Product) *MockCatalogStore {
	products := make([]product.Product, len(seed))
	copy(products, seed)
	return &MockCatalogStore{
		products:    products,
		now:         time.Now,
		CreateCalls: make([]product.Input, 0),
		UpdateCalls: make([]UpdateCall, 0),
		DeleteCalls: make([]string, 0),
	}
}

func (m *MockCatalogStore) List(ctx context.Context) ([]product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]product.Product, len(m.products))
	copy(out, m.products)
	return out, nil
}

func (m *MockCatalogStore) GetBySlug(ctx context.Context, slug string) (*product.Product, error) {
	return m.find(func(p product.Product) bool { return p.Slug == slug })
}

func (m *MockCatalogStore) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return m.find(func(p product.Product) bool { return p.ID == id })
}

func (m *MockCatalogStore) ListFeatured(ctx context.Context, limit int) ([]product.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]product.Product, 0)
	for _, p := range m.products {
		if len(out) == limit {
			break
		}
		if p.Featured {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockCatalogStore) Create(ctx context.Context, in product.Input) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls = append(m.CreateCalls, in)
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	for _, p := range m.products {
		if p.Slug == in.Slug {
			return "", product.ErrSlugTaken
		}
	}
	m.seq++
	id := fmt.Sprintf("prod-%d", m.seq)
	p := in.Product(id, m.now())
	m.products = append([]product.Product{p}, m.products...)
	return id, nil
}

func (m *MockCatalogStore) Update(ctx context.Context, id string, patch product.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls = append(m.UpdateCalls, UpdateCall{ID: id, Patch: patch})
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	for i := range m.products {
		if m.products[i].ID == id {
			patch.Apply(&m.products[i], m.now())
			return nil
		}
	}
	return product.ErrProductNotFound
}

func (m *MockCatalogStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls = append(m.DeleteCalls, id)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	for i, p := range m.products {
		if p.ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return nil
		}
	}
	return product.ErrProductNotFound
}

func (m *MockCatalogStore) find(match func(product.Product) bool) (*product.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, p := range m.products {
		if match(p) {
			found := p
			return &found, nil
		}
	}
	return nil, product.ErrProductNotFound
}
