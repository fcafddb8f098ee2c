package catalog

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/dearher/bagstore/internal/domain/product"
)

// Listener receives a full catalog snapshot, newest first.
type Listener func(products []product.Product)

// Hub caches the latest catalog snapshot and fans it out to subscribers.
// Each delivery is the whole catalog as of that refresh.
type Hub struct {
	store Store
	log   *zap.Logger

	mu        sync.RWMutex
	snapshot  []product.Product
	loaded    bool
	nextID    int
	listeners map[int]Listener

	refreshMu sync.Mutex
}

func NewHub(store Store, log *zap.Logger) *Hub {
	return &Hub{
		store:     store,
		log:       log.Named("catalog"),
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers fn and immediately delivers the cached snapshot when
// one exists. A refresh running concurrently is delivered after that first
// snapshot, never before it. fn must not call back into the hub. The
// returned func removes the subscription; calling it more than once is
// harmless.
func (h *Hub) Subscribe(fn Listener) (cancel func()) {
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	snap, loaded := h.snapshot, h.loaded
	h.mu.Unlock()

	if loaded {
		fn(slices.Clone(snap))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// Snapshot returns the cached catalog, loading it on first use.
func (h *Hub) Snapshot(ctx context.Context) ([]product.Product, error) {
	h.mu.RLock()
	snap, loaded := h.snapshot, h.loaded
	h.mu.RUnlock()
	if loaded {
		return slices.Clone(snap), nil
	}
	if err := h.Refresh(ctx); err != nil {
		return nil, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.snapshot), nil
}

// Refresh re-reads the store and pushes the new snapshot to every listener.
func (h *Hub) Refresh(ctx context.Context) error {
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	products, err := h.store.List(ctx)
	if err != nil {
		h.log.Error("catalog refresh failed", zap.Error(err))
		return err
	}
	if products == nil {
		products = []product.Product{}
	}

	h.mu.Lock()
	h.snapshot = products
	h.loaded = true
	listeners := make([]Listener, 0, len(h.listeners))
	for _, fn := range h.listeners {
		listeners = append(listeners, fn)
	}
	h.mu.Unlock()

	h.log.Debug("catalog refreshed", zap.Int("products", len(products)), zap.Int("subscribers", len(listeners)))
	for _, fn := range listeners {
		fn(slices.Clone(products))
	}
	return nil
}

// Subscribers is the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// Notify refreshes in-process. It is the Notifier used when no broker is
// configured.
func (h *Hub) Notify(ctx context.Context, event product.Changed) error {
	h.log.Debug("catalog changed", zap.String("event", event.EventType), zap.String("product_id", event.ProductID))
	return h.Refresh(ctx)
}
