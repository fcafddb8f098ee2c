package cart

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// View is the read model returned after every cart call.
type View struct {
	Items      []Line `json:"items"`
	TotalItems int    `json:"totalItems"`
	TotalPrice int    `json:"totalPrice"`
}

func viewOf(e *Engine) View {
	return View{
		Items:      e.Lines(),
		TotalItems: e.TotalItems(),
		TotalPrice: e.TotalPrice(),
	}
}

// Service opens a visitor's cart for the duration of one call. Calls for
// the same visitor are serialized so load-mutate-save never interleaves.
type Service struct {
	slots SlotStore
	log   *zap.Logger

	mu    sync.Mutex
	locks map[string]*visitorLock
}

type visitorLock struct {
	mu   sync.Mutex
	refs int
}

func NewService(slots SlotStore, log *zap.Logger) *Service {
	return &Service{
		slots: slots,
		log:   log.Named("cart"),
		locks: make(map[string]*visitorLock),
	}
}

// Do runs fn against the visitor's cart and returns the resulting view.
// If the cart cannot be read, fn is not run and ErrCartUnavailable is
// returned.
func (s *Service) Do(ctx context.Context, visitorID string, fn func(e *Engine)) (View, error) {
	unlock := s.lock(visitorID)
	defer unlock()

	e := Open(ctx, s.slots.Slot(visitorID), s.log.With(zap.String("visitor", visitorID)))
	if err := e.Err(); err != nil {
		return View{}, fmt.Errorf("%w: %v", ErrCartUnavailable, err)
	}
	if fn != nil {
		fn(e)
	}
	return viewOf(e), nil
}

func (s *Service) View(ctx context.Context, visitorID string) (View, error) {
	return s.Do(ctx, visitorID, nil)
}

func (s *Service) Add(ctx context.Context, visitorID string, line Line) (View, error) {
	return s.Do(ctx, visitorID, func(e *Engine) { e.Add(ctx, line) })
}

func (s *Service) Remove(ctx context.Context, visitorID, productID, color string) (View, error) {
	return s.Do(ctx, visitorID, func(e *Engine) { e.Remove(ctx, productID, color) })
}

func (s *Service) UpdateQuantity(ctx context.Context, visitorID, productID, color string, quantity int) (View, error) {
	return s.Do(ctx, visitorID, func(e *Engine) { e.UpdateQuantity(ctx, productID, color, quantity) })
}

func (s *Service) Clear(ctx context.Context, visitorID string) (View, error) {
	return s.Do(ctx, visitorID, func(e *Engine) { e.Clear(ctx) })
}

func (s *Service) lock(visitorID string) func() {
	s.mu.Lock()
	l, ok := s.locks[visitorID]
	if !ok {
		l = &visitorLock{}
		s.locks[visitorID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, visitorID)
		}
		s.mu.Unlock()
	}
}
