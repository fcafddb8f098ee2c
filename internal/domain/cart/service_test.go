package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCartService() (*Service, *MemorySlotStore) {
	slots := NewMemorySlotStore()
	return NewService(slots, zap.NewNop()), slots
}

func TestService_VisitorsAreIsolated(t *testing.T) {
	svc, _ := newTestCartService()
	ctx := context.Background()

	_, err := svc.Add(ctx, "alice", line("p1", "Black", 1000, 1))
	require.NoError(t, err)
	view, err := svc.Add(ctx, "bob", line("p2", "Navy", 500, 3))
	require.NoError(t, err)

	assert.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.TotalItems)

	alice, err := svc.View(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1000, alice.TotalPrice)
}

func TestService_Operations(t *testing.T) {
	svc, _ := newTestCartService()
	ctx := context.Background()

	_, err := svc.Add(ctx, "v1", line("p1", "Black", 1500, 1))
	require.NoError(t, err)
	_, err = svc.Add(ctx, "v1", line("p1", "Navy", 1500, 1))
	require.NoError(t, err)

	view, err := svc.UpdateQuantity(ctx, "v1", "p1", "Navy", 3)
	require.NoError(t, err)
	assert.Equal(t, 4, view.TotalItems)

	view, err = svc.Remove(ctx, "v1", "p1", "Black")
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
	assert.Equal(t, 4500, view.TotalPrice)

	view, err = svc.Clear(ctx, "v1")
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.NotNil(t, view.Items)
}

// brokenSlots hands out slots whose reads always fail.
type brokenSlots struct{ slot *MemorySlot }

func (b brokenSlots) Slot(string) Slot { return brokenSlot{b.slot} }

type brokenSlot struct{ *MemorySlot }

func (brokenSlot) Load(context.Context) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func TestService_UnreadableCartIsNotTouched(t *testing.T) {
	saved, err := Encode([]Line{line("p1", "Black", 1000, 2)})
	require.NoError(t, err)
	slot := NewMemorySlot(saved)
	svc := NewService(brokenSlots{slot: slot}, zap.NewNop())
	ctx := context.Background()

	_, err = svc.Add(ctx, "v1", line("p2", "Navy", 500, 1))
	assert.ErrorIs(t, err, ErrCartUnavailable)
	_, err = svc.Clear(ctx, "v1")
	assert.ErrorIs(t, err, ErrCartUnavailable)
	_, err = svc.View(ctx, "v1")
	assert.ErrorIs(t, err, ErrCartUnavailable)

	assert.Equal(t, 0, slot.SaveCalls)
	assert.Equal(t, saved, slot.Bytes())
	assert.Empty(t, svc.locks)
}

func TestService_ConcurrentAddsForOneVisitor(t *testing.T) {
	svc, _ := newTestCartService()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Add(ctx, "v1", line("p1", "Black", 100, 1))
		}()
	}
	wg.Wait()

	view, err := svc.View(ctx, "v1")
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
	assert.Equal(t, 50, view.TotalItems)
	assert.Empty(t, svc.locks)
}
