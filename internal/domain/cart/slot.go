package cart

import (
	"context"
	"sync"
)

// Slot is durable storage for one serialized cart.
type Slot interface {
	// Load returns the stored bytes; ok is false when nothing is stored.
	Load(ctx context.Context) (data []byte, ok bool, err error)
	Save(ctx context.Context, data []byte) error
}

// SlotStore hands out the slot for a visitor.
type SlotStore interface {
	Slot(visitorID string) Slot
}

// MemorySlot keeps a cart in process memory.
type MemorySlot struct {
	mu        sync.Mutex
	data      []byte
	ok        bool
	LoadCalls int
	SaveCalls int
	SaveErr   error
}

func NewMemorySlot(initial []byte) *MemorySlot {
	return &MemorySlot{data: initial, ok: initial != nil}
}

func (s *MemorySlot) Load(_ context.Context) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LoadCalls++
	return s.data, s.ok, nil
}

func (s *MemorySlot) Save(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SaveCalls++
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.data = append([]byte(nil), data...)
	s.ok = true
	return nil
}

// Bytes returns the last saved payload.
func (s *MemorySlot) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// MemorySlotStore is a SlotStore backed by MemorySlots. The service keeps
// carts in Redis; this is for tests.
type MemorySlotStore struct {
	mu    sync.Mutex
	slots map[string]*MemorySlot
}

func NewMemorySlotStore() *MemorySlotStore {
	return &MemorySlotStore{slots: make(map[string]*MemorySlot)}
}

func (s *MemorySlotStore) Slot(visitorID string) Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[visitorID]
	if !ok {
		slot = NewMemorySlot(nil)
		s.slots[visitorID] = slot
	}
	return slot
}
