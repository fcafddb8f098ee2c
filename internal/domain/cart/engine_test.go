package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/dearher/bagstore/internal/domain/product"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine(initial []byte) (*Engine, *MemorySlot) {
	slot := NewMemorySlot(initial)
	return Open(context.Background(), slot, zap.NewNop()), slot
}

func line(id, color string, price, qty int) Line {
	return Line{ProductID: id, Name: "Bag " + id, Slug: "bag-" + id, Price: price, Color: color, Quantity: qty}
}

// ============================================
// Open Tests
// ============================================

func TestOpen_EmptySlot(t *testing.T) {
	e, slot := newTestEngine(nil)

	assert.Empty(t, e.Lines())
	assert.Equal(t, 0, e.TotalItems())
	assert.Equal(t, 1, slot.LoadCalls)
	assert.Equal(t, 0, slot.SaveCalls)
}

func TestOpen_CorruptSlotYieldsEmptyCart(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "not-json"},
		{"object", `{"id":"p1"}`},
		{"null", "null"},
		{"unknown field", `[{"id":"p1","quantity":1,"bogus":true}]`},
		{"zero quantity", `[{"id":"p1","quantity":0}]`},
		{"missing id", `[{"quantity":2}]`},
		{"trailing data", `[] []`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine([]byte(tt.data))
			assert.Empty(t, e.Lines())
		})
	}
}

// flakySlot fails its first Load and then behaves like the wrapped slot.
type flakySlot struct {
	*MemorySlot
	failed bool
}

func (s *flakySlot) Load(ctx context.Context) ([]byte, bool, error) {
	if !s.failed {
		s.failed = true
		return nil, false, errors.New("i/o timeout")
	}
	return s.MemorySlot.Load(ctx)
}

func TestOpen_LoadErrorKeepsSavedCart(t *testing.T) {
	ctx := context.Background()
	saved, err := Encode([]Line{line("p1", "Black", 1000, 1), line("p2", "Navy", 2000, 2)})
	require.NoError(t, err)
	slot := &flakySlot{MemorySlot: NewMemorySlot(saved)}

	e := Open(ctx, slot, zap.NewNop())
	require.Error(t, e.Err())
	assert.Empty(t, e.Lines())

	e.Add(ctx, line("p3", "Ivory", 500, 1))
	e.Clear(ctx)
	assert.Equal(t, 0, slot.SaveCalls)
	assert.Equal(t, saved, slot.Bytes())

	reopened := Open(ctx, slot, zap.NewNop())
	require.NoError(t, reopened.Err())
	reopened.Add(ctx, line("p3", "Ivory", 500, 1))
	assert.Len(t, reopened.Lines(), 3)
}

func TestEngine_SaveErrorIsSwallowed(t *testing.T) {
	e, slot := newTestEngine(nil)
	slot.SaveErr = errors.New("boom")

	e.Add(context.Background(), line("p1", "Black", 100, 1))
	assert.Equal(t, 1, e.TotalItems())
	assert.Equal(t, 1, slot.SaveCalls)
}

func TestOpen_RestoresSavedCart(t *testing.T) {
	e, slot := newTestEngine(nil)
	ctx := context.Background()
	e.Add(ctx, line("p1", "Black", 3000, 2))
	e.Add(ctx, line("p2", "", 1500, 1))

	reopened := Open(ctx, slot, zap.NewNop())
	assert.Equal(t, e.Lines(), reopened.Lines())
}

// ============================================
// Mutation Tests
// ============================================

func TestEngine_Add_MergesByProductAndColor(t *testing.T) {
	e, slot := newTestEngine(nil)
	ctx := context.Background()

	e.Add(ctx, line("p1", "Black", 3000, 1))
	e.Add(ctx, line("p1", "Navy", 3000, 2))
	e.Add(ctx, line("p1", "Black", 3000, 3))

	lines := e.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "Black", lines[0].Color)
	assert.Equal(t, 4, lines[0].Quantity)
	assert.Equal(t, "Navy", lines[1].Color)
	assert.Equal(t, 2, lines[1].Quantity)
	assert.Equal(t, 3, slot.SaveCalls)
}

func TestEngine_Add_SizeIsNotPartOfKey(t *testing.T) {
	e, _ := newTestEngine(nil)
	ctx := context.Background()

	small := line("p1", "Black", 3000, 1)
	small.Size = "Small"
	large := line("p1", "Black", 3000, 1)
	large.Size = "Large"

	e.Add(ctx, small)
	e.Add(ctx, large)

	lines := e.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "Small", lines[0].Size)
}

func TestEngine_Add_MergeTotalsMatchSumOfQuantities(t *testing.T) {
	e, _ := newTestEngine(nil)
	ctx := context.Background()

	for _, q := range []int{1, 4, 2} {
		e.Add(ctx, line("p1", "Ivory", 500, q))
	}

	assert.Equal(t, 7, e.TotalItems())
	assert.Equal(t, 3500, e.TotalPrice())
}

func TestEngine_RemoveThenAddCreatesFreshLine(t *testing.T) {
	e, _ := newTestEngine(nil)
	ctx := context.Background()

	e.Add(ctx, line("p1", "Black", 100, 5))
	e.Add(ctx, line("p2", "", 200, 1))
	e.Remove(ctx, "p1", "Black")
	e.Add(ctx, line("p1", "Black", 100, 2))

	lines := e.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "p2", lines[0].ProductID)
	assert.Equal(t, "p1", lines[1].ProductID)
	assert.Equal(t, 2, lines[1].Quantity)
}

func TestEngine_Remove_NoMatchIsNoop(t *testing.T) {
	e, _ := newTestEngine(nil)
	ctx := context.Background()
	e.Add(ctx, line("p1", "Black", 100, 1))

	e.Remove(ctx, "p1", "Navy")
	assert.Len(t, e.Lines(), 1)
}

func TestEngine_UpdateQuantity(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		want     int
	}{
		{"sets quantity", 5, 5},
		{"zero is ignored", 0, 2},
		{"negative is ignored", -1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(nil)
			ctx := context.Background()
			e.Add(ctx, line("p1", "Black", 100, 2))

			e.UpdateQuantity(ctx, "p1", "Black", tt.quantity)

			assert.Equal(t, tt.want, e.Lines()[0].Quantity)
		})
	}
}

func TestEngine_UpdateQuantity_BelowOneDoesNotPersist(t *testing.T) {
	e, slot := newTestEngine(nil)
	ctx := context.Background()
	e.Add(ctx, line("p1", "Black", 100, 2))

	e.UpdateQuantity(ctx, "p1", "Black", 0)
	assert.Equal(t, 1, slot.SaveCalls)
}

func TestEngine_Clear(t *testing.T) {
	e, slot := newTestEngine(nil)
	ctx := context.Background()
	e.Add(ctx, line("p1", "Black", 100, 2))

	e.Clear(ctx)

	assert.Empty(t, e.Lines())
	assert.Equal(t, 0, e.TotalPrice())
	assert.JSONEq(t, `[]`, string(slot.Bytes()))
}

func TestEngine_LinesReturnsCopy(t *testing.T) {
	e, _ := newTestEngine(nil)
	e.Add(context.Background(), line("p1", "Black", 100, 2))

	lines := e.Lines()
	lines[0].Quantity = 99

	assert.Equal(t, 2, e.Lines()[0].Quantity)
}

// Two colorways of one tote, the second added twice.
func TestEngine_TwoColorwaysScenario(t *testing.T) {
	e, _ := newTestEngine(nil)
	ctx := context.Background()

	e.Add(ctx, line("P1", "Black", 1500, 1))
	e.Add(ctx, line("P1", "Navy", 1500, 1))
	e.Add(ctx, line("P1", "Navy", 1500, 2))

	assert.Len(t, e.Lines(), 2)
	assert.Equal(t, 4, e.TotalItems())
	assert.Equal(t, 6000, e.TotalPrice())
}

// ============================================
// Codec Tests
// ============================================

func TestEncodeDecode_RoundTrip(t *testing.T) {
	lines := []Line{
		{ProductID: "p1", Name: "Tote", Slug: "tote", Price: 2500, Image: "https://cdn/x.jpg", Color: "Black", Size: "Large", Quantity: 2},
		{ProductID: "p2", Name: "Clutch", Slug: "clutch", Price: 1200, Quantity: 1},
	}

	data, err := Encode(lines)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, lines, decoded)
}

func TestEncode_UsesStoredFieldNames(t *testing.T) {
	data, err := Encode([]Line{{ProductID: "p1", Name: "Tote", Price: 10, Quantity: 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"p1","name":"Tote","slug":"","price":10,"image":"","color":"","size":"","quantity":1}]`, string(data))
}

func TestDecode_RejectsCorruptPayload(t *testing.T) {
	_, err := Decode([]byte(`{"not":"an array"}`))
	assert.ErrorIs(t, err, ErrCorruptCart)
}

func TestNewLine_SnapshotsProduct(t *testing.T) {
	p := product.Product{ID: "p1", Name: "Tote", Slug: "tote", Price: 2500, Images: []string{"a.jpg", "b.jpg"}}

	l := NewLine(p, "Black", "Large", 2)

	assert.Equal(t, Line{ProductID: "p1", Name: "Tote", Slug: "tote", Price: 2500, Image: "a.jpg", Color: "Black", Size: "Large", Quantity: 2}, l)
	assert.Equal(t, 5000, l.Subtotal())
}
