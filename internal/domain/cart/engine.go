package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// Engine holds one cart's lines. The slot is read once in Open; every
// mutation writes the full line list back. An Engine is not safe for
// concurrent use.
type Engine struct {
	slot    Slot
	log     *zap.Logger
	lines   []Line
	loadErr error
}

// Open loads the cart from slot. A missing or corrupt slot gives an empty
// cart and the cause is logged. When the slot cannot be read at all the
// engine starts empty but never saves, so the stored cart is left intact;
// Err reports the failure.
func Open(ctx context.Context, slot Slot, log *zap.Logger) *Engine {
	e := &Engine{slot: slot, log: log, lines: []Line{}}

	data, ok, err := slot.Load(ctx)
	if err != nil {
		log.Warn("cart load failed, saving disabled", zap.Error(err))
		e.loadErr = err
		return e
	}
	if !ok {
		return e
	}
	lines, err := Decode(data)
	if err != nil {
		log.Warn("discarding corrupt cart", zap.Error(err))
		return e
	}
	e.lines = lines
	return e
}

// Add merges into the line with the same (productId, color) in place, or
// appends a new line. Quantity is not validated here.
func (e *Engine) Add(ctx context.Context, line Line) {
	if i := e.index(line.ProductID, line.Color); i >= 0 {
		e.lines[i].Quantity += line.Quantity
	} else {
		e.lines = append(e.lines, line)
	}
	e.persist(ctx)
}

// Remove deletes every line keyed (productID, color).
func (e *Engine) Remove(ctx context.Context, productID, color string) {
	e.lines = slices.DeleteFunc(e.lines, func(l Line) bool { return l.matches(productID, color) })
	e.persist(ctx)
}

// UpdateQuantity sets the quantity of matching lines. Values below 1 are
// ignored; removal goes through Remove.
func (e *Engine) UpdateQuantity(ctx context.Context, productID, color string, quantity int) {
	if quantity < 1 {
		return
	}
	for i := range e.lines {
		if e.lines[i].matches(productID, color) {
			e.lines[i].Quantity = quantity
		}
	}
	e.persist(ctx)
}

func (e *Engine) Clear(ctx context.Context) {
	e.lines = []Line{}
	e.persist(ctx)
}

// Lines returns a copy of the cart in insertion order.
func (e *Engine) Lines() []Line {
	return slices.Clone(e.lines)
}

func (e *Engine) TotalItems() int {
	total := 0
	for _, l := range e.lines {
		total += l.Quantity
	}
	return total
}

func (e *Engine) TotalPrice() int {
	total := 0
	for _, l := range e.lines {
		total += l.Subtotal()
	}
	return total
}

// Err returns the slot read error from Open, if any.
func (e *Engine) Err() error {
	return e.loadErr
}

func (e *Engine) index(productID, color string) int {
	return slices.IndexFunc(e.lines, func(l Line) bool { return l.matches(productID, color) })
}

func (e *Engine) persist(ctx context.Context) {
	if e.loadErr != nil {
		e.log.Warn("cart not saved, slot was unreadable")
		return
	}
	data, err := Encode(e.lines)
	if err != nil {
		e.log.Error("cart encode failed", zap.Error(err))
		return
	}
	if err := e.slot.Save(ctx, data); err != nil {
		e.log.Error("cart save failed", zap.Error(err))
	}
}

// Encode serializes lines as a JSON array.
func Encode(lines []Line) ([]byte, error) {
	if lines == nil {
		lines = []Line{}
	}
	return json.Marshal(lines)
}

// Decode parses a stored cart. Anything other than a JSON array of
// well-formed lines is rejected as a whole.
func Decode(data []byte) ([]Line, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var lines []Line
	if err := dec.Decode(&lines); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCart, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrCorruptCart)
	}
	if lines == nil {
		return nil, fmt.Errorf("%w: not an array", ErrCorruptCart)
	}
	for i, l := range lines {
		if l.ProductID == "" {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptCart, i, ErrInvalidProduct)
		}
		if l.Quantity < 1 {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptCart, i, ErrInvalidQuantity)
		}
	}
	return lines, nil
}
