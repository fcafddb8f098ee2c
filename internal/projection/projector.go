package projection

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/dearher/bagstore/internal/domain/product"
)

// Refresher reloads the cached catalog. *catalog.Hub satisfies it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Projector turns catalog change events from the broker into snapshot
// refreshes for every subscriber in this process.
type Projector struct {
	catalog Refresher
	log     *zap.Logger
	onApply func(result string)
}

func NewProjector(catalog Refresher, log *zap.Logger) *Projector {
	return &Projector{catalog: catalog, log: log.Named("projector"), onApply: func(string) {}}
}

// OnApply registers a hook called with "ok", "error" or "skipped" after
// each event.
func (p *Projector) OnApply(fn func(result string)) {
	p.onApply = fn
}

func (p *Projector) HandleEvent(ctx context.Context, key, value []byte) error {
	var event product.Changed
	if err := json.Unmarshal(value, &event); err != nil {
		p.onApply("error")
		return fmt.Errorf("decode catalog event: %w", err)
	}

	p.log.Debug("received event", zap.String("event", event.EventType), zap.String("product_id", event.ProductID))

	switch event.EventType {
	case product.EventProductCreated,
		product.EventProductUpdated,
		product.EventProductDeleted,
		product.EventProductFeaturedToggled:
		if err := p.catalog.Refresh(ctx); err != nil {
			p.onApply("error")
			return fmt.Errorf("refresh after %s: %w", event.EventType, err)
		}
		p.onApply("ok")
	default:
		p.log.Warn("ignoring unknown event", zap.String("event", event.EventType))
		p.onApply("skipped")
	}
	return nil
}
