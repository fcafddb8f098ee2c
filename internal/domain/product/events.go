package product

import "time"

const (
	EventProductCreated         = "ProductCreated"
	EventProductUpdated         = "ProductUpdated"
	EventProductDeleted         = "ProductDeleted"
	EventProductFeaturedToggled = "ProductFeaturedToggled"
)

// Changed is published on every catalog write. Consumers treat it as a
// signal to re-read the catalog, not as a delta.
type Changed struct {
	EventType  string    `json:"event_type"`
	ProductID  string    `json:"product_id"`
	Slug       string    `json:"slug,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewChanged(eventType, productID, slug string) Changed {
	return Changed{
		EventType:  eventType,
		ProductID:  productID,
		Slug:       slug,
		OccurredAt: time.Now().UTC(),
	}
}
