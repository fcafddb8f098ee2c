package api

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dearher/bagstore/internal/api/middleware"
	"github.com/dearher/bagstore/internal/catalog"
	"github.com/dearher/bagstore/internal/checkout"
	"github.com/dearher/bagstore/internal/domain/cart"
	"github.com/dearher/bagstore/internal/domain/product"
	"github.com/dearher/bagstore/internal/observability/metrics"
	"github.com/dearher/bagstore/internal/query"
)

// Handlers serves the public shop: catalog, cart and checkout.
type Handlers struct {
	queryHandler *query.Handler
	carts        *cart.Service
	checkout     *checkout.Builder
	hub          *catalog.Hub
	baseURL      string
	metrics      *metrics.Metrics
	log          *zap.Logger
}

func NewHandlers(
	queryHandler *query.Handler,
	carts *cart.Service,
	builder *checkout.Builder,
	hub *catalog.Hub,
	baseURL string,
	m *metrics.Metrics,
	log *zap.Logger,
) *Handlers {
	return &Handlers{
		queryHandler: queryHandler,
		carts:        carts,
		checkout:     builder,
		hub:          hub,
		baseURL:      strings.TrimRight(baseURL, "/"),
		metrics:      m,
		log:          log.Named("api"),
	}
}

// Product Handlers

func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	cfg, err := parseFilter(r)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	products, err := h.queryHandler.ListProducts(r.Context(), cfg)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil || limit < 0 {
		respondJSONError(w, "limit must be a non-negative integer", http.StatusBadRequest)
		return
	}
	products, err := h.queryHandler.FeaturedProducts(r.Context(), limit)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.queryHandler.GetProductBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) CatalogOptions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.Options())
}

// Cart Handlers

const errColorUnavailable = "Color is not available for this product"

// colorAvailable reports whether color may be ordered for p. Products
// without a palette accept any color.
func colorAvailable(p *product.Product, color string) bool {
	return len(p.Colors) == 0 || p.HasColor(color)
}

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.View(r.Context(), middleware.VisitorID(r.Context()))
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// AddCartItem snapshots the product's current name, price and image into
// the cart. Quantity defaults to 1.
func (h *Handlers) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProductID == "" {
		respondDomainError(w, h.log, cart.ErrInvalidProduct)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		respondDomainError(w, h.log, cart.ErrInvalidQuantity)
		return
	}

	p, err := h.queryHandler.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	if !colorAvailable(p, req.Color) {
		respondJSONError(w, errColorUnavailable, http.StatusBadRequest)
		return
	}

	view, err := h.carts.Add(r.Context(), middleware.VisitorID(r.Context()), cart.NewLine(*p, req.Color, req.Size, req.Quantity))
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	h.metrics.CartMutations.WithLabelValues("add").Inc()
	respondJSON(w, http.StatusOK, view)
}

// UpdateCartItem sets a line's quantity. Quantities below 1 leave the
// cart unchanged.
func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProductID == "" {
		respondDomainError(w, h.log, cart.ErrInvalidProduct)
		return
	}

	view, err := h.carts.UpdateQuantity(r.Context(), middleware.VisitorID(r.Context()), req.ProductID, req.Color, req.Quantity)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	h.metrics.CartMutations.WithLabelValues("update").Inc()
	respondJSON(w, http.StatusOK, view)
}

func (h *Handlers) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("productId")
	if productID == "" {
		respondDomainError(w, h.log, cart.ErrInvalidProduct)
		return
	}

	view, err := h.carts.Remove(r.Context(), middleware.VisitorID(r.Context()), productID, r.URL.Query().Get("color"))
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	h.metrics.CartMutations.WithLabelValues("remove").Inc()
	respondJSON(w, http.StatusOK, view)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.Clear(r.Context(), middleware.VisitorID(r.Context()))
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	h.metrics.CartMutations.WithLabelValues("clear").Inc()
	respondJSON(w, http.StatusOK, view)
}

// Checkout Handlers

type checkoutResponse struct {
	URL string `json:"url"`
}

func (h *Handlers) CartCheckout(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.View(r.Context(), middleware.VisitorID(r.Context()))
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	if len(view.Items) == 0 {
		respondJSONError(w, "Cart is empty", http.StatusBadRequest)
		return
	}
	h.metrics.CheckoutLinks.WithLabelValues("cart").Inc()
	respondJSON(w, http.StatusOK, checkoutResponse{URL: h.checkout.CartLink(view.Items)})
}

func (h *Handlers) ProductCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slug  string `json:"slug"`
		Color string `json:"color"`
		Size  string `json:"size"`
	}
	if err := decodeJSON(w, r, &req); err != nil || req.Slug == "" {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.queryHandler.GetProductBySlug(r.Context(), req.Slug)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	if req.Color != "" && !colorAvailable(p, req.Color) {
		respondJSONError(w, errColorUnavailable, http.StatusBadRequest)
		return
	}
	size := req.Size
	if size == "" {
		size = p.Size
	}

	link := h.checkout.SingleItemLink(checkout.Selection{
		ProductName: p.Name,
		Price:       p.Price,
		Color:       req.Color,
		Size:        size,
		ProductURL:  h.baseURL + "/product/" + p.Slug,
		ImageURL:    p.PrimaryImage(),
	})
	h.metrics.CheckoutLinks.WithLabelValues("single").Inc()
	respondJSON(w, http.StatusOK, checkoutResponse{URL: link})
}

// Health

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"subscribers": h.hub.Subscribers(),
	})
}

// Helper functions

func parseFilter(r *http.Request) (product.FilterConfig, error) {
	q := r.URL.Query()
	minPrice, err := queryInt(r, "minPrice")
	if err != nil {
		return product.FilterConfig{}, errBadParam("minPrice")
	}
	maxPrice, err := queryInt(r, "maxPrice")
	if err != nil {
		return product.FilterConfig{}, errBadParam("maxPrice")
	}
	return product.FilterConfig{
		PriceRange:  product.PriceRange{Min: minPrice, Max: maxPrice},
		PatternType: q.Get("patternType"),
		Color:       q.Get("color"),
		SortBy:      product.SortKey(q.Get("sortBy")),
	}, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

type errBadParam string

func (e errBadParam) Error() string {
	return string(e) + " must be an integer"
}
