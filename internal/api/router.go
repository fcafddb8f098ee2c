package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dearher/bagstore/internal/api/middleware"
	"github.com/dearher/bagstore/internal/guard"
	"github.com/dearher/bagstore/internal/observability/metrics"
)

type RouterConfig struct {
	Visitor middleware.VisitorConfig
}

func NewRouter(
	handlers *Handlers,
	admin *AdminHandlers,
	authHandlers *AuthHandlers,
	g *guard.Guard,
	m *metrics.Metrics,
	cfg RouterConfig,
	log *zap.Logger,
) http.Handler {
	mux := http.NewServeMux()
	visitor := middleware.Visitor(cfg.Visitor)

	// Products
	mux.HandleFunc("GET /api/products", handlers.ListProducts)
	mux.HandleFunc("GET /api/products/featured", handlers.FeaturedProducts)
	mux.HandleFunc("GET /api/products/stream", handlers.StreamProducts)
	mux.HandleFunc("GET /api/products/{slug}", handlers.GetProduct)
	mux.HandleFunc("GET /api/catalog/options", handlers.CatalogOptions)

	// Cart
	mux.Handle("GET /api/cart", visitor(http.HandlerFunc(handlers.GetCart)))
	mux.Handle("DELETE /api/cart", visitor(http.HandlerFunc(handlers.ClearCart)))
	mux.Handle("POST /api/cart/items", visitor(http.HandlerFunc(handlers.AddCartItem)))
	mux.Handle("PATCH /api/cart/items", visitor(http.HandlerFunc(handlers.UpdateCartItem)))
	mux.Handle("DELETE /api/cart/items", visitor(http.HandlerFunc(handlers.RemoveCartItem)))

	// Checkout
	mux.Handle("GET /api/cart/checkout", visitor(http.HandlerFunc(handlers.CartCheckout)))
	mux.HandleFunc("POST /api/checkout/product", handlers.ProductCheckout)

	// Auth
	mux.HandleFunc("POST /api/auth/login", authHandlers.Login)
	mux.HandleFunc("POST /api/auth/logout", authHandlers.Logout)
	mux.Handle("GET /api/auth/session", middleware.OptionalSession(authHandlers.identity)(http.HandlerFunc(authHandlers.Session)))

	// Admin
	requireRead := middleware.RequireAdmin(g, guard.CatalogReadAdmin)
	requireWrite := middleware.RequireAdmin(g, guard.CatalogWrite)
	requireUpload := middleware.RequireAdmin(g, guard.CatalogUpload)

	mux.HandleFunc("POST /api/admin/verify", admin.Verify)
	mux.Handle("GET /api/admin/products", requireRead(http.HandlerFunc(admin.ListProducts)))
	mux.Handle("GET /api/admin/products/{id}", requireRead(http.HandlerFunc(admin.GetProduct)))
	mux.Handle("POST /api/admin/products", requireWrite(http.HandlerFunc(admin.CreateProduct)))
	mux.Handle("PUT /api/admin/products/{id}", requireWrite(http.HandlerFunc(admin.UpdateProduct)))
	mux.Handle("DELETE /api/admin/products/{id}", requireWrite(http.HandlerFunc(admin.DeleteProduct)))
	mux.Handle("POST /api/admin/products/{id}/featured", requireWrite(http.HandlerFunc(admin.ToggleFeatured)))
	mux.Handle("POST /api/admin/uploads", requireUpload(http.HandlerFunc(admin.UploadImages)))

	// Ops
	mux.HandleFunc("GET /healthz", handlers.Healthz)
	mux.Handle("GET /metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))

	return middleware.Chain(mux,
		middleware.Recover(log),
		middleware.Logging(log, m.ObserveHTTP),
	)
}
