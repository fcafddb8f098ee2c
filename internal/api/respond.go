package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/dearher/bagstore/internal/auth"
	"github.com/dearher/bagstore/internal/domain/cart"
	"github.com/dearher/bagstore/internal/domain/product"
	"github.com/dearher/bagstore/internal/infrastructure/upload"
)

const maxJSONBody = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v)
}

// respondDomainError maps known sentinels to statuses. Anything else is
// logged and answered with a generic 500.
func respondDomainError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, product.ErrProductNotFound):
		respondJSONError(w, "Product not found", http.StatusNotFound)
	case errors.Is(err, product.ErrSlugTaken):
		respondJSONError(w, err.Error(), http.StatusConflict)
	case product.IsValidationError(err),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidProduct),
		errors.Is(err, upload.ErrNoValidImages):
		respondJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondJSONError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, upload.ErrUploadTimeout):
		respondJSONError(w, err.Error(), http.StatusGatewayTimeout)
	case errors.Is(err, cart.ErrCartUnavailable):
		log.Warn("cart unavailable", zap.Error(err))
		respondJSONError(w, "Cart is temporarily unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, upload.ErrNotConfigured):
		respondJSONError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		log.Error("request failed", zap.Error(err))
		respondJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}
