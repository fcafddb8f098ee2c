package api

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/dearher/bagstore/internal/api/middleware"
	"github.com/dearher/bagstore/internal/command"
	"github.com/dearher/bagstore/internal/domain/product"
	"github.com/dearher/bagstore/internal/guard"
	"github.com/dearher/bagstore/internal/infrastructure/upload"
	"github.com/dearher/bagstore/internal/query"
)

// AdminHandlers serves catalog management. Every route is wrapped by the
// admin guard in the router.
type AdminHandlers struct {
	cmdHandler     *command.Handler
	queryHandler   *query.Handler
	guard          *guard.Guard
	maxUploadBytes int64
	log            *zap.Logger
}

func NewAdminHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, g *guard.Guard, maxUploadBytes int64, log *zap.Logger) *AdminHandlers {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &AdminHandlers{
		cmdHandler:     cmdHandler,
		queryHandler:   queryHandler,
		guard:          g,
		maxUploadBytes: maxUploadBytes,
		log:            log.Named("admin"),
	}
}

func (h *AdminHandlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.queryHandler.ListAllProducts(r.Context())
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *AdminHandlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.queryHandler.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *AdminHandlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in product.Input
	if err := decodeJSON(w, r, &in); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.cmdHandler.CreateProduct(r.Context(), command.CreateProduct{Input: in})
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	h.log.Info("admin created product", zap.String("uid", middleware.GetUserID(r.Context())), zap.String("product_id", p.ID))
	respondJSON(w, http.StatusCreated, p)
}

func (h *AdminHandlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var patch product.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.cmdHandler.UpdateProduct(r.Context(), command.UpdateProduct{ProductID: r.PathValue("id"), Patch: patch})
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	h.log.Info("admin updated product", zap.String("uid", middleware.GetUserID(r.Context())), zap.String("product_id", p.ID))
	respondJSON(w, http.StatusOK, p)
}

func (h *AdminHandlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.cmdHandler.DeleteProduct(r.Context(), command.DeleteProduct{ProductID: r.PathValue("id")}); err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	h.log.Info("admin deleted product", zap.String("uid", middleware.GetUserID(r.Context())), zap.String("product_id", r.PathValue("id")))
	respondJSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}

func (h *AdminHandlers) ToggleFeatured(w http.ResponseWriter, r *http.Request) {
	var cmd command.ToggleFeatured
	if err := decodeJSON(w, r, &cmd); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd.ProductID = r.PathValue("id")

	p, err := h.cmdHandler.ToggleFeatured(r.Context(), cmd)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// UploadImages accepts multipart "files" and an optional "folder" and
// returns the stored URLs in upload order.
func (h *AdminHandlers) UploadImages(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondJSONError(w, "Upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		respondJSONError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	images := make([]upload.Image, 0, len(r.MultipartForm.File["files"]))
	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			respondJSONError(w, "Invalid multipart form", http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			respondJSONError(w, "Invalid multipart form", http.StatusBadRequest)
			return
		}
		images = append(images, upload.Image{Filename: fh.Filename, Data: data})
	}

	urls, err := h.cmdHandler.UploadImages(r.Context(), command.UploadImages{
		Folder: r.FormValue("folder"),
		Images: images,
	})
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"urls": urls})
}

// Verify answers whether a token belongs to an admin. The token comes from
// the body, falling back to the request's own session.
func (h *AdminHandlers) Verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	_ = decodeJSON(w, r, &req)
	token := req.Token
	if token == "" {
		token = middleware.ExtractToken(r)
	}
	if token == "" {
		respondJSONError(w, "No token provided", http.StatusUnauthorized)
		return
	}

	d := h.guard.Resolve(r.Context(), token)
	switch d.State {
	case guard.StateAuthenticated:
		respondJSON(w, http.StatusOK, map[string]string{
			"uid":   d.Session.UserID,
			"email": d.Session.Email,
			"role":  d.Role,
		})
	case guard.StateNonAdmin:
		respondJSONError(w, "Not an admin", http.StatusForbidden)
	default:
		respondJSONError(w, "Invalid token", http.StatusUnauthorized)
	}
}
