package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hanbit-dev/fleamart/internal/domain"
	"github.com/hanbit-dev/fleamart/internal/service"
)

// ProductHandler handles product listing, search, and lifecycle requests.
type ProductHandler struct {
	catalog *service.CatalogStore
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(catalog *service.CatalogStore) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// HandleList returns every product visible to the current viewer.
// GET /api/products
// Response: {"products": [...]}
func (h *ProductHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products": toProductDTOs(products),
	})
}

// HandleSearch filters the visible catalog by a query term.
// GET /api/products/search?q=...
// Response: {"products": [...]}
func (h *ProductHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products": toProductDTOs(products),
	})
}

// HandleCreate registers a new listing from a multipart form with title,
// price, description, and image fields.
// POST /api/products
// Response: {"product": {...}}
func (h *ProductHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	// 6MB form ceiling: the image itself is capped at 5MB downstream.
	if err := r.ParseMultipartForm(6 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or oversized form.")
		return
	}

	price, err := strconv.ParseInt(r.FormValue("price"), 10, 64)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Price must be a whole number.")
		return
	}

	var image []byte
	if file, _, err := r.FormFile("image"); err == nil {
		defer file.Close()
		image, err = io.ReadAll(file)
		if err != nil {
			slog.Error("read upload", "error", err)
			writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
			return
		}
	}

	product, err := h.catalog.Register(r.Context(), service.RegisterProductInput{
		Title:       r.FormValue("title"),
		Price:       price,
		Description: r.FormValue("description"),
		Image:       image,
		CSRFToken:   r.Header.Get(csrfHeader),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"product": toProductDTO(product),
	})
}

// HandleView returns a single product and counts the view.
// GET /api/products/{id}
// Response: {"product": {...}}
func (h *ProductHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product id.")
		return
	}

	product, err := h.catalog.View(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"product": toProductDTO(product),
	})
}

// HandleMarkSold transitions a listing to sold.
// POST /api/products/{id}/sold
// Response: {"product": {...}}
func (h *ProductHandler) HandleMarkSold(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.catalog.MarkSold)
}

// HandleRemove soft-deletes a listing.
// POST /api/products/{id}/remove
// Response: {"product": {...}}
func (h *ProductHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.catalog.Remove)
}

func (h *ProductHandler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, int64) (*domain.Product, error)) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product id.")
		return
	}

	product, err := op(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"product": toProductDTO(product),
	})
}

// HandleImage serves stored image bytes with the sniffed content type.
// GET /api/images/{ref...}
func (h *ProductHandler) HandleImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := h.catalog.Image(r.Context(), r.PathValue("ref"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
