package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/kelnar/internal/service/catalog"
)

// productRequest принимает цену и числом, и строкой: "12.5" из поля формы.
type productRequest struct {
	Name        string      `json:"name"`
	Price       json.Number `json:"price"`
	Description string      `json:"description"`
}

func (req productRequest) form(id string) catalog.ProductForm {
	return catalog.ProductForm{
		ID:          id,
		Name:        req.Name,
		Price:       req.Price.String(),
		Description: req.Description,
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	respond(w, http.StatusOK, newProductViews(h.ordering.FilterProducts(query)))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respond(w, http.StatusOK, newProductView(product))
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decode(w, r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	product, err := h.catalog.Save(r.Context(), req.form(""))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, newProductView(product))
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decode(w, r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	product, err := h.catalog.Save(r.Context(), req.form(chi.URLParam(r, "id")))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respond(w, http.StatusOK, newProductView(product))
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteAllProducts(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteAll(r.Context()); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
