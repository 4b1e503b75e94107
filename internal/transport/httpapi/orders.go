package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/kelnar/internal/service/ordering"
)

type orderItemRequest struct {
	ProductID      string   `json:"productId"`
	Quantity       int      `json:"quantity"`
	Customizations []string `json:"customizations"`
}

type orderRequest struct {
	TableNumber string             `json:"tableNumber"`
	Items       []orderItemRequest `json:"items"`
}

func (req orderRequest) items() []ordering.ItemInput {
	out := make([]ordering.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		out = append(out, ordering.ItemInput{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			Customizations: item.Customizations,
		})
	}
	return out
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func parseStatusFilter(raw string) (ordering.StatusFilter, error) {
	switch filter := ordering.StatusFilter(raw); filter {
	case ordering.FilterAll, ordering.FilterActive, ordering.FilterCompleted:
		return filter, nil
	default:
		return "", badRequest("unknown status filter %q", raw)
	}
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := parseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respond(w, http.StatusOK, newOrderViews(h.ordering.List(filter)))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.ordering.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respond(w, http.StatusOK, newOrderView(order))
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decode(w, r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	order, err := h.ordering.PlaceOrder(r.Context(), req.TableNumber, req.items())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, newOrderView(order))
}

func (h *Handler) replaceOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decode(w, r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	order, err := h.ordering.ReplaceOrder(r.Context(), chi.URLParam(r, "id"), req.TableNumber, req.items())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respond(w, http.StatusOK, newOrderView(order))
}

func (h *Handler) updateItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := decode(w, r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	order, err := h.ordering.UpdateItemQuantity(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemID"), req.Quantity)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respond(w, http.StatusOK, newOrderView(order))
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.ordering.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) completeOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.ordering.MarkCompleted(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respond(w, http.StatusOK, newOrderView(order))
}

func (h *Handler) reopenOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.ordering.Reopen(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respond(w, http.StatusOK, newOrderView(order))
}
