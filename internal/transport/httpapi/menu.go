package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/kelnar/internal/menushare"
	"github.com/vladislavdragonenkov/kelnar/internal/service/catalog"
)

type shareResponse struct {
	Data   string   `json:"data"`
	URL    string   `json:"url"`
	Unsafe []string `json:"unsafe"`
}

type importRequest struct {
	Link string `json:"link"`
}

type importResponse struct {
	menushare.ImportState
	SkippedLabels []string `json:"skippedLabels"`
}

func newImportResponse(state menushare.ImportState) importResponse {
	return importResponse{ImportState: state, SkippedLabels: state.SkippedLabels()}
}

func (h *Handler) shareMenu(w http.ResponseWriter, _ *http.Request) {
	share := h.catalog.Share()
	if share.Unsafe == nil {
		share.Unsafe = []string{}
	}
	respond(w, http.StatusOK, shareResponse{Data: share.Data, URL: share.URL, Unsafe: share.Unsafe})
}

func (h *Handler) parseImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decode(w, r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	state, err := h.catalog.ParseImport(req.Link)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respond(w, http.StatusOK, newImportResponse(state))
}

func (h *Handler) pendingImport(w http.ResponseWriter, _ *http.Request) {
	state, ok := h.catalog.PendingImport()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respond(w, http.StatusOK, newImportResponse(state))
}

func (h *Handler) commitImport(w http.ResponseWriter, r *http.Request) {
	action, err := catalog.ParseImportAction(chi.URLParam(r, "action"))
	if err != nil {
		h.respondError(w, badRequest("%v", err))
		return
	}
	result, err := h.catalog.CommitImport(r.Context(), action)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}
