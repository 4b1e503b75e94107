// Package httpapi — REST API над меню и заказами.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kelnar/internal/domain"
	"github.com/vladislavdragonenkov/kelnar/internal/menushare"
	"github.com/vladislavdragonenkov/kelnar/internal/service/catalog"
	"github.com/vladislavdragonenkov/kelnar/internal/service/ordering"
)

const maxBodyBytes = 1 << 20

// Handler связывает HTTP-маршруты с сервисами меню и заказов.
type Handler struct {
	catalog  *catalog.Service
	ordering *ordering.Service
	logger   *log.Entry
}

func NewHandler(catalogService *catalog.Service, orderingService *ordering.Service, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	return &Handler{catalog: catalogService, ordering: orderingService, logger: logger}
}

// Router возвращает готовый chi-роутер со всеми маршрутами API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes вешает маршруты API на переданный роутер.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.listProducts)         // GET    /api/v1/products?q=pizza
		r.Post("/", h.createProduct)       // POST   /api/v1/products
		r.Delete("/", h.deleteAllProducts) // DELETE /api/v1/products
		r.Get("/{id}", h.getProduct)
		r.Put("/{id}", h.updateProduct)
		r.Delete("/{id}", h.deleteProduct)
	})

	r.Route("/api/v1/menu", func(r chi.Router) {
		r.Get("/share", h.shareMenu)
		r.Get("/import", h.pendingImport)
		r.Post("/import", h.parseImport)
		r.Post("/import/{action}", h.commitImport) // cancel | overwrite | merge
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Get("/", h.listOrders) // GET /api/v1/orders?status=active|completed
		r.Post("/", h.placeOrder)
		r.Get("/{id}", h.getOrder)
		r.Put("/{id}", h.replaceOrder)
		r.Delete("/{id}", h.deleteOrder)
		r.Post("/{id}/complete", h.completeOrder)
		r.Post("/{id}/reopen", h.reopenOrder)
		r.Patch("/{id}/items/{itemID}", h.updateItemQuantity)
	})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		entry := h.logger.WithFields(log.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		})
		if ww.Status() >= http.StatusInternalServerError {
			entry.Warn("http request failed")
			return
		}
		entry.Debug("http request")
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// respondError переводит доменную ошибку в HTTP-статус.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).Error("request failed")
	}
	respond(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var badRequest *badRequestError
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsValidation(err),
		errors.Is(err, menushare.ErrNoMenuData),
		errors.As(err, &badRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrImportNotPending):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type badRequestError struct{ err error }

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(format string, args ...any) error {
	return &badRequestError{err: fmt.Errorf(format, args...)}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("decode request body: %v", err)
	}
	return nil
}
