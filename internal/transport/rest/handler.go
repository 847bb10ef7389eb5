// Package rest exposes the catalog engine over HTTP.
package rest

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/abgdnv/productcatalog/internal/diagnostics"
	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/abgdnv/productcatalog/internal/product"
	"github.com/abgdnv/productcatalog/internal/service"
	"github.com/abgdnv/productcatalog/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// Diagnostics exposes the aggregated catalog statistics.
type Diagnostics interface {
	Report() diagnostics.Report
	Reset()
}

type Handler struct {
	service     service.CatalogService
	diagnostics Diagnostics
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewHandler creates a new Handler. A nil diagnostics disables the diagnostics routes.
func NewHandler(service service.CatalogService, diagnostics Diagnostics, logger *slog.Logger) *Handler {
	return &Handler{
		service:     service,
		diagnostics: diagnostics,
		validate:    validator.New(),
		logger:      logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes of the catalog.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.FindProducts)
			r.Post("/", h.Create)

			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", h.FindByName)
				r.Delete("/", h.Delete)
				r.Post("/purchase", h.Purchase)
			})
		})
		r.Get("/product-count", h.Count)
		r.Get("/categories", h.Categories)
		r.Get("/tags", h.Tags)

		if h.diagnostics != nil {
			r.Route("/diagnostics", func(r chi.Router) {
				r.Get("/", h.DiagnosticsReport)
				r.Get("/summary", h.DiagnosticsSummary)
				r.Post("/reset", h.DiagnosticsReset)
			})
		}
	})

	r.Get("/healthz", h.HealthCheck)
}

// ProductCreateDto is the request body of product creation.
type ProductCreateDto struct {
	Name     string   `json:"name" validate:"required,max=200"`
	Quantity int      `json:"quantity" validate:"gte=0"`
	Category string   `json:"category" validate:"max=100"`
	Tags     []string `json:"tags" validate:"omitempty,max=50,dive,max=100"`
}

// PurchaseDto is the request body of a purchase.
type PurchaseDto struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

// PurchaseResponse reports the stock levels around a purchase.
type PurchaseResponse struct {
	Product   string `json:"product"`
	Purchased int    `json:"purchased"`
	Original  int    `json:"original"`
	Remaining int    `json:"remaining"`
}

// FindProducts lists the catalog. The category query parameter searches by category,
// one or more tag parameters search by tags; without filters every product is returned.
func (h *Handler) FindProducts(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	query := r.URL.Query()
	category, byCategory := query["category"]
	tags, byTags := query["tag"]

	mLogger.DebugContext(r.Context(), "Received request to find products", "category", category, "tags", tags)
	var (
		list []product.Product
		err  error
	)
	switch {
	case byCategory && byTags:
		web.RespondError(w, mLogger, http.StatusBadRequest, "category and tag filters cannot be combined")
		return
	case byCategory:
		list, err = h.service.SearchByCategory(r.Context(), category[0])
	case len(tags) == 1:
		list, err = h.service.SearchByTag(r.Context(), tags[0])
	case byTags:
		list, err = h.service.SearchByTags(r.Context(), tags)
	default:
		list, err = h.service.ListProductsByQuantity(r.Context())
	}
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// Create handles the creation of a new product.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var dto ProductCreateDto
	if !web.DecodeAndValidate(w, r, mLogger, h.validate, &dto) {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to create product", "product", dto.Name)

	created, err := h.service.AddProduct(r.Context(), dto.Name, dto.Quantity, dto.Category, dto.Tags)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", "Name", created.Name)
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

// FindByName retrieves a product by its name.
func (h *Handler) FindByName(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name, ok := productName(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find product by name", "Name", name)
	found, err := h.service.GetProduct(r.Context(), name)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// Delete removes a product and returns it as it was.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name, ok := productName(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to delete product", "Name", name)
	removed, err := h.service.RemoveProduct(r.Context(), name)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", "Name", removed.Name)
	web.RespondJSON(w, mLogger, http.StatusOK, removed)
}

func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name, ok := productName(w, r, mLogger)
	if !ok {
		return
	}
	var dto PurchaseDto
	if !web.DecodeAndValidate(w, r, mLogger, h.validate, &dto) {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to purchase product", "Name", name, "Quantity", dto.Quantity)

	result, err := h.service.PurchaseProduct(r.Context(), name, dto.Quantity)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Product purchased successfully", "Name", result.Product, "Remaining", result.Remaining)
	web.RespondJSON(w, mLogger, http.StatusOK, PurchaseResponse{
		Product:   result.Product,
		Purchased: dto.Quantity,
		Original:  result.Original,
		Remaining: result.Remaining,
	})
}

func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	count, err := h.service.GetProductCount(r.Context())
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]int{"count": count})
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	categories, err := h.service.GetAllCategories(r.Context())
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, categories)
}

func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	tags, err := h.service.GetAllTags(r.Context())
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, tags)
}

func (h *Handler) DiagnosticsReport(w http.ResponseWriter, r *http.Request) {
	web.RespondJSON(w, h.loggerWithReqID(r), http.StatusOK, h.diagnostics.Report())
}

func (h *Handler) DiagnosticsSummary(w http.ResponseWriter, r *http.Request) {
	web.RespondText(w, h.loggerWithReqID(r), http.StatusOK, h.diagnostics.Report().Summary())
}

func (h *Handler) DiagnosticsReset(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	h.diagnostics.Reset()
	mLogger.InfoContext(r.Context(), "Diagnostics reset")
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// productName returns the name path parameter. chi matches routes on the raw path when the
// request has one, so names containing a slash arrive percent-encoded and are unescaped here.
func productName(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, bool) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return name, true
	}
	name, err := url.PathUnescape(name)
	if err != nil {
		logger.WarnContext(r.Context(), "Invalid product name in path", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, "invalid product name in path")
		return "", false
	}
	return name, true
}

// respondServiceError maps catalog errors to HTTP statuses.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch perrors.KindOf(err) {
	case perrors.InvalidArgument:
		logger.WarnContext(r.Context(), "Invalid argument", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, err.Error())
	case perrors.NotFound:
		logger.WarnContext(r.Context(), "Product not found", "error", err)
		web.RespondError(w, logger, http.StatusNotFound, err.Error())
	case perrors.AlreadyExists:
		logger.WarnContext(r.Context(), "Product already exists", "error", err)
		web.RespondError(w, logger, http.StatusConflict, err.Error())
	case perrors.InsufficientQuantity:
		logger.WarnContext(r.Context(), "Insufficient quantity", "error", err)
		body := map[string]any{"error": err.Error()}
		var catalogErr *perrors.Error
		if errors.As(err, &catalogErr) {
			body["available"] = catalogErr.Available
			body["requested"] = catalogErr.Requested
		}
		web.RespondJSON(w, logger, http.StatusConflict, body)
	case perrors.StorageFailure:
		logger.ErrorContext(r.Context(), "Storage failure", "error", err)
		web.RespondError(w, logger, http.StatusServiceUnavailable, "Storage is unavailable")
	default:
		logger.ErrorContext(r.Context(), "Unexpected error", "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, "Internal server error")
	}
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
