package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/nexcell-pos/nexcell-pos/internal/authz"
	"github.com/nexcell-pos/nexcell-pos/internal/platform/httpx"
	"github.com/nexcell-pos/nexcell-pos/internal/shared"
)

// Handler wires HTTP endpoints for the phone catalog.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	guard    authz.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), guard: guard}
}

// MountRoutes registers catalog routes. Every authenticated worker can
// browse stock; only managers and the owner change it.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Authenticated()))
		r.Get("/", h.list)
		r.Get("/low-stock", h.lowStock)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.AnyOf(authz.RoleManager)))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

type phoneRequest struct {
	SKU           string  `json:"sku" validate:"required,max=64"`
	Brand         string  `json:"brand" validate:"required,max=100"`
	Model         string  `json:"model" validate:"required,max=100"`
	IMEI          *string `json:"imei"`
	Condition     string  `json:"condition" validate:"required,oneof=NEW USED REFURBISHED"`
	PurchasePrice string  `json:"purchase_price" validate:"required"`
	SalePrice     string  `json:"sale_price" validate:"required"`
	StockQty      int     `json:"stock_qty" validate:"gte=0"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.FiltersFromQuery(r)
	phones, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list phones", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"phones":     phones,
		"pagination": shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	threshold, _ := strconv.Atoi(r.URL.Query().Get("threshold"))
	if threshold <= 0 {
		threshold = 3
	}
	phones, err := h.service.LowStock(r.Context(), threshold)
	if err != nil {
		h.logger.Error("low stock", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"phones": phones, "threshold": threshold})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	phone, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, phone)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	phone, ok := h.decode(w, r)
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), phone)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	phone, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := h.service.Update(r.Context(), id, phone); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Phone, bool) {
	var req phoneRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return Phone{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return Phone{}, false
	}
	purchase, err := decimal.NewFromString(req.PurchasePrice)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "purchase_price must be a decimal number")
		return Phone{}, false
	}
	sale, err := decimal.NewFromString(req.SalePrice)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "sale_price must be a decimal number")
		return Phone{}, false
	}
	return Phone{
		SKU:           req.SKU,
		Brand:         req.Brand,
		Model:         req.Model,
		IMEI:          req.IMEI,
		Condition:     Condition(req.Condition),
		PurchasePrice: purchase.Round(2),
		SalePrice:     sale.Round(2),
		StockQty:      req.StockQty,
	}, true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid ID")
		return 0, false
	}
	return id, true
}

