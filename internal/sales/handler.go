package sales

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/nexcell-pos/nexcell-pos/internal/authz"
	"github.com/nexcell-pos/nexcell-pos/internal/ledger"
	"github.com/nexcell-pos/nexcell-pos/internal/platform/httpx"
	"github.com/nexcell-pos/nexcell-pos/internal/shared"
)

// Handler wires HTTP endpoints for sales.
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

// MountRoutes registers sale routes. Recording and browsing sales is the
// cashier's day job, so the whole group is cashier and above.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.AnyOf(authz.RoleCashier)))
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
}

type lineRequest struct {
	PhoneID   int64  `json:"phone_id" validate:"required,gt=0"`
	Qty       int    `json:"qty" validate:"required,gt=0"`
	UnitPrice string `json:"unit_price" validate:"required"`
}

type createSaleRequest struct {
	CustomerID int64         `json:"customer_id" validate:"required,gt=0"`
	Lines      []lineRequest `json:"lines" validate:"required,min=1,dive"`
	Note       string        `json:"note" validate:"max=255"`
	PaidNow    string        `json:"paid_now"`
	Method     string        `json:"method" validate:"omitempty,oneof=CASH CARD TRANSFER MOBILE"`
}

type saleResponse struct {
	Sale
	Status ledger.PaymentStatus `json:"status"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := CreateInput{
		CustomerID: req.CustomerID,
		Note:       req.Note,
		Method:     req.Method,
		PaidNow:    decimal.Zero,
	}
	if principal := authz.PrincipalFromRequest(r); principal != nil {
		input.ActorID = principal.WorkerID
	}
	for _, line := range req.Lines {
		price, err := decimal.NewFromString(line.UnitPrice)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unit_price must be a decimal number")
			return
		}
		input.Lines = append(input.Lines, LineInput{PhoneID: line.PhoneID, Qty: line.Qty, UnitPrice: price})
	}
	if req.PaidNow != "" {
		paid, err := decimal.NewFromString(req.PaidNow)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "paid_now must be a decimal number")
			return
		}
		if paid.IsPositive() && req.Method == "" {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "method is required when paid_now is set")
			return
		}
		input.PaidNow = paid
	}

	sale, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, saleResponse{Sale: sale, Status: sale.Status()})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid ID")
		return
	}
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, saleResponse{Sale: sale, Status: sale.Status()})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.FiltersFromQuery(r)
	items, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list sales", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]saleResponse, 0, len(items))
	for _, sale := range items {
		out = append(out, saleResponse{Sale: sale, Status: sale.Status()})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"sales":      out,
		"pagination": shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrEmptySale):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ledger.ErrOverpayment), errors.Is(err, ledger.ErrInvalidAmount):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
