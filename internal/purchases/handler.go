package purchases

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

// Handler wires HTTP endpoints for purchases.
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

// MountRoutes registers purchase routes. Stock intake commits shop money,
// so recording purchases is manager and above; browsing stays cashier level.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.AnyOf(authz.RoleCashier)))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.AnyOf(authz.RoleManager)))
		r.Post("/", h.create)
	})
}

type lineRequest struct {
	PhoneID  int64  `json:"phone_id" validate:"required,gt=0"`
	Qty      int    `json:"qty" validate:"required,gt=0"`
	UnitCost string `json:"unit_cost" validate:"required"`
}

type createPurchaseRequest struct {
	SupplierID int64         `json:"supplier_id" validate:"required,gt=0"`
	Lines      []lineRequest `json:"lines" validate:"required,min=1,dive"`
	Note       string        `json:"note" validate:"max=255"`
	PaidNow    string        `json:"paid_now"`
	Method     string        `json:"method" validate:"omitempty,oneof=CASH CARD TRANSFER MOBILE"`
}

type purchaseResponse struct {
	Purchase
	Status ledger.PaymentStatus `json:"status"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createPurchaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := CreateInput{
		SupplierID: req.SupplierID,
		Note:       req.Note,
		Method:     req.Method,
		PaidNow:    decimal.Zero,
	}
	if principal := authz.PrincipalFromRequest(r); principal != nil {
		input.ActorID = principal.WorkerID
	}
	for _, line := range req.Lines {
		cost, err := decimal.NewFromString(line.UnitCost)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unit_cost must be a decimal number")
			return
		}
		input.Lines = append(input.Lines, LineInput{PhoneID: line.PhoneID, Qty: line.Qty, UnitCost: cost})
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

	purchase, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, purchaseResponse{Purchase: purchase, Status: purchase.Status()})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid ID")
		return
	}
	purchase, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, purchaseResponse{Purchase: purchase, Status: purchase.Status()})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.FiltersFromQuery(r)
	items, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list purchases", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]purchaseResponse, 0, len(items))
	for _, purchase := range items {
		out = append(out, purchaseResponse{Purchase: purchase, Status: purchase.Status()})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"purchases":  out,
		"pagination": shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyPurchase):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ledger.ErrOverpayment), errors.Is(err, ledger.ErrInvalidAmount):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
