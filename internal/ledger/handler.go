package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/nexcell-pos/nexcell-pos/internal/authz"
	"github.com/nexcell-pos/nexcell-pos/internal/platform/httpx"
	"github.com/nexcell-pos/nexcell-pos/internal/shared"
)

// PaymentCounter records reconciliation operations for monitoring.
type PaymentCounter interface {
	CountPayment(action, targetKind string)
}

// Handler wires HTTP endpoints for payments.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	guard    authz.Middleware
	counter  PaymentCounter
}

// NewHandler constructs a Handler instance. counter may be nil.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware, counter PaymentCounter) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		guard:    guard,
		counter:  counter,
	}
}

// MountRoutes registers payment routes. Cashiers and above record payments;
// deleting one is a correction reserved for managers and the owner.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.AnyOf(authz.RoleCashier)))
		r.Post("/", h.applyPayment)
		r.Get("/targets/{kind}/{id}", h.getTarget)
		r.Get("/targets/{kind}/{id}/history", h.listPayments)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.AnyOf(authz.RoleManager)))
		r.Delete("/{id}", h.deletePayment)
	})
}

type applyPaymentRequest struct {
	TargetKind string `json:"target_kind" validate:"required"`
	TargetID   int64  `json:"target_id" validate:"required,gt=0"`
	Amount     string `json:"amount" validate:"required"`
	Method     string `json:"method" validate:"required,oneof=CASH CARD TRANSFER MOBILE"`
	Note       string `json:"note" validate:"max=255"`
	PaidAt     string `json:"paid_at"`
}

func (h *Handler) applyPayment(w http.ResponseWriter, r *http.Request) {
	var req applyPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	kind, err := ParseTargetKind(req.TargetKind)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be a decimal number")
		return
	}
	var paidAt time.Time
	if req.PaidAt != "" {
		if paidAt, err = time.Parse(time.RFC3339, req.PaidAt); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "paid_at must be RFC3339")
			return
		}
	}

	var actorID int64
	if principal := authz.PrincipalFromRequest(r); principal != nil {
		actorID = principal.WorkerID
	}

	snap, err := h.service.ApplyPayment(r.Context(), ApplyPaymentInput{
		Kind:           kind,
		TargetID:       req.TargetID,
		Amount:         amount,
		Method:         req.Method,
		Note:           req.Note,
		PaidAt:         paidAt,
		ActorID:        actorID,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.count("apply", snap.Kind)
	httpx.JSON(w, http.StatusCreated, snap)
}

func (h *Handler) deletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payment ID")
		return
	}

	var actorID int64
	if principal := authz.PrincipalFromRequest(r); principal != nil {
		actorID = principal.WorkerID
	}

	snap, err := h.service.DeletePayment(r.Context(), id, actorID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.count("delete", snap.Kind)
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *Handler) getTarget(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := h.targetParams(w, r)
	if !ok {
		return
	}
	snap, err := h.service.GetTarget(r.Context(), kind, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := h.targetParams(w, r)
	if !ok {
		return
	}
	includeDeleted := r.URL.Query().Get("include_deleted") == "true"
	payments, err := h.service.ListPayments(r.Context(), kind, id, includeDeleted)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) targetParams(w http.ResponseWriter, r *http.Request) (TargetKind, int64, bool) {
	kind, err := ParseTargetKind(chi.URLParam(r, "kind"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return "", 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid target ID")
		return "", 0, false
	}
	return kind, id, true
}

func (h *Handler) count(action string, kind TargetKind) {
	if h.counter == nil {
		return
	}
	h.counter.CountPayment(action, string(kind))
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTargetNotFound), errors.Is(err, ErrPaymentNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidAmount):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Amount", err.Error())
	case errors.Is(err, ErrOverpayment):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Overpayment", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		h.logger.Error("ledger request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
