package repairs

import (
	"errors"
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

// Handler wires HTTP endpoints for repair tickets.
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

// MountRoutes registers repair routes. Technicians work the queue, so
// browsing and status moves start at their rank; opening and editing
// tickets is front-desk work (cashier and above), deleting is managerial.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.AnyOf(authz.RoleTechnician)))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Patch("/{id}/status", h.transition)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.AnyOf(authz.RoleCashier)))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.AnyOf(authz.RoleManager)))
		r.Delete("/{id}", h.delete)
	})
}

type ticketRequest struct {
	CustomerID   int64  `json:"customer_id" validate:"required,gt=0"`
	Device       string `json:"device" validate:"required,max=180"`
	Issue        string `json:"issue" validate:"max=1000"`
	Fee          string `json:"fee" validate:"required"`
	TechnicianID *int64 `json:"technician_id" validate:"omitempty,gt=0"`
}

type transitionRequest struct {
	Status       string `json:"status" validate:"required,oneof=RECEIVED IN_PROGRESS COMPLETED DELIVERED"`
	TechnicianID *int64 `json:"technician_id" validate:"omitempty,gt=0"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, fee, ok := h.decode(w, r)
	if !ok {
		return
	}
	input := CreateInput{
		CustomerID:   req.CustomerID,
		Device:       req.Device,
		Issue:        req.Issue,
		Fee:          fee,
		TechnicianID: req.TechnicianID,
	}
	if principal := authz.PrincipalFromRequest(r); principal != nil {
		input.ActorID = principal.WorkerID
	}
	ticket, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ticket)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	ticket, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ticket)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.FiltersFromQuery(r)
	status := Status(r.URL.Query().Get("status"))
	items, total, err := h.service.List(r.Context(), filters, status)
	if err != nil {
		h.logger.Error("list repair tickets", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"tickets":    items,
		"pagination": shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	req, fee, ok := h.decode(w, r)
	if !ok {
		return
	}
	err := h.service.Update(r.Context(), id, UpdateInput{
		CustomerID:   req.CustomerID,
		Device:       req.Device,
		Issue:        req.Issue,
		Fee:          fee,
		TechnicianID: req.TechnicianID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	next, err := ParseStatus(req.Status)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ticket, err := h.service.Transition(r.Context(), id, next, req.TechnicianID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ticket)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (ticketRequest, decimal.Decimal, bool) {
	var req ticketRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return ticketRequest{}, decimal.Zero, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return ticketRequest{}, decimal.Zero, false
	}
	fee, err := decimal.NewFromString(req.Fee)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "fee must be a decimal number")
		return ticketRequest{}, decimal.Zero, false
	}
	return req, fee, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTicketNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrBadTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid ID")
		return 0, false
	}
	return id, true
}
