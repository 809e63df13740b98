package repairs

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nexcell-pos/nexcell-pos/internal/platform/httpx"
	"github.com/nexcell-pos/nexcell-pos/internal/shared"
)

// Service handles repair ticket business logic.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput carries the fields needed to open a ticket.
type CreateInput struct {
	CustomerID   int64
	Device       string
	Issue        string
	Fee          decimal.Decimal
	TechnicianID *int64
	ActorID      int64
}

// Create opens a ticket in RECEIVED state.
func (s *Service) Create(ctx context.Context, input CreateInput) (Ticket, error) {
	if input.CustomerID <= 0 {
		return Ticket{}, fmt.Errorf("%w: customer is required", httpx.ErrValidation)
	}
	if strings.TrimSpace(input.Device) == "" {
		return Ticket{}, fmt.Errorf("%w: device description is required", httpx.ErrValidation)
	}
	if input.Fee.IsNegative() {
		return Ticket{}, fmt.Errorf("%w: fee cannot be negative", httpx.ErrValidation)
	}
	return s.repo.Create(ctx, Ticket{
		CustomerID:   input.CustomerID,
		Device:       strings.TrimSpace(input.Device),
		Issue:        strings.TrimSpace(input.Issue),
		Fee:          input.Fee.Round(2),
		TechnicianID: input.TechnicianID,
		CreatedBy:    input.ActorID,
	})
}

func (s *Service) Get(ctx context.Context, id int64) (Ticket, error) {
	if id <= 0 {
		return Ticket{}, fmt.Errorf("%w: invalid ticket ID", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters, status Status) ([]Ticket, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status filter", httpx.ErrValidation)
	}
	return s.repo.List(ctx, filters, status)
}

// UpdateInput carries the editable ticket fields.
type UpdateInput struct {
	CustomerID   int64
	Device       string
	Issue        string
	Fee          decimal.Decimal
	TechnicianID *int64
}

// Update edits ticket details. Lifecycle state moves only through Transition.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid ticket ID", httpx.ErrValidation)
	}
	if input.CustomerID <= 0 {
		return fmt.Errorf("%w: customer is required", httpx.ErrValidation)
	}
	if strings.TrimSpace(input.Device) == "" {
		return fmt.Errorf("%w: device description is required", httpx.ErrValidation)
	}
	if input.Fee.IsNegative() {
		return fmt.Errorf("%w: fee cannot be negative", httpx.ErrValidation)
	}
	return s.repo.Update(ctx, id, Ticket{
		CustomerID:   input.CustomerID,
		Device:       strings.TrimSpace(input.Device),
		Issue:        strings.TrimSpace(input.Issue),
		Fee:          input.Fee.Round(2),
		TechnicianID: input.TechnicianID,
	})
}

// Transition moves a ticket to the next lifecycle state. The repository
// enforces the state machine under a row lock.
func (s *Service) Transition(ctx context.Context, id int64, next Status, technicianID *int64) (Ticket, error) {
	if id <= 0 {
		return Ticket{}, fmt.Errorf("%w: invalid ticket ID", httpx.ErrValidation)
	}
	if !next.Valid() {
		return Ticket{}, fmt.Errorf("%w: unknown status", httpx.ErrValidation)
	}
	return s.repo.UpdateStatus(ctx, id, next, technicianID)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid ticket ID", httpx.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}
