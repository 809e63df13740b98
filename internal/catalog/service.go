package catalog

import (
	"context"
	"fmt"

	"github.com/nexcell-pos/nexcell-pos/internal/platform/httpx"
	"github.com/nexcell-pos/nexcell-pos/internal/shared"
)

// Service handles catalog business logic.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns phones matching the filters.
func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Phone, int, error) {
	return s.repo.List(ctx, filters)
}

// Get fetches a phone by ID.
func (s *Service) Get(ctx context.Context, id int64) (Phone, error) {
	if id <= 0 {
		return Phone{}, fmt.Errorf("%w: invalid phone ID", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create registers a new phone.
func (s *Service) Create(ctx context.Context, phone Phone) (Phone, error) {
	if err := s.validate(phone); err != nil {
		return Phone{}, err
	}
	return s.repo.Create(ctx, phone)
}

// Update modifies an existing phone.
func (s *Service) Update(ctx context.Context, id int64, phone Phone) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid phone ID", httpx.ErrValidation)
	}
	if err := s.validate(phone); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, phone)
}

// Delete soft-deletes a phone.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid phone ID", httpx.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

// LowStock lists phones at or below the given stock threshold.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]Phone, error) {
	if threshold < 0 {
		threshold = 0
	}
	return s.repo.LowStock(ctx, threshold)
}
