package workers

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/nexcell-pos/nexcell-pos/internal/platform/httpx"
	"github.com/nexcell-pos/nexcell-pos/internal/shared"
)

// Service handles worker account business logic.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns workers matching the filters.
func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Worker, int, error) {
	return s.repo.List(ctx, filters)
}

// Get fetches a worker by ID.
func (s *Service) Get(ctx context.Context, id int64) (Worker, error) {
	if id <= 0 {
		return Worker{}, fmt.Errorf("%w: invalid worker ID", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create registers a new worker with a hashed password.
func (s *Service) Create(ctx context.Context, input CreateInput) (Worker, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Name == "" || input.Email == "" {
		return Worker{}, fmt.Errorf("%w: name and email are required", httpx.ErrValidation)
	}
	if !input.Role.Valid() {
		return Worker{}, fmt.Errorf("%w: unknown role", httpx.ErrValidation)
	}
	if len(input.Password) < 8 {
		return Worker{}, fmt.Errorf("%w: password must be at least 8 characters", httpx.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return Worker{}, err
	}
	return s.repo.Create(ctx, input, string(hash))
}

// Update modifies an existing worker; the password changes only when a new
// one is supplied.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid worker ID", httpx.ErrValidation)
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Name == "" || input.Email == "" {
		return fmt.Errorf("%w: name and email are required", httpx.ErrValidation)
	}
	if !input.Role.Valid() {
		return fmt.Errorf("%w: unknown role", httpx.ErrValidation)
	}
	var hash string
	if input.Password != "" {
		if len(input.Password) < 8 {
			return fmt.Errorf("%w: password must be at least 8 characters", httpx.ErrValidation)
		}
		h, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		hash = string(h)
	}
	return s.repo.Update(ctx, id, input, hash)
}

// Delete soft-deletes a worker account.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid worker ID", httpx.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}
