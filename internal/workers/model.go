package workers

import (
	"time"

	"github.com/nexcell-pos/nexcell-pos/internal/authz"
)

// Worker represents a staff member of the shop.
type Worker struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Role      authz.Role `json:"role"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CreateInput carries the fields for a new worker account.
type CreateInput struct {
	Name     string
	Email    string
	Phone    string
	Role     authz.Role
	Password string
}

// UpdateInput carries mutable worker fields. Password is optional; empty
// leaves the stored hash untouched.
type UpdateInput struct {
	Name     string
	Email    string
	Phone    string
	Role     authz.Role
	IsActive bool
	Password string
}
