package auth

import (
	"time"

	"github.com/nexcell-pos/nexcell-pos/internal/authz"
)

// Account represents a worker account able to log in.
type Account struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         authz.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
