package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexcell-pos/nexcell-pos/internal/authz"
	"github.com/nexcell-pos/nexcell-pos/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches a worker account by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	var (
		account Account
		role    string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, role, is_active, created_at, updated_at
		 FROM workers WHERE email = $1 AND deleted_at IS NULL`,
		email,
	).Scan(&account.ID, &account.Name, &account.Email, &account.PasswordHash, &role, &account.IsActive, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	account.Role = authz.Role(role)
	return &account, nil
}

var _ Repository = (*PGRepository)(nil)
