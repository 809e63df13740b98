package workers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexcell-pos/nexcell-pos/internal/authz"
	"github.com/nexcell-pos/nexcell-pos/internal/platform/httpx"
	"github.com/nexcell-pos/nexcell-pos/internal/shared"
)

// Repository defines persistence operations for workers.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Worker, int, error)
	Get(ctx context.Context, id int64) (Worker, error)
	Create(ctx context.Context, input CreateInput, passwordHash string) (Worker, error)
	Update(ctx context.Context, id int64, input UpdateInput, passwordHash string) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const workerColumns = `id, name, email, phone, role, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Worker, int, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE deleted_at IS NULL`
	countQuery := `SELECT COUNT(*) FROM workers WHERE deleted_at IS NULL`
	args := []any{}
	countArgs := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		clause := ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR email ILIKE $` + strconv.Itoa(argCount) + `)`
		query += clause
		countQuery += ` AND (name ILIKE $1 OR email ILIKE $1)`
		args = append(args, "%"+filters.Search+"%")
		countArgs = append(countArgs, "%"+filters.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY name ASC`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var workers []Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, 0, err
		}
		workers = append(workers, w)
	}
	return workers, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Worker, error) {
	row := r.db.QueryRow(ctx, `SELECT `+workerColumns+` FROM workers WHERE id = $1 AND deleted_at IS NULL`, id)
	w, err := scanWorker(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Worker{}, httpx.ErrNotFound
		}
		return Worker{}, err
	}
	return w, nil
}

func (r *repository) Create(ctx context.Context, input CreateInput, passwordHash string) (Worker, error) {
	now := time.Now()
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO workers (name, email, phone, role, password_hash, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6) RETURNING id`,
		input.Name, input.Email, input.Phone, string(input.Role), passwordHash, now,
	).Scan(&id)
	if err != nil {
		return Worker{}, mapUniqueViolation(err)
	}
	return Worker{
		ID:        id,
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		Role:      input.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (r *repository) Update(ctx context.Context, id int64, input UpdateInput, passwordHash string) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	if passwordHash != "" {
		tag, err = r.db.Exec(ctx,
			`UPDATE workers SET name = $1, email = $2, phone = $3, role = $4, is_active = $5, password_hash = $6, updated_at = NOW()
			 WHERE id = $7 AND deleted_at IS NULL`,
			input.Name, input.Email, input.Phone, string(input.Role), input.IsActive, passwordHash, id)
	} else {
		tag, err = r.db.Exec(ctx,
			`UPDATE workers SET name = $1, email = $2, phone = $3, role = $4, is_active = $5, updated_at = NOW()
			 WHERE id = $6 AND deleted_at IS NULL`,
			input.Name, input.Email, input.Phone, string(input.Role), input.IsActive, id)
	}
	if err != nil {
		return mapUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE workers SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func scanWorker(row pgx.Row) (Worker, error) {
	var (
		w    Worker
		role string
	)
	if err := row.Scan(&w.ID, &w.Name, &w.Email, &w.Phone, &role, &w.IsActive, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return Worker{}, err
	}
	w.Role = authz.Role(role)
	return w, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return httpx.ErrDuplicate
	}
	return err
}
