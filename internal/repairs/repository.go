package repairs

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nexcell-pos/nexcell-pos/internal/platform/db"
	"github.com/nexcell-pos/nexcell-pos/internal/shared"
)

// Repository defines persistence operations for repair tickets.
type Repository interface {
	Create(ctx context.Context, ticket Ticket) (Ticket, error)
	Get(ctx context.Context, id int64) (Ticket, error)
	List(ctx context.Context, filters shared.ListFilters, status Status) ([]Ticket, int, error)
	Update(ctx context.Context, id int64, ticket Ticket) error
	// UpdateStatus moves the ticket lifecycle forward under a row lock so
	// concurrent transitions cannot skip states.
	UpdateStatus(ctx context.Context, id int64, next Status, technicianID *int64) (Ticket, error)
	Delete(ctx context.Context, id int64) error
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const ticketColumns = `id, number, customer_id, device, issue, fee::text, status, technician_id, created_by, created_at, updated_at`

func (r *repository) Create(ctx context.Context, ticket Ticket) (Ticket, error) {
	now := time.Now()
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var seq int64
		if err := tx.QueryRow(ctx, `SELECT nextval('repair_number_seq')`).Scan(&seq); err != nil {
			return err
		}
		ticket.Number = "REP-" + leftPad(seq)
		return tx.QueryRow(ctx,
			`INSERT INTO repair_tickets (number, customer_id, device, issue, fee, status, technician_id, created_by, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9) RETURNING id`,
			ticket.Number, ticket.CustomerID, ticket.Device, ticket.Issue, ticket.Fee.StringFixed(2),
			string(StatusReceived), ticket.TechnicianID, ticket.CreatedBy, now,
		).Scan(&ticket.ID)
	})
	if err != nil {
		return Ticket{}, err
	}
	ticket.Status = StatusReceived
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	return ticket, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Ticket, error) {
	row := r.db.QueryRow(ctx, `SELECT `+ticketColumns+` FROM repair_tickets WHERE id = $1 AND deleted_at IS NULL`, id)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ticket{}, ErrTicketNotFound
		}
		return Ticket{}, err
	}
	return ticket, nil
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters, status Status) ([]Ticket, int, error) {
	query := `SELECT ` + ticketColumns + ` FROM repair_tickets WHERE deleted_at IS NULL`
	countQuery := `SELECT COUNT(*) FROM repair_tickets WHERE deleted_at IS NULL`
	args := []any{}
	countArgs := []any{}
	argCount := 0

	if status != "" {
		argCount++
		placeholder := `$` + strconv.Itoa(argCount)
		query += ` AND status = ` + placeholder
		countQuery += ` AND status = ` + placeholder
		args = append(args, string(status))
		countArgs = append(countArgs, string(status))
	}
	if filters.Search != "" {
		argCount++
		placeholder := `$` + strconv.Itoa(argCount)
		query += ` AND (number ILIKE ` + placeholder + ` OR device ILIKE ` + placeholder + `)`
		countQuery += ` AND (number ILIKE ` + placeholder + ` OR device ILIKE ` + placeholder + `)`
		args = append(args, "%"+filters.Search+"%")
		countArgs = append(countArgs, "%"+filters.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY created_at DESC, id DESC`
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

	var out []Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, ticket)
	}
	return out, total, rows.Err()
}

func (r *repository) Update(ctx context.Context, id int64, ticket Ticket) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE repair_tickets SET customer_id = $1, device = $2, issue = $3, fee = $4, technician_id = $5, updated_at = NOW()
		 WHERE id = $6 AND deleted_at IS NULL`,
		ticket.CustomerID, ticket.Device, ticket.Issue, ticket.Fee.StringFixed(2), ticket.TechnicianID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTicketNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, next Status, technicianID *int64) (Ticket, error) {
	var updated Ticket
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+ticketColumns+` FROM repair_tickets WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id)
		current, err := scanTicket(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrTicketNotFound
			}
			return err
		}
		if !current.Status.CanTransitionTo(next) {
			return ErrBadTransition
		}
		if technicianID == nil {
			technicianID = current.TechnicianID
		}
		if _, err := tx.Exec(ctx,
			`UPDATE repair_tickets SET status = $1, technician_id = $2, updated_at = NOW() WHERE id = $3`,
			string(next), technicianID, id); err != nil {
			return err
		}
		current.Status = next
		current.TechnicianID = technicianID
		current.UpdatedAt = time.Now()
		updated = current
		return nil
	})
	if err != nil {
		return Ticket{}, err
	}
	return updated, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE repair_tickets SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTicketNotFound
	}
	return nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM repair_tickets WHERE deleted_at IS NULL GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[Status(status)] = count
	}
	return out, rows.Err()
}

func scanTicket(row pgx.Row) (Ticket, error) {
	var (
		ticket Ticket
		rawFee string
		status string
	)
	err := row.Scan(&ticket.ID, &ticket.Number, &ticket.CustomerID, &ticket.Device, &ticket.Issue,
		&rawFee, &status, &ticket.TechnicianID, &ticket.CreatedBy, &ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		return Ticket{}, err
	}
	if ticket.Fee, err = decimal.NewFromString(rawFee); err != nil {
		return Ticket{}, err
	}
	ticket.Status = Status(status)
	return ticket, nil
}

func leftPad(seq int64) string {
	s := strconv.FormatInt(seq, 10)
	for len(s) < 6 {
		s = "0" + s
	}
	return s
}
