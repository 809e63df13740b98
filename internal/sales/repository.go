package sales

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nexcell-pos/nexcell-pos/internal/platform/db"
	"github.com/nexcell-pos/nexcell-pos/internal/platform/httpx"
	"github.com/nexcell-pos/nexcell-pos/internal/shared"
)

// Repository defines persistence operations for sales.
type Repository interface {
	Create(ctx context.Context, sale Sale) (Sale, error)
	Get(ctx context.Context, id int64) (Sale, error)
	List(ctx context.Context, filters shared.ListFilters) ([]Sale, int, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const saleColumns = `id, number, customer_id, total_amount::text, amount_paid::text, note, created_by, created_at, updated_at`

// Create inserts the sale header and its lines in one transaction, and
// decrements phone stock per line. A line whose qty exceeds the available
// stock aborts with ErrInsufficientStock.
func (r *repository) Create(ctx context.Context, sale Sale) (Sale, error) {
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var seq int64
		if err := tx.QueryRow(ctx, `SELECT nextval('sale_number_seq')`).Scan(&seq); err != nil {
			return err
		}
		sale.Number = "SALE-" + leftPad(seq)

		now := time.Now()
		if err := tx.QueryRow(ctx,
			`INSERT INTO sales (number, customer_id, total_amount, amount_paid, note, created_by, created_at, updated_at)
			 VALUES ($1, $2, $3, 0, $4, $5, $6, $6) RETURNING id`,
			sale.Number, sale.CustomerID, sale.TotalAmount.StringFixed(2), sale.Note, sale.CreatedBy, now,
		).Scan(&sale.ID); err != nil {
			return err
		}
		sale.AmountPaid = decimal.Zero
		sale.CreatedAt = now
		sale.UpdatedAt = now

		for i := range sale.Lines {
			line := &sale.Lines[i]
			line.SaleID = sale.ID

			tag, err := tx.Exec(ctx,
				`UPDATE phones SET stock_qty = stock_qty - $1, updated_at = NOW()
				 WHERE id = $2 AND deleted_at IS NULL AND stock_qty >= $1`,
				line.Qty, line.PhoneID)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return ErrInsufficientStock
			}

			if err := tx.QueryRow(ctx,
				`INSERT INTO sale_lines (sale_id, phone_id, qty, unit_price, line_total)
				 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
				sale.ID, line.PhoneID, line.Qty, line.UnitPrice.StringFixed(2), line.LineTotal.StringFixed(2),
			).Scan(&line.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	return sale, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Sale, error) {
	row := r.db.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 AND deleted_at IS NULL`, id)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, httpx.ErrNotFound
		}
		return Sale{}, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, sale_id, phone_id, qty, unit_price::text, line_total::text
		 FROM sale_lines WHERE sale_id = $1 ORDER BY id`, id)
	if err != nil {
		return Sale{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line     Line
			rawPrice string
			rawTotal string
		)
		if err := rows.Scan(&line.ID, &line.SaleID, &line.PhoneID, &line.Qty, &rawPrice, &rawTotal); err != nil {
			return Sale{}, err
		}
		if line.UnitPrice, err = decimal.NewFromString(rawPrice); err != nil {
			return Sale{}, err
		}
		if line.LineTotal, err = decimal.NewFromString(rawTotal); err != nil {
			return Sale{}, err
		}
		sale.Lines = append(sale.Lines, line)
	}
	return sale, rows.Err()
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Sale, int, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE deleted_at IS NULL`
	countQuery := `SELECT COUNT(*) FROM sales WHERE deleted_at IS NULL`
	args := []any{}
	countArgs := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		placeholder := `$` + strconv.Itoa(argCount)
		query += ` AND number ILIKE ` + placeholder
		countQuery += ` AND number ILIKE $1`
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

	var out []Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, sale)
	}
	return out, total, rows.Err()
}

func scanSale(row pgx.Row) (Sale, error) {
	var (
		sale     Sale
		rawTotal string
		rawPaid  string
	)
	err := row.Scan(&sale.ID, &sale.Number, &sale.CustomerID, &rawTotal, &rawPaid, &sale.Note, &sale.CreatedBy, &sale.CreatedAt, &sale.UpdatedAt)
	if err != nil {
		return Sale{}, err
	}
	if sale.TotalAmount, err = decimal.NewFromString(rawTotal); err != nil {
		return Sale{}, err
	}
	if sale.AmountPaid, err = decimal.NewFromString(rawPaid); err != nil {
		return Sale{}, err
	}
	return sale, nil
}

func leftPad(seq int64) string {
	s := strconv.FormatInt(seq, 10)
	for len(s) < 6 {
		s = "0" + s
	}
	return s
}
