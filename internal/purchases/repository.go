package purchases

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

// Repository defines persistence operations for purchases.
type Repository interface {
	Create(ctx context.Context, purchase Purchase) (Purchase, error)
	Get(ctx context.Context, id int64) (Purchase, error)
	List(ctx context.Context, filters shared.ListFilters) ([]Purchase, int, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const purchaseColumns = `id, number, supplier_id, total_amount::text, amount_paid::text, note, created_by, created_at, updated_at`

// Create inserts the purchase header and its lines in one transaction and
// increments phone stock per line.
func (r *repository) Create(ctx context.Context, purchase Purchase) (Purchase, error) {
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var seq int64
		if err := tx.QueryRow(ctx, `SELECT nextval('purchase_number_seq')`).Scan(&seq); err != nil {
			return err
		}
		purchase.Number = "PUR-" + leftPad(seq)

		now := time.Now()
		if err := tx.QueryRow(ctx,
			`INSERT INTO purchases (number, supplier_id, total_amount, amount_paid, note, created_by, created_at, updated_at)
			 VALUES ($1, $2, $3, 0, $4, $5, $6, $6) RETURNING id`,
			purchase.Number, purchase.SupplierID, purchase.TotalAmount.StringFixed(2), purchase.Note, purchase.CreatedBy, now,
		).Scan(&purchase.ID); err != nil {
			return err
		}
		purchase.AmountPaid = decimal.Zero
		purchase.CreatedAt = now
		purchase.UpdatedAt = now

		for i := range purchase.Lines {
			line := &purchase.Lines[i]
			line.PurchaseID = purchase.ID

			tag, err := tx.Exec(ctx,
				`UPDATE phones SET stock_qty = stock_qty + $1, updated_at = NOW()
				 WHERE id = $2 AND deleted_at IS NULL`,
				line.Qty, line.PhoneID)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return httpx.ErrNotFound
			}

			if err := tx.QueryRow(ctx,
				`INSERT INTO purchase_lines (purchase_id, phone_id, qty, unit_cost, line_total)
				 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
				purchase.ID, line.PhoneID, line.Qty, line.UnitCost.StringFixed(2), line.LineTotal.StringFixed(2),
			).Scan(&line.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}
	return purchase, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Purchase, error) {
	row := r.db.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1 AND deleted_at IS NULL`, id)
	purchase, err := scanPurchase(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, httpx.ErrNotFound
		}
		return Purchase{}, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, purchase_id, phone_id, qty, unit_cost::text, line_total::text
		 FROM purchase_lines WHERE purchase_id = $1 ORDER BY id`, id)
	if err != nil {
		return Purchase{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line    Line
			rawCost string
			rawTot  string
		)
		if err := rows.Scan(&line.ID, &line.PurchaseID, &line.PhoneID, &line.Qty, &rawCost, &rawTot); err != nil {
			return Purchase{}, err
		}
		if line.UnitCost, err = decimal.NewFromString(rawCost); err != nil {
			return Purchase{}, err
		}
		if line.LineTotal, err = decimal.NewFromString(rawTot); err != nil {
			return Purchase{}, err
		}
		purchase.Lines = append(purchase.Lines, line)
	}
	return purchase, rows.Err()
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Purchase, int, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE deleted_at IS NULL`
	countQuery := `SELECT COUNT(*) FROM purchases WHERE deleted_at IS NULL`
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

	var out []Purchase
	for rows.Next() {
		purchase, err := scanPurchase(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, purchase)
	}
	return out, total, rows.Err()
}

func scanPurchase(row pgx.Row) (Purchase, error) {
	var (
		purchase Purchase
		rawTotal string
		rawPaid  string
	)
	err := row.Scan(&purchase.ID, &purchase.Number, &purchase.SupplierID, &rawTotal, &rawPaid, &purchase.Note, &purchase.CreatedBy, &purchase.CreatedAt, &purchase.UpdatedAt)
	if err != nil {
		return Purchase{}, err
	}
	if purchase.TotalAmount, err = decimal.NewFromString(rawTotal); err != nil {
		return Purchase{}, err
	}
	if purchase.AmountPaid, err = decimal.NewFromString(rawPaid); err != nil {
		return Purchase{}, err
	}
	return purchase, nil
}

func leftPad(seq int64) string {
	s := strconv.FormatInt(seq, 10)
	for len(s) < 6 {
		s = "0" + s
	}
	return s
}
