package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository runs the aggregate queries behind the dashboard.
type Repository interface {
	DocumentTotals(ctx context.Context, table string, from, to time.Time) (decimal.Decimal, int, error)
	Outstanding(ctx context.Context, tables []string) (decimal.Decimal, error)
	RepairCounts(ctx context.Context) (map[string]int, error)
	LowStockCount(ctx context.Context, threshold int) (int, error)
	Aging(ctx context.Context, table string) ([]AgingBucket, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

// DocumentTotals sums total_amount over active rows of a document table in
// the given created_at range. table is always one of the fixed names the
// service passes, never user input.
func (r *repository) DocumentTotals(ctx context.Context, table string, from, to time.Time) (decimal.Decimal, int, error) {
	var (
		rawTotal string
		count    int
	)
	query := `SELECT COALESCE(SUM(total_amount), 0)::text, COUNT(*) FROM ` + table +
		` WHERE deleted_at IS NULL AND created_at >= $1 AND created_at < $2`
	if err := r.db.QueryRow(ctx, query, from, to).Scan(&rawTotal, &count); err != nil {
		return decimal.Zero, 0, err
	}
	total, err := decimal.NewFromString(rawTotal)
	if err != nil {
		return decimal.Zero, 0, err
	}
	return total, count, nil
}

// Outstanding sums (total_amount - amount_paid) across the given target
// tables, counting only rows still short of settlement.
func (r *repository) Outstanding(ctx context.Context, tables []string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, table := range tables {
		var raw string
		query := `SELECT COALESCE(SUM(total_amount - amount_paid), 0)::text FROM ` + table +
			` WHERE deleted_at IS NULL AND amount_paid < total_amount`
		if err := r.db.QueryRow(ctx, query).Scan(&raw); err != nil {
			return decimal.Zero, err
		}
		part, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(part)
	}
	return sum, nil
}

func (r *repository) RepairCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM repair_tickets WHERE deleted_at IS NULL GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[status] = count
	}
	return out, rows.Err()
}

func (r *repository) LowStockCount(ctx context.Context, threshold int) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM phones WHERE deleted_at IS NULL AND stock_qty <= $1`, threshold).Scan(&count)
	return count, err
}

// Aging groups unpaid documents into 30-day buckets by age.
func (r *repository) Aging(ctx context.Context, table string) ([]AgingBucket, error) {
	query := `SELECT
		CASE
			WHEN NOW() - created_at <= INTERVAL '30 days' THEN '0-30'
			WHEN NOW() - created_at <= INTERVAL '60 days' THEN '31-60'
			WHEN NOW() - created_at <= INTERVAL '90 days' THEN '61-90'
			ELSE '90+'
		END AS bucket,
		COUNT(*),
		COALESCE(SUM(total_amount - amount_paid), 0)::text
	FROM ` + table + `
	WHERE deleted_at IS NULL AND amount_paid < total_amount
	GROUP BY bucket`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[string]AgingBucket)
	for rows.Next() {
		var (
			bucket AgingBucket
			raw    string
		)
		if err := rows.Scan(&bucket.Label, &bucket.Count, &raw); err != nil {
			return nil, err
		}
		if bucket.Amount, err = decimal.NewFromString(raw); err != nil {
			return nil, err
		}
		found[bucket.Label] = bucket
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Stable bucket order with zero rows filled in.
	out := make([]AgingBucket, 0, len(agingLabels))
	for _, label := range agingLabels {
		bucket, ok := found[label]
		if !ok {
			bucket = AgingBucket{Label: label, Amount: decimal.Zero}
		}
		out = append(out, bucket)
	}
	return out, nil
}

var agingLabels = []string{"0-30", "31-60", "61-90", "90+"}
