package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nexcell-pos/nexcell-pos/internal/platform/db"
)

// targetTables maps a target kind to the table carrying its amount pair.
// Every table exposes the same total_amount / amount_paid / deleted_at
// columns, so one repository serves all four kinds.
var targetTables = map[TargetKind]string{
	TargetCustomer: "customers",
	TargetSupplier: "suppliers",
	TargetSale:     "sales",
	TargetPurchase: "purchases",
}

// Repository provides PostgreSQL backed persistence for the ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx runs fn inside a single transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// GetTarget reads a target snapshot without locking.
func (r *Repository) GetTarget(ctx context.Context, kind TargetKind, id int64) (Target, error) {
	return getTarget(ctx, r.pool, kind, id, false)
}

// GetPayment fetches a payment by ID, deleted or not.
func (r *Repository) GetPayment(ctx context.Context, id int64) (Payment, error) {
	return scanPayment(r.pool.QueryRow(ctx, paymentSelect+` WHERE id = $1`, id))
}

// ListPayments returns payments for a target, newest first.
func (r *Repository) ListPayments(ctx context.Context, kind TargetKind, targetID int64, includeDeleted bool) ([]Payment, error) {
	query := paymentSelect + ` WHERE target_kind = $1 AND target_id = $2`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY paid_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, string(kind), targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// GetTargetForUpdate locks the target row for the rest of the transaction.
func (t *txRepository) GetTargetForUpdate(ctx context.Context, kind TargetKind, id int64) (Target, error) {
	return getTarget(ctx, t.tx, kind, id, true)
}

// SetAmountPaid writes the recomputed cached total.
func (t *txRepository) SetAmountPaid(ctx context.Context, kind TargetKind, id int64, amountPaid decimal.Decimal) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx,
		`UPDATE `+table+` SET amount_paid = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`,
		amountPaid.StringFixed(2), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTargetNotFound
	}
	return nil
}

// NextPaymentNumber allocates the next number from the payment sequence.
func (t *txRepository) NextPaymentNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval('payment_number_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("PAY-%06d", seq), nil
}

// InsertPayment appends an immutable payment row.
func (t *txRepository) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO payments (number, target_kind, target_id, amount, method, note, paid_at, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		 RETURNING id`,
		p.Number, string(p.Kind), p.TargetID, p.Amount.StringFixed(2), p.Method, p.Note, p.PaidAt, p.CreatedBy,
	).Scan(&id)
	return id, err
}

// GetPaymentForUpdate locks a payment row.
func (t *txRepository) GetPaymentForUpdate(ctx context.Context, id int64) (Payment, error) {
	return scanPayment(t.tx.QueryRow(ctx, paymentSelect+` WHERE id = $1 FOR UPDATE`, id))
}

// MarkPaymentDeleted soft-deletes a payment.
func (t *txRepository) MarkPaymentDeleted(ctx context.Context, id, actorID int64, at time.Time) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE payments SET deleted_at = $1, deleted_by = $2 WHERE id = $3 AND deleted_at IS NULL`,
		at, actorID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// SumActivePayments recomputes the target's paid amount from its event history.
func (t *txRepository) SumActivePayments(ctx context.Context, kind TargetKind, targetID int64) (decimal.Decimal, error) {
	var raw string
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)::text FROM payments WHERE target_kind = $1 AND target_id = $2 AND deleted_at IS NULL`,
		string(kind), targetID,
	).Scan(&raw)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getTarget(ctx context.Context, q rowQuerier, kind TargetKind, id int64, forUpdate bool) (Target, error) {
	table, err := tableFor(kind)
	if err != nil {
		return Target{}, err
	}
	query := `SELECT id, total_amount::text, amount_paid::text FROM ` + table + ` WHERE id = $1 AND deleted_at IS NULL`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var (
		target   Target
		rawTotal string
		rawPaid  string
	)
	if err := q.QueryRow(ctx, query, id).Scan(&target.ID, &rawTotal, &rawPaid); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Target{}, ErrTargetNotFound
		}
		return Target{}, err
	}
	target.Kind = kind
	if target.TotalAmount, err = decimal.NewFromString(rawTotal); err != nil {
		return Target{}, err
	}
	if target.AmountPaid, err = decimal.NewFromString(rawPaid); err != nil {
		return Target{}, err
	}
	return target, nil
}

const paymentSelect = `SELECT id, number, target_kind, target_id, amount::text, method, note, paid_at, created_by, created_at, deleted_at, deleted_by FROM payments`

func scanPayment(row pgx.Row) (Payment, error) {
	var (
		p         Payment
		kind      string
		rawAmount string
	)
	err := row.Scan(&p.ID, &p.Number, &kind, &p.TargetID, &rawAmount, &p.Method, &p.Note, &p.PaidAt, &p.CreatedBy, &p.CreatedAt, &p.DeletedAt, &p.DeletedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Payment{}, ErrPaymentNotFound
		}
		return Payment{}, err
	}
	p.Kind = TargetKind(kind)
	if p.Amount, err = decimal.NewFromString(rawAmount); err != nil {
		return Payment{}, err
	}
	return p, nil
}

func tableFor(kind TargetKind) (string, error) {
	table, ok := targetTables[kind]
	if !ok {
		return "", fmt.Errorf("ledger: unknown target kind %q", kind)
	}
	return table, nil
}

var _ RepositoryPort = (*Repository)(nil)
var _ TxRepository = (*txRepository)(nil)
