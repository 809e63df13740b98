package catalog

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nexcell-pos/nexcell-pos/internal/platform/httpx"
	"github.com/nexcell-pos/nexcell-pos/internal/shared"
)

// Repository defines persistence operations for the phone catalog.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Phone, int, error)
	Get(ctx context.Context, id int64) (Phone, error)
	Create(ctx context.Context, phone Phone) (Phone, error)
	Update(ctx context.Context, id int64, phone Phone) error
	Delete(ctx context.Context, id int64) error
	LowStock(ctx context.Context, threshold int) ([]Phone, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const phoneColumns = `id, sku, brand, model, imei, condition, purchase_price::text, sale_price::text, stock_qty, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Phone, int, error) {
	query := `SELECT ` + phoneColumns + ` FROM phones WHERE deleted_at IS NULL`
	countQuery := `SELECT COUNT(*) FROM phones WHERE deleted_at IS NULL`
	args := []any{}
	countArgs := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		placeholder := `$` + strconv.Itoa(argCount)
		clause := ` AND (brand ILIKE ` + placeholder + ` OR model ILIKE ` + placeholder + ` OR sku ILIKE ` + placeholder + ` OR imei ILIKE ` + placeholder + `)`
		query += clause
		countQuery += ` AND (brand ILIKE $1 OR model ILIKE $1 OR sku ILIKE $1 OR imei ILIKE $1)`
		args = append(args, "%"+filters.Search+"%")
		countArgs = append(countArgs, "%"+filters.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
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

	var phones []Phone
	for rows.Next() {
		p, err := scanPhone(rows)
		if err != nil {
			return nil, 0, err
		}
		phones = append(phones, p)
	}
	return phones, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Phone, error) {
	row := r.db.QueryRow(ctx, `SELECT `+phoneColumns+` FROM phones WHERE id = $1 AND deleted_at IS NULL`, id)
	p, err := scanPhone(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Phone{}, httpx.ErrNotFound
		}
		return Phone{}, err
	}
	return p, nil
}

func (r *repository) Create(ctx context.Context, phone Phone) (Phone, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx,
		`INSERT INTO phones (sku, brand, model, imei, condition, purchase_price, sale_price, stock_qty, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9) RETURNING id`,
		phone.SKU, phone.Brand, phone.Model, phone.IMEI, string(phone.Condition),
		phone.PurchasePrice.StringFixed(2), phone.SalePrice.StringFixed(2), phone.StockQty, now,
	).Scan(&phone.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Phone{}, httpx.ErrDuplicate
		}
		return Phone{}, err
	}
	phone.CreatedAt = now
	phone.UpdatedAt = now
	return phone, nil
}

func (r *repository) Update(ctx context.Context, id int64, phone Phone) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE phones SET sku = $1, brand = $2, model = $3, imei = $4, condition = $5, purchase_price = $6, sale_price = $7, stock_qty = $8, updated_at = NOW()
		 WHERE id = $9 AND deleted_at IS NULL`,
		phone.SKU, phone.Brand, phone.Model, phone.IMEI, string(phone.Condition),
		phone.PurchasePrice.StringFixed(2), phone.SalePrice.StringFixed(2), phone.StockQty, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return httpx.ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE phones SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) LowStock(ctx context.Context, threshold int) ([]Phone, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+phoneColumns+` FROM phones WHERE deleted_at IS NULL AND stock_qty <= $1 ORDER BY stock_qty ASC, brand ASC`,
		threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var phones []Phone
	for rows.Next() {
		p, err := scanPhone(rows)
		if err != nil {
			return nil, err
		}
		phones = append(phones, p)
	}
	return phones, rows.Err()
}

func scanPhone(row pgx.Row) (Phone, error) {
	var (
		p           Phone
		condition   string
		rawPurchase string
		rawSale     string
	)
	err := row.Scan(&p.ID, &p.SKU, &p.Brand, &p.Model, &p.IMEI, &condition, &rawPurchase, &rawSale, &p.StockQty, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Phone{}, err
	}
	p.Condition = Condition(condition)
	if p.PurchasePrice, err = decimal.NewFromString(rawPurchase); err != nil {
		return Phone{}, err
	}
	if p.SalePrice, err = decimal.NewFromString(rawSale); err != nil {
		return Phone{}, err
	}
	return p, nil
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "sku":
		return "sku " + dir
	case "stock":
		return "stock_qty " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "brand " + dir + ", model " + dir
	}
}
