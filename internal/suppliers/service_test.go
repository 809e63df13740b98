package suppliers

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nexcell-pos/nexcell-pos/internal/ledger"
	"github.com/nexcell-pos/nexcell-pos/internal/platform/httpx"
	"github.com/nexcell-pos/nexcell-pos/internal/shared"
)

type memorySupplierRepo struct {
	suppliers map[int64]Supplier
	nextID    int64
}

func newMemorySupplierRepo() *memorySupplierRepo {
	return &memorySupplierRepo{suppliers: make(map[int64]Supplier)}
}

func (r *memorySupplierRepo) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	var out []Supplier
	for _, s := range r.suppliers {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (r *memorySupplierRepo) Get(ctx context.Context, id int64) (Supplier, error) {
	s, ok := r.suppliers[id]
	if !ok {
		return Supplier{}, httpx.ErrNotFound
	}
	return s, nil
}

func (r *memorySupplierRepo) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	r.nextID++
	supplier.ID = r.nextID
	r.suppliers[supplier.ID] = supplier
	return supplier, nil
}

func (r *memorySupplierRepo) Update(ctx context.Context, id int64, supplier Supplier) error {
	if _, ok := r.suppliers[id]; !ok {
		return httpx.ErrNotFound
	}
	supplier.ID = id
	r.suppliers[id] = supplier
	return nil
}

func (r *memorySupplierRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.suppliers[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(r.suppliers, id)
	return nil
}

func TestSupplierCRUD(t *testing.T) {
	svc := NewService(newMemorySupplierRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, Supplier{Code: "SUP-001", Name: "Metro Wholesale Devices"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	_, err = svc.Create(ctx, Supplier{Name: "No Code"})
	require.True(t, errors.Is(err, httpx.ErrValidation))

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestSupplierPayableStatusDerived(t *testing.T) {
	s := Supplier{
		PayableTotal: decimal.RequireFromString("2360.00"),
		PayablePaid:  decimal.RequireFromString("2360.00"),
	}
	require.Equal(t, ledger.StatusPaid, s.PayableStatus())

	s.PayablePaid = decimal.Zero
	require.Equal(t, ledger.StatusUnpaid, s.PayableStatus())
}
