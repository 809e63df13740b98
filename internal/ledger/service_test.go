package ledger

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nexcell-pos/nexcell-pos/internal/shared"
)

type memoryLedgerRepo struct {
	targets   map[string]Target
	payments  map[int64]Payment
	nextPayID int64
	seq       int64
}

type memoryLedgerTx struct {
	repo *memoryLedgerRepo
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{
		targets:  make(map[string]Target),
		payments: make(map[int64]Payment),
	}
}

func targetKey(kind TargetKind, id int64) string {
	return string(kind) + "/" + fmt.Sprint(id)
}

func (r *memoryLedgerRepo) putTarget(kind TargetKind, id int64, total string) {
	r.targets[targetKey(kind, id)] = Target{
		Kind:        kind,
		ID:          id,
		TotalAmount: decimal.RequireFromString(total),
		AmountPaid:  decimal.Zero,
	}
}

func (r *memoryLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryLedgerTx{repo: r})
}

func (r *memoryLedgerRepo) GetTarget(ctx context.Context, kind TargetKind, id int64) (Target, error) {
	target, ok := r.targets[targetKey(kind, id)]
	if !ok {
		return Target{}, ErrTargetNotFound
	}
	return target, nil
}

func (r *memoryLedgerRepo) GetPayment(ctx context.Context, id int64) (Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return Payment{}, ErrPaymentNotFound
	}
	return p, nil
}

func (r *memoryLedgerRepo) ListPayments(ctx context.Context, kind TargetKind, targetID int64, includeDeleted bool) ([]Payment, error) {
	var out []Payment
	for _, p := range r.payments {
		if p.Kind != kind || p.TargetID != targetID {
			continue
		}
		if !includeDeleted && !p.Active() {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (tx *memoryLedgerTx) GetTargetForUpdate(ctx context.Context, kind TargetKind, id int64) (Target, error) {
	return tx.repo.GetTarget(ctx, kind, id)
}

func (tx *memoryLedgerTx) SetAmountPaid(ctx context.Context, kind TargetKind, id int64, amountPaid decimal.Decimal) error {
	key := targetKey(kind, id)
	target, ok := tx.repo.targets[key]
	if !ok {
		return ErrTargetNotFound
	}
	target.AmountPaid = amountPaid
	tx.repo.targets[key] = target
	return nil
}

func (tx *memoryLedgerTx) NextPaymentNumber(ctx context.Context) (string, error) {
	tx.repo.seq++
	return fmt.Sprintf("PAY-%06d", tx.repo.seq), nil
}

func (tx *memoryLedgerTx) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	tx.repo.nextPayID++
	p.ID = tx.repo.nextPayID
	p.CreatedAt = time.Now().UTC()
	tx.repo.payments[p.ID] = p
	return p.ID, nil
}

func (tx *memoryLedgerTx) GetPaymentForUpdate(ctx context.Context, id int64) (Payment, error) {
	return tx.repo.GetPayment(ctx, id)
}

func (tx *memoryLedgerTx) MarkPaymentDeleted(ctx context.Context, id, actorID int64, at time.Time) error {
	p, ok := tx.repo.payments[id]
	if !ok {
		return ErrPaymentNotFound
	}
	p.DeletedAt = &at
	p.DeletedBy = &actorID
	tx.repo.payments[id] = p
	return nil
}

func (tx *memoryLedgerTx) SumActivePayments(ctx context.Context, kind TargetKind, targetID int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range tx.repo.payments {
		if p.Kind != kind || p.TargetID != targetID || !p.Active() {
			continue
		}
		sum = sum.Add(p.Amount)
	}
	return sum, nil
}

// negativeSumRepo hands out transactions whose active-payment sum comes back
// below zero, as a corrupted history would produce.
type negativeSumRepo struct {
	*memoryLedgerRepo
}

func (r *negativeSumRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &negativeSumTx{memoryLedgerTx{repo: r.memoryLedgerRepo}})
}

type negativeSumTx struct {
	memoryLedgerTx
}

func (tx *negativeSumTx) SumActivePayments(ctx context.Context, kind TargetKind, targetID int64) (decimal.Decimal, error) {
	return decimal.RequireFromString("-10.00"), nil
}

type fakeIdempotency struct {
	keys     map[string]bool
	released []string
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{keys: make(map[string]bool)}
}

func (f *fakeIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if f.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	f.keys[key] = true
	return nil
}

func (f *fakeIdempotency) Delete(ctx context.Context, key string) error {
	delete(f.keys, key)
	f.released = append(f.released, key)
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type countingInvalidator struct {
	bumps int
}

func (c *countingInvalidator) Bump(ctx context.Context) error {
	c.bumps++
	return nil
}

func apply(t *testing.T, svc *Service, kind TargetKind, targetID int64, amount string) Snapshot {
	t.Helper()
	snap, err := svc.ApplyPayment(context.Background(), ApplyPaymentInput{
		Kind:     kind,
		TargetID: targetID,
		Amount:   decimal.RequireFromString(amount),
		Method:   "CASH",
		ActorID:  7,
	})
	require.NoError(t, err)
	return snap
}

func TestApplyPaymentAccumulates(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.putTarget(TargetSale, 1, "100.00")
	svc := NewService(repo, nil, nil, nil)

	snap := apply(t, svc, TargetSale, 1, "40.00")
	require.Equal(t, "40.00", snap.AmountPaid.StringFixed(2))
	require.Equal(t, StatusPartial, snap.Status)
	require.Equal(t, "PAY-000001", snap.PaymentNumber)

	snap = apply(t, svc, TargetSale, 1, "60.00")
	require.Equal(t, "100.00", snap.AmountPaid.StringFixed(2))
	require.Equal(t, StatusPaid, snap.Status)
	require.Equal(t, "PAY-000002", snap.PaymentNumber)
}

func TestApplyPaymentRejectsOverpayment(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.putTarget(TargetCustomer, 5, "50.00")
	svc := NewService(repo, nil, nil, nil)

	apply(t, svc, TargetCustomer, 5, "30.00")

	_, err := svc.ApplyPayment(context.Background(), ApplyPaymentInput{
		Kind:     TargetCustomer,
		TargetID: 5,
		Amount:   decimal.RequireFromString("20.01"),
		Method:   "CASH",
	})
	require.ErrorIs(t, err, ErrOverpayment)

	// The rejected attempt must leave both the balance and history untouched.
	target, err := repo.GetTarget(context.Background(), TargetCustomer, 5)
	require.NoError(t, err)
	require.Equal(t, "30.00", target.AmountPaid.StringFixed(2))
	payments, err := svc.ListPayments(context.Background(), TargetCustomer, 5, true)
	require.NoError(t, err)
	require.Len(t, payments, 1)
}

func TestApplyPaymentExactSettlementAllowed(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.putTarget(TargetPurchase, 9, "75.50")
	svc := NewService(repo, nil, nil, nil)

	snap := apply(t, svc, TargetPurchase, 9, "75.50")
	require.Equal(t, StatusPaid, snap.Status)
	require.True(t, snap.AmountPaid.Equal(snap.TotalAmount))
}

func TestApplyPaymentRejectsNonPositiveAmounts(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.putTarget(TargetSale, 1, "10.00")
	svc := NewService(repo, nil, nil, nil)

	for _, amount := range []string{"0", "-5.00", "0.004"} {
		_, err := svc.ApplyPayment(context.Background(), ApplyPaymentInput{
			Kind:     TargetSale,
			TargetID: 1,
			Amount:   decimal.RequireFromString(amount),
			Method:   "CASH",
		})
		require.ErrorIs(t, err, ErrInvalidAmount, "amount %s", amount)
	}
}

func TestApplyPaymentRejectsSubCentPrecision(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.putTarget(TargetSale, 1, "100.00")
	svc := NewService(repo, nil, nil, nil)

	for _, amount := range []string{"0.005", "1.001", "12.345"} {
		_, err := svc.ApplyPayment(context.Background(), ApplyPaymentInput{
			Kind:     TargetSale,
			TargetID: 1,
			Amount:   decimal.RequireFromString(amount),
			Method:   "CASH",
		})
		require.ErrorIs(t, err, ErrInvalidAmount, "amount %s", amount)
	}

	// Trailing zeros carry no extra precision and stay accepted.
	snap := apply(t, svc, TargetSale, 1, "12.340")
	require.Equal(t, "12.34", snap.AmountPaid.StringFixed(2))
}

func TestApplyPaymentIdempotencyKeyDeduplicates(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.putTarget(TargetSale, 1, "100.00")
	idem := newFakeIdempotency()
	svc := NewService(repo, nil, idem, nil)

	_, err := svc.ApplyPayment(context.Background(), ApplyPaymentInput{
		Kind:           TargetSale,
		TargetID:       1,
		Amount:         decimal.RequireFromString("40.00"),
		Method:         "CASH",
		IdempotencyKey: "checkout-1",
	})
	require.NoError(t, err)

	_, err = svc.ApplyPayment(context.Background(), ApplyPaymentInput{
		Kind:           TargetSale,
		TargetID:       1,
		Amount:         decimal.RequireFromString("40.00"),
		Method:         "CASH",
		IdempotencyKey: "checkout-1",
	})
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)

	// The conflict must not release the key, and the retry must not apply.
	require.Empty(t, idem.released)
	payments, err := svc.ListPayments(context.Background(), TargetSale, 1, true)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	target, err := repo.GetTarget(context.Background(), TargetSale, 1)
	require.NoError(t, err)
	require.Equal(t, "40.00", target.AmountPaid.StringFixed(2))
}

func TestApplyPaymentReleasesKeyOnFailedTransaction(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.putTarget(TargetSale, 1, "10.00")
	idem := newFakeIdempotency()
	svc := NewService(repo, nil, idem, nil)

	_, err := svc.ApplyPayment(context.Background(), ApplyPaymentInput{
		Kind:           TargetSale,
		TargetID:       1,
		Amount:         decimal.RequireFromString("50.00"),
		Method:         "CASH",
		IdempotencyKey: "retry-1",
	})
	require.ErrorIs(t, err, ErrOverpayment)
	require.Equal(t, []string{"retry-1"}, idem.released)

	// A corrected retry may reuse the released key.
	_, err = svc.ApplyPayment(context.Background(), ApplyPaymentInput{
		Kind:           TargetSale,
		TargetID:       1,
		Amount:         decimal.RequireFromString("10.00"),
		Method:         "CASH",
		IdempotencyKey: "retry-1",
	})
	require.NoError(t, err)
}

func TestApplyPaymentUnknownTarget(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.ApplyPayment(context.Background(), ApplyPaymentInput{
		Kind:     TargetSupplier,
		TargetID: 404,
		Amount:   decimal.RequireFromString("1.00"),
		Method:   "CASH",
	})
	require.ErrorIs(t, err, ErrTargetNotFound)
}

func TestDeletePaymentRecomputesFromHistory(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.putTarget(TargetSale, 3, "100.00")
	svc := NewService(repo, nil, nil, nil)

	first := apply(t, svc, TargetSale, 3, "40.00")
	apply(t, svc, TargetSale, 3, "60.00")

	snap, err := svc.DeletePayment(context.Background(), first.PaymentID, 7)
	require.NoError(t, err)
	require.Equal(t, "60.00", snap.AmountPaid.StringFixed(2))
	require.Equal(t, StatusPartial, snap.Status)

	active, err := svc.ListPayments(context.Background(), TargetSale, 3, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	all, err := svc.ListPayments(context.Background(), TargetSale, 3, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestDeletePaymentTwiceFails(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.putTarget(TargetCustomer, 2, "20.00")
	svc := NewService(repo, nil, nil, nil)

	snap := apply(t, svc, TargetCustomer, 2, "20.00")
	_, err := svc.DeletePayment(context.Background(), snap.PaymentID, 1)
	require.NoError(t, err)

	_, err = svc.DeletePayment(context.Background(), snap.PaymentID, 1)
	require.ErrorIs(t, err, ErrPaymentNotFound)

	target, err := repo.GetTarget(context.Background(), TargetCustomer, 2)
	require.NoError(t, err)
	require.Equal(t, StatusUnpaid, target.Status())
}

func TestDeleteAllPaymentsReturnsToUnpaid(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.putTarget(TargetPurchase, 8, "90.00")
	svc := NewService(repo, nil, nil, nil)

	a := apply(t, svc, TargetPurchase, 8, "45.00")
	b := apply(t, svc, TargetPurchase, 8, "45.00")

	_, err := svc.DeletePayment(context.Background(), a.PaymentID, 1)
	require.NoError(t, err)
	snap, err := svc.DeletePayment(context.Background(), b.PaymentID, 1)
	require.NoError(t, err)
	require.True(t, snap.AmountPaid.IsZero())
	require.Equal(t, StatusUnpaid, snap.Status)
}

func TestDeletePaymentAbortsOnNegativeRecompute(t *testing.T) {
	base := newMemoryLedgerRepo()
	base.putTarget(TargetSale, 4, "50.00")
	snap := apply(t, NewService(base, nil, nil, nil), TargetSale, 4, "20.00")

	svc := NewService(&negativeSumRepo{memoryLedgerRepo: base}, nil, nil, nil)
	_, err := svc.DeletePayment(context.Background(), snap.PaymentID, 7)
	require.ErrorIs(t, err, ErrNegativeBalance)

	// The cached balance must not absorb the corrupt sum.
	target, err := base.GetTarget(context.Background(), TargetSale, 4)
	require.NoError(t, err)
	require.Equal(t, "20.00", target.AmountPaid.StringFixed(2))
}

func TestMutationsRecordAuditAndBumpReports(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.putTarget(TargetSale, 1, "100.00")
	audit := &recordingAudit{}
	invalidator := &countingInvalidator{}
	svc := NewService(repo, audit, nil, invalidator)

	snap := apply(t, svc, TargetSale, 1, "25.00")
	_, err := svc.DeletePayment(context.Background(), snap.PaymentID, 7)
	require.NoError(t, err)

	require.Len(t, audit.logs, 2)
	require.Equal(t, "payment.apply", audit.logs[0].Action)
	require.Equal(t, "payment.delete", audit.logs[1].Action)
	require.Equal(t, 2, invalidator.bumps)
}

func TestStatusForBoundaries(t *testing.T) {
	total := decimal.RequireFromString("100.00")
	require.Equal(t, StatusUnpaid, StatusFor(decimal.Zero, total))
	require.Equal(t, StatusPartial, StatusFor(decimal.RequireFromString("0.01"), total))
	require.Equal(t, StatusPartial, StatusFor(decimal.RequireFromString("99.99"), total))
	require.Equal(t, StatusPaid, StatusFor(total, total))
	require.Equal(t, StatusUnpaid, StatusFor(decimal.Zero, decimal.Zero))
}

func TestParseTargetKind(t *testing.T) {
	kind, err := ParseTargetKind(" customer ")
	require.NoError(t, err)
	require.Equal(t, TargetCustomer, kind)

	_, err = ParseTargetKind("INVOICE")
	require.Error(t, err)
}
