package ledger

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexcell-pos/nexcell-pos/internal/shared"
)

// TxRepository exposes the operations available inside a reconciliation
// transaction. GetTargetForUpdate must lock the target row so two payments
// against the same target serialise instead of both reading a stale balance.
type TxRepository interface {
	GetTargetForUpdate(ctx context.Context, kind TargetKind, id int64) (Target, error)
	SetAmountPaid(ctx context.Context, kind TargetKind, id int64, amountPaid decimal.Decimal) error
	NextPaymentNumber(ctx context.Context) (string, error)
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	GetPaymentForUpdate(ctx context.Context, id int64) (Payment, error)
	MarkPaymentDeleted(ctx context.Context, id, actorID int64, at time.Time) error
	SumActivePayments(ctx context.Context, kind TargetKind, targetID int64) (decimal.Decimal, error)
}

// RepositoryPort abstracts persistence for the reconciliation service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetTarget(ctx context.Context, kind TargetKind, id int64) (Target, error)
	GetPayment(ctx context.Context, id int64) (Payment, error)
	ListPayments(ctx context.Context, kind TargetKind, targetID int64, includeDeleted bool) ([]Payment, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// InvalidatorPort bumps the report cache after a reconciliation mutation.
type InvalidatorPort interface {
	Bump(ctx context.Context) error
}

// IdempotencyPort deduplicates retried payment requests by key. Delete rolls
// a key back when the guarded transaction fails so the client may retry.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service applies payments against ledger targets and keeps the cached
// running totals consistent with the payment event history.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	invalidate  InvalidatorPort
}

// NewService builds a Service. audit, idem, and invalidate may be nil.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, invalidate InvalidatorPort) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, invalidate: invalidate}
}

// ApplyPayment records a payment against a target and updates its cached
// amount_paid atomically. Overpayments are rejected: the shop corrects
// mistakes by deleting the wrong payment, it does not track customer credit.
func (s *Service) ApplyPayment(ctx context.Context, input ApplyPaymentInput) (Snapshot, error) {
	amount := input.Amount
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return Snapshot{}, ErrInvalidAmount
	}
	if input.PaidAt.IsZero() {
		input.PaidAt = time.Now().UTC()
	}

	if input.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "ledger"); err != nil {
			return Snapshot{}, err
		}
	}

	var snap Snapshot
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		target, err := tx.GetTargetForUpdate(ctx, input.Kind, input.TargetID)
		if err != nil {
			return err
		}

		newPaid := target.AmountPaid.Add(amount)
		if newPaid.GreaterThan(target.TotalAmount) {
			return ErrOverpayment
		}

		number, err := tx.NextPaymentNumber(ctx)
		if err != nil {
			return err
		}
		paymentID, err := tx.InsertPayment(ctx, Payment{
			Number:    number,
			Kind:      input.Kind,
			TargetID:  input.TargetID,
			Amount:    amount,
			Method:    input.Method,
			Note:      input.Note,
			PaidAt:    input.PaidAt,
			CreatedBy: input.ActorID,
		})
		if err != nil {
			return err
		}
		if err := tx.SetAmountPaid(ctx, input.Kind, input.TargetID, newPaid); err != nil {
			return err
		}

		snap = Snapshot{
			Kind:          input.Kind,
			TargetID:      input.TargetID,
			AmountPaid:    newPaid,
			TotalAmount:   target.TotalAmount,
			Status:        StatusFor(newPaid, target.TotalAmount),
			PaymentID:     paymentID,
			PaymentNumber: number,
		}
		return nil
	})
	if err != nil {
		if input.IdempotencyKey != "" && s.idempotency != nil && !errors.Is(err, shared.ErrIdempotencyConflict) {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		return Snapshot{}, err
	}

	s.recordAudit(ctx, input.ActorID, "payment.apply", snap.PaymentID, map[string]any{
		"target_kind": string(input.Kind),
		"target_id":   input.TargetID,
		"amount":      amount.StringFixed(2),
		"method":      input.Method,
	})
	s.bump(ctx)
	return snap, nil
}

// DeletePayment soft-deletes a payment and recomputes the owning target's
// cached amount as the sum of all still-active payments. Recomputing from
// the event history, rather than subtracting, stays correct when concurrent
// corrections touch the same target.
func (s *Service) DeletePayment(ctx context.Context, paymentID, actorID int64) (Snapshot, error) {
	var snap Snapshot
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		payment, err := tx.GetPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if !payment.Active() {
			return ErrPaymentNotFound
		}

		target, err := tx.GetTargetForUpdate(ctx, payment.Kind, payment.TargetID)
		if err != nil {
			return err
		}

		if err := tx.MarkPaymentDeleted(ctx, paymentID, actorID, time.Now().UTC()); err != nil {
			return err
		}

		sum, err := tx.SumActivePayments(ctx, payment.Kind, payment.TargetID)
		if err != nil {
			return err
		}
		if sum.IsNegative() {
			return ErrNegativeBalance
		}
		if err := tx.SetAmountPaid(ctx, payment.Kind, payment.TargetID, sum); err != nil {
			return err
		}

		snap = Snapshot{
			Kind:        payment.Kind,
			TargetID:    payment.TargetID,
			AmountPaid:  sum,
			TotalAmount: target.TotalAmount,
			Status:      StatusFor(sum, target.TotalAmount),
			PaymentID:   paymentID,
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	s.recordAudit(ctx, actorID, "payment.delete", paymentID, map[string]any{
		"target_kind": string(snap.Kind),
		"target_id":   snap.TargetID,
	})
	s.bump(ctx)
	return snap, nil
}

// GetTarget returns the current snapshot for a ledger target.
func (s *Service) GetTarget(ctx context.Context, kind TargetKind, id int64) (Snapshot, error) {
	target, err := s.repo.GetTarget(ctx, kind, id)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Kind:        target.Kind,
		TargetID:    target.ID,
		AmountPaid:  target.AmountPaid,
		TotalAmount: target.TotalAmount,
		Status:      target.Status(),
	}, nil
}

// ListPayments returns the payment history for a target, newest first.
func (s *Service) ListPayments(ctx context.Context, kind TargetKind, targetID int64, includeDeleted bool) ([]Payment, error) {
	return s.repo.ListPayments(ctx, kind, targetID, includeDeleted)
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidate == nil {
		return
	}
	_ = s.invalidate.Bump(ctx)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, paymentID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "payment",
		EntityID: strconv.FormatInt(paymentID, 10),
		Meta:     meta,
		At:       time.Now().UTC(),
	})
}
