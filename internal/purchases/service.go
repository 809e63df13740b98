package purchases

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexcell-pos/nexcell-pos/internal/ledger"
	"github.com/nexcell-pos/nexcell-pos/internal/platform/httpx"
	"github.com/nexcell-pos/nexcell-pos/internal/shared"
)

// LedgerPort is the slice of the reconciliation service purchases depend on.
type LedgerPort interface {
	ApplyPayment(ctx context.Context, input ledger.ApplyPaymentInput) (ledger.Snapshot, error)
}

// Invalidator bumps the report cache after a mutation.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service handles purchase business logic.
type Service struct {
	repo       Repository
	ledger     LedgerPort
	invalidate Invalidator
}

// NewService builds a Service instance. invalidate may be nil.
func NewService(repo Repository, ledgerSvc LedgerPort, invalidate Invalidator) *Service {
	return &Service{repo: repo, ledger: ledgerSvc, invalidate: invalidate}
}

// LineInput is one requested purchase position.
type LineInput struct {
	PhoneID  int64
	Qty      int
	UnitCost decimal.Decimal
}

// CreateInput carries everything needed to record a purchase.
type CreateInput struct {
	SupplierID int64
	Lines      []LineInput
	Note       string
	// PaidNow, when positive, is settled through the ledger immediately
	// after the purchase is recorded.
	PaidNow decimal.Decimal
	Method  string
	ActorID int64
}

// Create records the purchase and, when requested, settles part of it right away.
func (s *Service) Create(ctx context.Context, input CreateInput) (Purchase, error) {
	if input.SupplierID <= 0 {
		return Purchase{}, fmt.Errorf("%w: supplier is required", httpx.ErrValidation)
	}
	if len(input.Lines) == 0 {
		return Purchase{}, ErrEmptyPurchase
	}

	purchase := Purchase{
		SupplierID: input.SupplierID,
		Note:       input.Note,
		CreatedBy:  input.ActorID,
	}
	total := decimal.Zero
	for _, in := range input.Lines {
		if in.PhoneID <= 0 || in.Qty <= 0 {
			return Purchase{}, fmt.Errorf("%w: line requires a phone and a positive qty", httpx.ErrValidation)
		}
		cost := in.UnitCost.Round(2)
		if !cost.IsPositive() {
			return Purchase{}, fmt.Errorf("%w: unit cost must be positive", httpx.ErrValidation)
		}
		lineTotal := cost.Mul(decimal.NewFromInt(int64(in.Qty)))
		purchase.Lines = append(purchase.Lines, Line{
			PhoneID:   in.PhoneID,
			Qty:       in.Qty,
			UnitCost:  cost,
			LineTotal: lineTotal,
		})
		total = total.Add(lineTotal)
	}
	purchase.TotalAmount = total

	created, err := s.repo.Create(ctx, purchase)
	if err != nil {
		return Purchase{}, err
	}

	if input.PaidNow.IsPositive() {
		snap, err := s.ledger.ApplyPayment(ctx, ledger.ApplyPaymentInput{
			Kind:     ledger.TargetPurchase,
			TargetID: created.ID,
			Amount:   input.PaidNow,
			Method:   input.Method,
			PaidAt:   time.Now(),
			ActorID:  input.ActorID,
		})
		if err != nil {
			return created, fmt.Errorf("purchase %s recorded, payment failed: %w", created.Number, err)
		}
		created.AmountPaid = snap.AmountPaid
	}

	s.bump(ctx)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Purchase, error) {
	if id <= 0 {
		return Purchase{}, fmt.Errorf("%w: invalid purchase ID", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Purchase, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidate == nil {
		return
	}
	_ = s.invalidate.Bump(ctx)
}
