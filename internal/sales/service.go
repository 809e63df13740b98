package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexcell-pos/nexcell-pos/internal/ledger"
	"github.com/nexcell-pos/nexcell-pos/internal/platform/httpx"
	"github.com/nexcell-pos/nexcell-pos/internal/shared"
)

// LedgerPort is the slice of the reconciliation service sales depends on.
type LedgerPort interface {
	ApplyPayment(ctx context.Context, input ledger.ApplyPaymentInput) (ledger.Snapshot, error)
}

// Invalidator bumps the report cache after a mutation.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service handles sale business logic.
type Service struct {
	repo       Repository
	ledger     LedgerPort
	invalidate Invalidator
}

// NewService builds a Service instance. invalidate may be nil.
func NewService(repo Repository, ledgerSvc LedgerPort, invalidate Invalidator) *Service {
	return &Service{repo: repo, ledger: ledgerSvc, invalidate: invalidate}
}

// LineInput is one requested sale position.
type LineInput struct {
	PhoneID   int64
	Qty       int
	UnitPrice decimal.Decimal
}

// CreateInput carries everything needed to record a sale.
type CreateInput struct {
	CustomerID int64
	Lines      []LineInput
	Note       string
	// PaidNow, when positive, is applied through the ledger immediately
	// after the sale is recorded.
	PaidNow decimal.Decimal
	Method  string
	ActorID int64
}

// Create records the sale and, when requested, settles part of it right away.
func (s *Service) Create(ctx context.Context, input CreateInput) (Sale, error) {
	if input.CustomerID <= 0 {
		return Sale{}, fmt.Errorf("%w: customer is required", httpx.ErrValidation)
	}
	if len(input.Lines) == 0 {
		return Sale{}, ErrEmptySale
	}

	sale := Sale{
		CustomerID: input.CustomerID,
		Note:       input.Note,
		CreatedBy:  input.ActorID,
	}
	total := decimal.Zero
	for _, in := range input.Lines {
		if in.PhoneID <= 0 || in.Qty <= 0 {
			return Sale{}, fmt.Errorf("%w: line requires a phone and a positive qty", httpx.ErrValidation)
		}
		price := in.UnitPrice.Round(2)
		if !price.IsPositive() {
			return Sale{}, fmt.Errorf("%w: unit price must be positive", httpx.ErrValidation)
		}
		lineTotal := price.Mul(decimal.NewFromInt(int64(in.Qty)))
		sale.Lines = append(sale.Lines, Line{
			PhoneID:   in.PhoneID,
			Qty:       in.Qty,
			UnitPrice: price,
			LineTotal: lineTotal,
		})
		total = total.Add(lineTotal)
	}
	sale.TotalAmount = total

	created, err := s.repo.Create(ctx, sale)
	if err != nil {
		return Sale{}, err
	}

	if input.PaidNow.IsPositive() {
		snap, err := s.ledger.ApplyPayment(ctx, ledger.ApplyPaymentInput{
			Kind:     ledger.TargetSale,
			TargetID: created.ID,
			Amount:   input.PaidNow,
			Method:   input.Method,
			PaidAt:   time.Now(),
			ActorID:  input.ActorID,
		})
		if err != nil {
			// The sale itself committed; surface the payment failure so the
			// caller can retry it through the ledger endpoint.
			return created, fmt.Errorf("sale %s recorded, payment failed: %w", created.Number, err)
		}
		created.AmountPaid = snap.AmountPaid
	}

	s.bump(ctx)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Sale, error) {
	if id <= 0 {
		return Sale{}, fmt.Errorf("%w: invalid sale ID", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Sale, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidate == nil {
		return
	}
	_ = s.invalidate.Bump(ctx)
}
