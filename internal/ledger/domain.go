package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TargetKind enumerates the entities a payment can settle against. A single
// payment reconciles against exactly one target.
type TargetKind string

const (
	TargetCustomer TargetKind = "CUSTOMER"
	TargetSupplier TargetKind = "SUPPLIER"
	TargetSale     TargetKind = "SALE"
	TargetPurchase TargetKind = "PURCHASE"
)

// ParseTargetKind normalises and validates a target kind string.
func ParseTargetKind(s string) (TargetKind, error) {
	k := TargetKind(strings.ToUpper(strings.TrimSpace(s)))
	switch k {
	case TargetCustomer, TargetSupplier, TargetSale, TargetPurchase:
		return k, nil
	}
	return "", fmt.Errorf("ledger: unknown target kind %q", s)
}

// PaymentStatus classifies how much of a target has been settled. It is
// derived from the amounts and never stored, so it cannot go stale.
type PaymentStatus string

const (
	StatusUnpaid  PaymentStatus = "UNPAID"
	StatusPartial PaymentStatus = "PARTIAL"
	StatusPaid    PaymentStatus = "PAID"
)

// StatusFor derives the payment status from a paid/total pair.
func StatusFor(amountPaid, totalAmount decimal.Decimal) PaymentStatus {
	switch {
	case amountPaid.GreaterThanOrEqual(totalAmount) && totalAmount.IsPositive():
		return StatusPaid
	case amountPaid.IsPositive():
		return StatusPartial
	default:
		return StatusUnpaid
	}
}

// Target is a snapshot of a ledger target's amounts. TotalAmount is fixed
// once the underlying record is created; AmountPaid is the cached running
// total of all active payments.
type Target struct {
	Kind        TargetKind      `json:"kind"`
	ID          int64           `json:"id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
}

// Status derives the settlement classification for the target.
func (t Target) Status() PaymentStatus {
	return StatusFor(t.AmountPaid, t.TotalAmount)
}

// Outstanding returns the unsettled remainder.
func (t Target) Outstanding() decimal.Decimal {
	return t.TotalAmount.Sub(t.AmountPaid)
}

// Payment is an immutable ledger event. Payments are soft-deleted, never
// physically removed, so historic balances stay auditable.
type Payment struct {
	ID        int64           `json:"id"`
	Number    string          `json:"number"`
	Kind      TargetKind      `json:"target_kind"`
	TargetID  int64           `json:"target_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Note      string          `json:"note,omitempty"`
	PaidAt    time.Time       `json:"paid_at"`
	CreatedBy int64           `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty"`
	DeletedBy *int64          `json:"deleted_by,omitempty"`
}

// Active reports whether the payment still counts toward its target.
func (p Payment) Active() bool {
	return p.DeletedAt == nil
}

// ApplyPaymentInput carries everything needed to record a payment.
type ApplyPaymentInput struct {
	Kind           TargetKind
	TargetID       int64
	Amount         decimal.Decimal
	Method         string
	Note           string
	PaidAt         time.Time
	ActorID        int64
	IdempotencyKey string
}

// Snapshot is returned from reconciliation operations: the target's new
// cached amount and derived status, plus the payment involved.
type Snapshot struct {
	Kind          TargetKind      `json:"target_kind"`
	TargetID      int64           `json:"target_id"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        PaymentStatus   `json:"status"`
	PaymentID     int64           `json:"payment_id,omitempty"`
	PaymentNumber string          `json:"payment_number,omitempty"`
}

var (
	// ErrTargetNotFound means the target does not exist or is soft-deleted.
	ErrTargetNotFound = errors.New("ledger: target not found")
	// ErrPaymentNotFound means the payment does not exist or was already deleted.
	ErrPaymentNotFound = errors.New("ledger: payment not found")
	// ErrInvalidAmount rejects zero or negative payment amounts.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
	// ErrOverpayment rejects payments that would push amount_paid past the total.
	ErrOverpayment = errors.New("ledger: payment exceeds outstanding balance")
	// ErrNegativeBalance signals a recomputed balance below zero, which the
	// schema should make impossible.
	ErrNegativeBalance = errors.New("ledger: recomputed balance is negative")
)
