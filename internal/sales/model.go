package sales

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexcell-pos/nexcell-pos/internal/ledger"
)

// Sale is a finalized sale document. TotalAmount/AmountPaid make the row a
// ledger target; Status is always derived from that pair, never stored.
type Sale struct {
	ID          int64           `json:"id"`
	Number      string          `json:"number"`
	CustomerID  int64           `json:"customer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Note        string          `json:"note,omitempty"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Lines       []Line          `json:"lines,omitempty"`
}

// Status derives the settlement classification from the cached pair.
func (s Sale) Status() ledger.PaymentStatus {
	return ledger.StatusFor(s.AmountPaid, s.TotalAmount)
}

// Line is one phone position on a sale.
type Line struct {
	ID        int64           `json:"id"`
	SaleID    int64           `json:"sale_id"`
	PhoneID   int64           `json:"phone_id"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

var (
	// ErrInsufficientStock is returned when a line asks for more units than
	// the phone has on hand.
	ErrInsufficientStock = errors.New("sales: insufficient stock")
	// ErrEmptySale is returned when a sale carries no lines.
	ErrEmptySale = errors.New("sales: sale requires at least one line")
)
