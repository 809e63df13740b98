package purchases

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexcell-pos/nexcell-pos/internal/ledger"
)

// Purchase is a stock intake document from a supplier. TotalAmount/AmountPaid
// make the row a ledger target; Status is always derived, never stored.
type Purchase struct {
	ID          int64           `json:"id"`
	Number      string          `json:"number"`
	SupplierID  int64           `json:"supplier_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Note        string          `json:"note,omitempty"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Lines       []Line          `json:"lines,omitempty"`
}

// Status derives the settlement classification from the cached pair.
func (p Purchase) Status() ledger.PaymentStatus {
	return ledger.StatusFor(p.AmountPaid, p.TotalAmount)
}

// Line is one phone position on a purchase.
type Line struct {
	ID         int64           `json:"id"`
	PurchaseID int64           `json:"purchase_id"`
	PhoneID    int64           `json:"phone_id"`
	Qty        int             `json:"qty"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

// ErrEmptyPurchase is returned when a purchase carries no lines.
var ErrEmptyPurchase = errors.New("purchases: purchase requires at least one line")
