package suppliers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexcell-pos/nexcell-pos/internal/ledger"
)

// Supplier represents a supplier entity. PayableTotal/PayablePaid make the
// supplier a ledger target: unpaid purchase remainders accumulate into
// PayableTotal and outgoing payments settle against it.
type Supplier struct {
	ID           int64           `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Phone        string          `json:"phone"`
	Email        string          `json:"email"`
	Address      string          `json:"address"`
	PayableTotal decimal.Decimal `json:"payable_total"`
	PayablePaid  decimal.Decimal `json:"payable_paid"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// PayableStatus derives the settlement classification of the amount owed
// to the supplier.
func (s Supplier) PayableStatus() ledger.PaymentStatus {
	return ledger.StatusFor(s.PayablePaid, s.PayableTotal)
}
