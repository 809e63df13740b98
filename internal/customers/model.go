package customers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexcell-pos/nexcell-pos/internal/ledger"
)

// Customer represents a customer entity. DebtTotal/DebtPaid make the
// customer a ledger target: unpaid sale remainders accumulate into
// DebtTotal and payments settle against it.
type Customer struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
	Email     string          `json:"email"`
	Address   string          `json:"address"`
	DebtTotal decimal.Decimal `json:"debt_total"`
	DebtPaid  decimal.Decimal `json:"debt_paid"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// DebtStatus derives the settlement classification of the customer's debt.
func (c Customer) DebtStatus() ledger.PaymentStatus {
	return ledger.StatusFor(c.DebtPaid, c.DebtTotal)
}
