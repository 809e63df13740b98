package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Condition enumerates the sale condition of a phone.
type Condition string

const (
	ConditionNew         Condition = "NEW"
	ConditionUsed        Condition = "USED"
	ConditionRefurbished Condition = "REFURBISHED"
)

// Valid reports whether the condition is a known value.
func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionUsed, ConditionRefurbished:
		return true
	}
	return false
}

// Phone represents a phone model tracked in the catalog. IMEI is set for
// serialized single units (typically used devices); bulk stock of the same
// model shares one row with a quantity.
type Phone struct {
	ID            int64           `json:"id"`
	SKU           string          `json:"sku"`
	Brand         string          `json:"brand"`
	Model         string          `json:"model"`
	IMEI          *string         `json:"imei,omitempty"`
	Condition     Condition       `json:"condition"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	StockQty      int             `json:"stock_qty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
