package catalog

import (
	"fmt"
	"strings"

	"github.com/nexcell-pos/nexcell-pos/internal/platform/httpx"
)

func (s *Service) validate(phone Phone) error {
	if strings.TrimSpace(phone.SKU) == "" {
		return fmt.Errorf("%w: SKU is required", httpx.ErrValidation)
	}
	if strings.TrimSpace(phone.Brand) == "" || strings.TrimSpace(phone.Model) == "" {
		return fmt.Errorf("%w: brand and model are required", httpx.ErrValidation)
	}
	if !phone.Condition.Valid() {
		return fmt.Errorf("%w: unknown condition", httpx.ErrValidation)
	}
	if phone.PurchasePrice.IsNegative() || phone.SalePrice.IsNegative() {
		return fmt.Errorf("%w: prices must not be negative", httpx.ErrValidation)
	}
	if phone.StockQty < 0 {
		return fmt.Errorf("%w: stock quantity must not be negative", httpx.ErrValidation)
	}
	if phone.IMEI != nil {
		imei := strings.TrimSpace(*phone.IMEI)
		if imei != "" && len(imei) != 15 {
			return fmt.Errorf("%w: IMEI must be 15 digits", httpx.ErrValidation)
		}
	}
	return nil
}
