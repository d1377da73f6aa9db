package entity

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/briansimoni/weewoo.study-sub000/internal/pkg/errors"
)

// ProductVariant - вариант товара магазина.
// PaymentProviderID - идентификатор цены у платежного провайдера; по нему
// поддерживается вторичный индекс, указывающий обратно на вариант.
type ProductVariant struct {
	ID                   string    `json:"id"`
	ProductID            string    `json:"product_id"`
	Name                 string    `json:"name"`
	PriceCents           int64     `json:"price_cents"`
	Currency             string    `json:"currency"`
	PaymentProviderID    string    `json:"payment_provider_id"`
	FulfillmentVariantID string    `json:"fulfillment_variant_id"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Validate проверяет вариант товара
func (v *ProductVariant) Validate() error {
	if strings.TrimSpace(v.ID) == "" || strings.TrimSpace(v.ProductID) == "" {
		return fmt.Errorf("%w: id and product_id are required", apperrors.ErrValidation)
	}
	if strings.ContainsAny(v.ID+v.PaymentProviderID, ":*?[]\\") {
		return fmt.Errorf("%w: identifiers contain reserved characters", apperrors.ErrValidation)
	}
	if v.PriceCents < 0 {
		return fmt.Errorf("%w: price_cents must not be negative", apperrors.ErrValidation)
	}
	return nil
}
