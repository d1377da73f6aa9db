package dto

import (
	"time"

	"github.com/briansimoni/weewoo.study-sub000/internal/domain/entity"
)

// ProductVariantRequest - создание или обновление варианта товара
type ProductVariantRequest struct {
	ID                   string `json:"id" binding:"required,max=128"`
	ProductID            string `json:"product_id" binding:"required,max=128"`
	Name                 string `json:"name" binding:"omitempty,max=200"`
	PriceCents           int64  `json:"price_cents" binding:"min=0"`
	Currency             string `json:"currency" binding:"omitempty,len=3"`
	PaymentProviderID    string `json:"payment_provider_id" binding:"omitempty,max=128"`
	FulfillmentVariantID string `json:"fulfillment_variant_id" binding:"omitempty,max=128"`
}

// ToEntity преобразует запрос в вариант товара
func (r *ProductVariantRequest) ToEntity() entity.ProductVariant {
	return entity.ProductVariant{
		ID:                   r.ID,
		ProductID:            r.ProductID,
		Name:                 r.Name,
		PriceCents:           r.PriceCents,
		Currency:             r.Currency,
		PaymentProviderID:    r.PaymentProviderID,
		FulfillmentVariantID: r.FulfillmentVariantID,
	}
}

// ProductVariantResponse - вариант товара в ответе API
type ProductVariantResponse struct {
	ID                   string    `json:"id"`
	ProductID            string    `json:"product_id"`
	Name                 string    `json:"name"`
	PriceCents           int64     `json:"price_cents"`
	Currency             string    `json:"currency"`
	PaymentProviderID    string    `json:"payment_provider_id,omitempty"`
	FulfillmentVariantID string    `json:"fulfillment_variant_id,omitempty"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// NewProductVariantResponse создает DTO варианта товара
func NewProductVariantResponse(v *entity.ProductVariant) ProductVariantResponse {
	return ProductVariantResponse{
		ID:                   v.ID,
		ProductID:            v.ProductID,
		Name:                 v.Name,
		PriceCents:           v.PriceCents,
		Currency:             v.Currency,
		PaymentProviderID:    v.PaymentProviderID,
		FulfillmentVariantID: v.FulfillmentVariantID,
		UpdatedAt:            v.UpdatedAt,
	}
}

// NewProductVariantListResponse создает DTO списка вариантов
func NewProductVariantListResponse(variants []entity.ProductVariant) []ProductVariantResponse {
	items := make([]ProductVariantResponse, 0, len(variants))
	for i := range variants {
		items = append(items, NewProductVariantResponse(&variants[i]))
	}
	return items
}
