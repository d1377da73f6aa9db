package repository

import (
	"context"

	"github.com/briansimoni/weewoo.study-sub000/internal/domain/entity"
)

// ProductVariantRepository определяет методы вариантов товара и индекса по ID платежного провайдера
type ProductVariantRepository interface {
	Upsert(ctx context.Context, variant entity.ProductVariant) (*entity.ProductVariant, error)
	GetByID(ctx context.Context, id string) (*entity.ProductVariant, error)
	GetByPaymentProviderID(ctx context.Context, paymentProviderID string) (*entity.ProductVariant, error)
	List(ctx context.Context) ([]entity.ProductVariant, error)
	Delete(ctx context.Context, id string) error
}
