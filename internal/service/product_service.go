package service

import (
	"context"
	"strings"

	"github.com/briansimoni/weewoo.study-sub000/internal/domain/entity"
	"github.com/briansimoni/weewoo.study-sub000/internal/domain/repository"
)

// ProductService работает с вариантами товаров магазина
type ProductService struct {
	variantRepo repository.ProductVariantRepository
}

func NewProductService(variantRepo repository.ProductVariantRepository) *ProductService {
	return &ProductService{variantRepo: variantRepo}
}

// SaveVariant создает или заменяет вариант вместе с индексом провайдера
func (s *ProductService) SaveVariant(ctx context.Context, variant entity.ProductVariant) (*entity.ProductVariant, error) {
	variant.ID = strings.TrimSpace(variant.ID)
	variant.PaymentProviderID = strings.TrimSpace(variant.PaymentProviderID)
	variant.Currency = strings.ToLower(strings.TrimSpace(variant.Currency))
	return s.variantRepo.Upsert(ctx, variant)
}

func (s *ProductService) GetVariant(ctx context.Context, id string) (*entity.ProductVariant, error) {
	return s.variantRepo.GetByID(ctx, id)
}

// GetVariantByPaymentProviderID используется при обработке событий оплаты
func (s *ProductService) GetVariantByPaymentProviderID(ctx context.Context, paymentProviderID string) (*entity.ProductVariant, error) {
	return s.variantRepo.GetByPaymentProviderID(ctx, strings.TrimSpace(paymentProviderID))
}

func (s *ProductService) ListVariants(ctx context.Context) ([]entity.ProductVariant, error) {
	return s.variantRepo.List(ctx)
}

func (s *ProductService) DeleteVariant(ctx context.Context, id string) error {
	return s.variantRepo.Delete(ctx, id)
}
