package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/briansimoni/weewoo.study-sub000/internal/domain/entity"
	apperrors "github.com/briansimoni/weewoo.study-sub000/internal/pkg/errors"
)

// ProductVariantRepo хранит варианты товаров и индекс payment_provider_id -> id варианта.
// Индекс - указатель на вариант; он переносится в том же коммите, что и сам вариант.
type ProductVariantRepo struct {
	kv   *KVStore
	opts Options
}

// NewProductVariantRepo создает хранилище вариантов товаров
func NewProductVariantRepo(kv *KVStore, opts Options) *ProductVariantRepo {
	return &ProductVariantRepo{kv: kv, opts: opts.withDefaults()}
}

// Upsert создает или заменяет вариант. Если payment_provider_id уже принадлежит
// другому варианту, возвращается ErrAlreadyExists.
func (r *ProductVariantRepo) Upsert(ctx context.Context, variant entity.ProductVariant) (*entity.ProductVariant, error) {
	if err := variant.Validate(); err != nil {
		return nil, err
	}

	var result *entity.ProductVariant
	err := RetryOnConflict(ctx, r.opts.MaxCommitAttempts, func(ctx context.Context) error {
		key := productVariantKey(variant.ID)

		var current entity.ProductVariant
		version, err := r.kv.getJSON(ctx, key, &current)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		exists := version != ""

		next := variant
		next.UpdatedAt = r.opts.now()
		raw, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to encode product variant: %w", err)
		}

		checks := []Check{{Key: key, Version: version}}
		mutations := []Mutation{SetMutation(key, raw, 0)}

		if exists && current.PaymentProviderID != "" && current.PaymentProviderID != next.PaymentProviderID {
			oldIndex := variantProviderKey(current.PaymentProviderID)
			pointerVersion, err := r.kv.versionOrAbsent(ctx, oldIndex)
			if err != nil {
				return err
			}
			if pointerVersion == Version([]byte(next.ID)) {
				checks = append(checks, Check{Key: oldIndex, Version: pointerVersion})
				mutations = append(mutations, DeleteMutation(oldIndex))
			}
		}

		if next.PaymentProviderID != "" {
			indexKey := variantProviderKey(next.PaymentProviderID)
			owner, err := r.kv.Get(ctx, indexKey)
			switch {
			case errors.Is(err, apperrors.ErrNotFound):
				checks = append(checks, Check{Key: indexKey})
			case err != nil:
				return err
			case string(owner.Value) != next.ID:
				return fmt.Errorf("payment provider id %s is owned by variant %s: %w",
					next.PaymentProviderID, owner.Value, apperrors.ErrAlreadyExists)
			default:
				checks = append(checks, Check{Key: indexKey, Version: owner.Version})
			}
			mutations = append(mutations, SetMutation(indexKey, []byte(next.ID), 0))
		}

		if err := r.kv.Commit(ctx, checks, mutations); err != nil {
			return err
		}
		result = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.opts.Logger.Info("product variant saved",
		zap.String("variant_id", result.ID),
		zap.String("payment_provider_id", result.PaymentProviderID))
	return result, nil
}

// GetByID возвращает вариант товара
func (r *ProductVariantRepo) GetByID(ctx context.Context, id string) (*entity.ProductVariant, error) {
	var variant entity.ProductVariant
	if _, err := r.kv.getJSON(ctx, productVariantKey(id), &variant); err != nil {
		return nil, err
	}
	return &variant, nil
}

// GetByPaymentProviderID разрешает указатель индекса.
// Указатель на удаленный или перепривязанный вариант считается отсутствующим.
func (r *ProductVariantRepo) GetByPaymentProviderID(ctx context.Context, paymentProviderID string) (*entity.ProductVariant, error) {
	pointer, err := r.kv.Get(ctx, variantProviderKey(paymentProviderID))
	if err != nil {
		return nil, err
	}
	variant, err := r.GetByID(ctx, string(pointer.Value))
	if err != nil {
		return nil, err
	}
	if variant.PaymentProviderID != paymentProviderID {
		r.opts.Logger.Warn("dangling payment provider index entry",
			zap.String("payment_provider_id", paymentProviderID),
			zap.String("variant_id", variant.ID))
		return nil, fmt.Errorf("payment provider id %s: %w", paymentProviderID, apperrors.ErrNotFound)
	}
	return variant, nil
}

// List возвращает все варианты, упорядоченные по id
func (r *ProductVariantRepo) List(ctx context.Context) ([]entity.ProductVariant, error) {
	entries, err := r.kv.Scan(ctx, productVariantPrefix, ScanOptions{})
	if err != nil {
		return nil, err
	}
	variants := make([]entity.ProductVariant, 0, len(entries))
	for _, entry := range entries {
		var variant entity.ProductVariant
		if err := json.Unmarshal(entry.Value, &variant); err != nil {
			r.opts.Logger.Warn("skipping undecodable product variant", zap.String("key", entry.Key), zap.Error(err))
			continue
		}
		variants = append(variants, variant)
	}
	return variants, nil
}

// Delete удаляет вариант вместе с его записью индекса
func (r *ProductVariantRepo) Delete(ctx context.Context, id string) error {
	return RetryOnConflict(ctx, r.opts.MaxCommitAttempts, func(ctx context.Context) error {
		var variant entity.ProductVariant
		version, err := r.kv.getJSON(ctx, productVariantKey(id), &variant)
		if err != nil {
			return err
		}
		mutations := []Mutation{DeleteMutation(productVariantKey(id))}
		checks := []Check{{Key: productVariantKey(id), Version: version}}
		if variant.PaymentProviderID != "" {
			indexKey := variantProviderKey(variant.PaymentProviderID)
			pointerVersion, err := r.kv.versionOrAbsent(ctx, indexKey)
			if err != nil {
				return err
			}
			// Индекс удаляется, только если он всё ещё указывает на этот вариант
			if pointerVersion == Version([]byte(id)) {
				checks = append(checks, Check{Key: indexKey, Version: pointerVersion})
				mutations = append(mutations, DeleteMutation(indexKey))
			}
		}
		return r.kv.Commit(ctx, checks, mutations)
	})
}
