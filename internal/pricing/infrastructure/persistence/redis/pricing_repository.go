package redis

import (
	"context"
	"time"

	"github.com/wyfcoding/optionlab/internal/pricing/domain"
)

const resultPrefix = "pricing:result:"

// JSONStore 由 cache.RedisCache 实现
type JSONStore interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// PricingCache 按请求指纹缓存定价结果
type PricingCache struct {
	store JSONStore
}

func NewPricingCache(store JSONStore) *PricingCache {
	return &PricingCache{store: store}
}

func (c *PricingCache) Get(ctx context.Context, fingerprint string) (*domain.PricingResult, error) {
	var result domain.PricingResult
	found, err := c.store.GetJSON(ctx, resultKey(fingerprint), &result)
	if err != nil || !found {
		return nil, err
	}
	return &result, nil
}

func (c *PricingCache) Set(ctx context.Context, fingerprint string, result *domain.PricingResult, ttl time.Duration) error {
	if result == nil {
		return nil
	}
	return c.store.SetJSON(ctx, resultKey(fingerprint), result, ttl)
}

func resultKey(fingerprint string) string {
	return resultPrefix + fingerprint
}
