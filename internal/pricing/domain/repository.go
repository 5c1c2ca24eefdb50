package domain

import (
	"context"
	"time"
)

// PricingRepository 定价结果仓储
type PricingRepository interface {
	// WithTx 在事务中执行 fn，事务通过 ctx 传递给仓储和事件发布者
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	SaveResult(ctx context.Context, result *PricingResult) error
	// GetLatest 不存在时返回 nil, nil
	GetLatest(ctx context.Context, symbol string) (*PricingResult, error)
	GetHistory(ctx context.Context, symbol string, limit int) ([]*PricingResult, error)
}

// PricingCache 按请求指纹缓存定价结果
type PricingCache interface {
	// Get 未命中时返回 nil, nil
	Get(ctx context.Context, fingerprint string) (*PricingResult, error)
	Set(ctx context.Context, fingerprint string, result *PricingResult, ttl time.Duration) error
}
