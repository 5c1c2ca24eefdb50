package application

import (
	"context"
	"errors"

	"github.com/wyfcoding/optionlab/internal/pricing/domain"
)

// ErrResultNotFound 标的没有任何定价记录
var ErrResultNotFound = errors.New("pricing result not found")

// maxHistoryLimit 单次历史查询的最大条数
const maxHistoryLimit = 1000

// PricingQueryService 处理定价结果查询
type PricingQueryService struct {
	repo         domain.PricingRepository
	historyLimit int
}

// NewPricingQueryService historyLimit 为未指定 limit 时的默认条数
func NewPricingQueryService(repo domain.PricingRepository, historyLimit int) *PricingQueryService {
	return &PricingQueryService{repo: repo, historyLimit: historyLimit}
}

// GetLatestResult 获取标的最新定价结果
func (q *PricingQueryService) GetLatestResult(ctx context.Context, symbol string) (*domain.PricingResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if symbol == "" {
		return nil, domain.InvalidParameter("symbol", "is required")
	}
	result, err := q.repo.GetLatest(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, ErrResultNotFound
	}
	return result, nil
}

// GetHistory 按计算时间倒序返回最多 limit 条结果，limit<=0 时使用默认条数
func (q *PricingQueryService) GetHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if symbol == "" {
		return nil, domain.InvalidParameter("symbol", "is required")
	}
	if limit <= 0 {
		limit = q.historyLimit
	}
	if limit > maxHistoryLimit {
		return nil, domain.InvalidParameter("limit", "must be at most %d, got %d", maxHistoryLimit, limit)
	}
	return q.repo.GetHistory(ctx, symbol, limit)
}
