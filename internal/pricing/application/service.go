package application

import (
	"context"

	"github.com/wyfcoding/optionlab/internal/pricing/domain"
	"github.com/wyfcoding/optionlab/pkg/metrics"
)

// PricingService 定价门面服务
type PricingService struct {
	Command *PricingCommandService
	Query   *PricingQueryService
}

// NewPricingService 构造门面。publisher、cache、collector 可以为 nil。
func NewPricingService(repo domain.PricingRepository, publisher domain.EventPublisher, cache domain.PricingCache, collector metrics.Collector, opts Options) *PricingService {
	return &PricingService{
		Command: NewPricingCommandService(repo, publisher, cache, collector, opts),
		Query:   NewPricingQueryService(repo, opts.HistoryLimit),
	}
}

// --- Command Facade ---

func (s *PricingService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*domain.PricingResult, error) {
	return s.Command.PriceOption(ctx, cmd)
}

func (s *PricingService) SimulatePaths(ctx context.Context, cmd SimulatePathsCommand) (*SimulatePathsResult, error) {
	return s.Command.SimulatePaths(ctx, cmd)
}

func (s *PricingService) BatchPriceOptions(ctx context.Context, cmd BatchPriceOptionsCommand) (*BatchPricingResult, error) {
	return s.Command.BatchPriceOptions(ctx, cmd)
}

// --- Query Facade ---

func (s *PricingService) GetLatestResult(ctx context.Context, symbol string) (*domain.PricingResult, error) {
	return s.Query.GetLatestResult(ctx, symbol)
}

func (s *PricingService) GetHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	return s.Query.GetHistory(ctx, symbol, limit)
}
