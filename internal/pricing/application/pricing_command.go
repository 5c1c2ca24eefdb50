package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/optionlab/internal/pricing/domain"
	"github.com/wyfcoding/optionlab/pkg/logger"
	"github.com/wyfcoding/optionlab/pkg/metrics"
)

// PricingCommandService 处理定价命令：计算、持久化、事件与缓存
type PricingCommandService struct {
	repo      domain.PricingRepository
	publisher domain.EventPublisher
	cache     domain.PricingCache
	metrics   metrics.Collector
	engine    *domain.MonteCarloEngine
	opts      Options
	now       func() time.Time
}

// NewPricingCommandService publisher、cache、collector 可以为 nil
func NewPricingCommandService(repo domain.PricingRepository, publisher domain.EventPublisher, cache domain.PricingCache, collector metrics.Collector, opts Options) *PricingCommandService {
	if collector == nil {
		collector = metrics.Noop{}
	}
	return &PricingCommandService{
		repo:      repo,
		publisher: publisher,
		cache:     cache,
		metrics:   collector,
		engine:    domain.NewMonteCarloEngine(opts.Workers),
		opts:      opts,
		now:       time.Now,
	}
}

// PriceOption 期权定价
func (s *PricingCommandService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*domain.PricingResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmd = s.normalize(cmd)
	if err := s.checkLimits(cmd); err != nil {
		s.fail(ctx, cmd, err, 0)
		return nil, err
	}

	start := time.Now()
	fingerprint := Fingerprint(cmd)
	if cached := s.lookup(ctx, fingerprint); cached != nil {
		s.metrics.RecordPricing(string(cmd.Model), "cached", time.Since(start))
		return cached, nil
	}

	start = time.Now()
	result, err := s.compute(cmd)
	elapsed := time.Since(start)
	if err != nil {
		s.fail(ctx, cmd, err, elapsed)
		return nil, err
	}
	result.CalculatedAt = s.now().UnixMilli()

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.SaveResult(txCtx, result); err != nil {
			return fmt.Errorf("save pricing result: %w", err)
		}
		if s.publisher == nil {
			return nil
		}
		return s.publisher.PublishInTx(txCtx, domain.OptionPricedEventType, cmd.Symbol, s.pricedEvent(ctx, cmd, result))
	})
	if err != nil {
		logger.Error(ctx, "failed to persist pricing result", "symbol", cmd.Symbol, "error", err)
		s.metrics.RecordPricing(string(cmd.Model), "error", elapsed)
		return nil, err
	}

	if s.cache != nil && fingerprint != "" {
		if err := s.cache.Set(ctx, fingerprint, result, s.opts.CacheTTL); err != nil {
			logger.Warn(ctx, "failed to cache pricing result", "symbol", cmd.Symbol, "error", err)
		}
	}
	s.metrics.RecordPricing(string(cmd.Model), "success", elapsed)
	if cmd.Model == domain.ModelMonteCarlo {
		s.metrics.RecordSimulatedPaths(cmd.Paths)
	}
	logger.Info(ctx, "option priced",
		"symbol", cmd.Symbol,
		"model", cmd.Model,
		"price", result.OptionPrice.String(),
		"duration", elapsed,
	)
	return result, nil
}

// SimulatePaths 生成样本路径，可选地标记障碍触及
func (s *PricingCommandService) SimulatePaths(ctx context.Context, cmd SimulatePathsCommand) (*SimulatePathsResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cmd.Seed == 0 {
		cmd.Seed = domain.DefaultSampleSeed
	}
	if cmd.Paths > s.opts.MaxSamplePaths {
		return nil, domain.InvalidParameter("paths", "sample paths limited to %d, got %d", s.opts.MaxSamplePaths, cmd.Paths)
	}
	if cmd.Steps > s.opts.MaxSteps {
		return nil, domain.InvalidParameter("steps", "limited to %d, got %d", s.opts.MaxSteps, cmd.Steps)
	}
	if cmd.Barrier != nil {
		if err := cmd.Barrier.Validate(); err != nil {
			return nil, err
		}
	}

	paths, err := s.engine.Simulator().Simulate(cmd.Market, domain.SimulationConfig{Paths: cmd.Paths, Steps: cmd.Steps, Seed: cmd.Seed})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSimulatedPaths(len(paths))

	res := &SimulatePathsResult{Seed: cmd.Seed, Paths: paths}
	if cmd.Barrier != nil {
		res.Breached = make([]bool, len(paths))
		for i, p := range paths {
			res.Breached[i] = domain.Breached(p, *cmd.Barrier)
		}
	}
	return res, nil
}

// BatchPriceOptions 依次定价，单个失败不影响其余合约
func (s *PricingCommandService) BatchPriceOptions(ctx context.Context, cmd BatchPriceOptionsCommand) (*BatchPricingResult, error) {
	if len(cmd.Commands) == 0 {
		return nil, domain.InvalidParameter("contracts", "must not be empty")
	}
	if len(cmd.Commands) > s.opts.MaxBatchSize {
		return nil, domain.InvalidParameter("contracts", "batch limited to %d, got %d", s.opts.MaxBatchSize, len(cmd.Commands))
	}
	if cmd.BatchID == "" {
		cmd.BatchID = uuid.NewString()
	}

	out := &BatchPricingResult{BatchID: cmd.BatchID}
	var total time.Duration
	for i, c := range cmd.Commands {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		result, err := s.PriceOption(ctx, c)
		total += time.Since(start)
		if err != nil {
			out.FailureCount++
			out.Failures = append(out.Failures, BatchFailure{
				Index:   i,
				Symbol:  c.Symbol,
				Code:    domain.ErrorCode(err),
				Message: err.Error(),
			})
			continue
		}
		out.SuccessCount++
		out.Results = append(out.Results, result)
	}
	out.AverageTime = total.Seconds() / float64(len(cmd.Commands))

	if s.publisher != nil {
		event := domain.BatchPricingCompletedEvent{
			BatchID:        out.BatchID,
			Symbols:        uniqueSymbols(cmd.Commands),
			TotalContracts: len(cmd.Commands),
			SuccessCount:   out.SuccessCount,
			FailureCount:   out.FailureCount,
			AverageTime:    out.AverageTime,
			CompletedAt:    s.now().UnixMilli(),
			OccurredOn:     s.now(),
		}
		if err := s.publisher.Publish(ctx, domain.BatchPricingCompletedEventType, out.BatchID, event); err != nil {
			logger.Error(ctx, "failed to publish batch completion", "batch_id", out.BatchID, "error", err)
		}
	}
	logger.Info(ctx, "batch pricing completed",
		"batch_id", out.BatchID,
		"success", out.SuccessCount,
		"failure", out.FailureCount,
	)
	return out, nil
}

// normalize 只为省略的种子、置信水平与风格填充默认值，其余输入原样交给领域层校验
func (s *PricingCommandService) normalize(cmd PriceOptionCommand) PriceOptionCommand {
	if cmd.Seed == 0 {
		cmd.Seed = domain.DefaultPricingSeed
	}
	if cmd.ConfidenceLevel == nil {
		level := s.opts.DefaultConfidenceLevel
		cmd.ConfidenceLevel = &level
	}
	if cmd.Contract.Exercise == "" {
		cmd.Contract.Exercise = domain.ExerciseEuropean
	}
	if cmd.Contract.Payoff == "" {
		cmd.Contract.Payoff = domain.PayoffVanilla
	}
	return cmd
}

func (s *PricingCommandService) checkLimits(cmd PriceOptionCommand) error {
	if cmd.Symbol == "" {
		return domain.InvalidParameter("symbol", "is required")
	}
	if cmd.Steps > s.opts.MaxSteps {
		return domain.InvalidParameter("steps", "limited to %d, got %d", s.opts.MaxSteps, cmd.Steps)
	}
	if cmd.Model != domain.ModelMonteCarlo {
		return nil
	}
	if cmd.Paths > s.opts.MaxPaths {
		return domain.InvalidParameter("paths", "limited to %d, got %d", s.opts.MaxPaths, cmd.Paths)
	}
	// 美式合约走 LSM，需要一次性保存全部路径
	if cmd.Contract.Exercise == domain.ExerciseAmerican && cmd.Paths > 0 && cmd.Steps > 0 {
		if cells := int64(cmd.Paths) * int64(cmd.Steps+1); cells > s.opts.MaxLSMCells {
			return domain.InvalidParameter("paths", "american monte carlo limited to %d path points, got %d paths x %d steps", s.opts.MaxLSMCells, cmd.Paths, cmd.Steps)
		}
	}
	return nil
}

func (s *PricingCommandService) lookup(ctx context.Context, fingerprint string) *domain.PricingResult {
	if s.cache == nil || fingerprint == "" {
		return nil
	}
	cached, err := s.cache.Get(ctx, fingerprint)
	if err != nil {
		logger.Warn(ctx, "pricing cache lookup failed", "error", err)
		return nil
	}
	s.metrics.RecordCacheLookup(cached != nil)
	return cached
}

func (s *PricingCommandService) compute(cmd PriceOptionCommand) (*domain.PricingResult, error) {
	result := newResult(cmd)
	switch cmd.Model {
	case domain.ModelLattice:
		if cmd.Contract.Payoff != domain.PayoffVanilla {
			return nil, domain.InvalidParameter("payoff_style", "lattice supports vanilla payoff only, got %s", cmd.Contract.Payoff)
		}
		price, err := domain.PriceLattice(cmd.Market, cmd.Contract, cmd.Steps)
		if err != nil {
			return nil, err
		}
		result.Paths, result.Seed, result.ConfidenceLevel = 0, 0, 0
		result.OptionPrice = decimal.NewFromFloat(price)
	case domain.ModelMonteCarlo:
		est, err := s.engine.Price(cmd.Market, cmd.Contract, domain.SimulationConfig{Paths: cmd.Paths, Steps: cmd.Steps, Seed: cmd.Seed}, *cmd.ConfidenceLevel)
		if err != nil {
			return nil, err
		}
		result.OptionPrice = decimal.NewFromFloat(est.Price)
		result.StdErr = decimal.NewFromFloat(est.StdErr)
		result.LowerBound = decimal.NewFromFloat(est.Lower)
		result.UpperBound = decimal.NewFromFloat(est.Upper)
	case domain.ModelBlackScholes:
		if cmd.Contract.Exercise != domain.ExerciseEuropean || cmd.Contract.Payoff != domain.PayoffVanilla {
			return nil, domain.InvalidParameter("pricing_model", "black-scholes prices european vanilla contracts only")
		}
		bs, err := domain.CalculateBlackScholes(cmd.Market, cmd.Contract.Type, cmd.Contract.Strike)
		if err != nil {
			return nil, err
		}
		result.Steps, result.Paths, result.Seed, result.ConfidenceLevel = 0, 0, 0, 0
		result.OptionPrice = decimal.NewFromFloat(bs.Price)
		result.Greeks = &bs.Greeks
	default:
		return nil, domain.InvalidParameter("pricing_model", "unrecognized pricing model %q", cmd.Model)
	}
	return result, nil
}

func newResult(cmd PriceOptionCommand) *domain.PricingResult {
	r := &domain.PricingResult{
		Symbol:          cmd.Symbol,
		PricingModel:    cmd.Model,
		OptionType:      cmd.Contract.Type,
		ExerciseStyle:   cmd.Contract.Exercise,
		PayoffStyle:     cmd.Contract.Payoff,
		UnderlyingPrice: decimal.NewFromFloat(cmd.Market.Spot),
		StrikePrice:     decimal.NewFromFloat(cmd.Contract.Strike),
		Maturity:        cmd.Market.Maturity,
		RiskFreeRate:    cmd.Market.Rate,
		Volatility:      cmd.Market.Volatility,
		Steps:           cmd.Steps,
		Paths:           cmd.Paths,
		Seed:            cmd.Seed,
	}
	if cmd.ConfidenceLevel != nil {
		r.ConfidenceLevel = *cmd.ConfidenceLevel
	}
	if b := cmd.Contract.Barrier; b != nil && cmd.Contract.Payoff == domain.PayoffBarrier {
		r.BarrierType = b.Name()
		r.BarrierLevel = b.Level
	}
	return r
}

// fail 记录失败并发布 PricingError 事件
func (s *PricingCommandService) fail(ctx context.Context, cmd PriceOptionCommand, err error, elapsed time.Duration) {
	code := domain.ErrorCode(err)
	s.metrics.RecordPricing(string(cmd.Model), "error", elapsed)
	logger.Warn(ctx, "option pricing failed", "symbol", cmd.Symbol, "model", cmd.Model, "code", code, "error", err)
	if s.publisher == nil || errors.Is(err, context.Canceled) {
		return
	}
	now := s.now()
	event := domain.PricingErrorEvent{
		RequestID:    requestID(ctx, cmd),
		Symbol:       cmd.Symbol,
		PricingModel: cmd.Model,
		OptionType:   cmd.Contract.Type,
		StrikePrice:  cmd.Contract.Strike,
		Error:        err.Error(),
		ErrorCode:    code,
		OccurredAt:   now.UnixMilli(),
		OccurredOn:   now,
	}
	if perr := s.publisher.Publish(ctx, domain.PricingErrorEventType, cmd.Symbol, event); perr != nil {
		logger.Error(ctx, "failed to publish pricing error", "symbol", cmd.Symbol, "error", perr)
	}
}

func (s *PricingCommandService) pricedEvent(ctx context.Context, cmd PriceOptionCommand, r *domain.PricingResult) domain.OptionPricedEvent {
	return domain.OptionPricedEvent{
		RequestID:       requestID(ctx, cmd),
		Symbol:          cmd.Symbol,
		PricingModel:    cmd.Model,
		OptionType:      cmd.Contract.Type,
		ExerciseStyle:   cmd.Contract.Exercise,
		PayoffStyle:     cmd.Contract.Payoff,
		StrikePrice:     cmd.Contract.Strike,
		UnderlyingPrice: cmd.Market.Spot,
		Maturity:        cmd.Market.Maturity,
		Volatility:      cmd.Market.Volatility,
		RiskFreeRate:    cmd.Market.Rate,
		OptionPrice:     r.OptionPrice.InexactFloat64(),
		StdErr:          r.StdErr.InexactFloat64(),
		CalculatedAt:    r.CalculatedAt,
		OccurredOn:      s.now(),
	}
}

func requestID(ctx context.Context, cmd PriceOptionCommand) string {
	if cmd.RequestID != "" {
		return cmd.RequestID
	}
	return logger.RequestID(ctx)
}

// Fingerprint 定价请求的规范化摘要，作为缓存键。包含 NaN 等无法编码的输入时返回空串。
func Fingerprint(cmd PriceOptionCommand) string {
	data, err := json.Marshal(cmd)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func uniqueSymbols(cmds []PriceOptionCommand) []string {
	seen := make(map[string]struct{}, len(cmds))
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		if _, ok := seen[c.Symbol]; ok {
			continue
		}
		seen[c.Symbol] = struct{}{}
		out = append(out, c.Symbol)
	}
	return out
}
