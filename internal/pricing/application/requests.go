package application

import (
	"fmt"

	"github.com/wyfcoding/optionlab/internal/pricing/domain"
)

// MarketRequest 市场参数。数值范围由领域层校验。
type MarketRequest struct {
	Spot       float64 `json:"spot" validate:"required"`
	Rate       float64 `json:"rate"`
	Volatility float64 `json:"volatility" validate:"required"`
	Maturity   float64 `json:"maturity" validate:"required"`
}

func (m MarketRequest) toDomain() domain.MarketParameters {
	return domain.MarketParameters{Spot: m.Spot, Rate: m.Rate, Volatility: m.Volatility, Maturity: m.Maturity}
}

// BarrierRequest 障碍条件，type 形如 up-and-out
type BarrierRequest struct {
	Type  string  `json:"type" validate:"required"`
	Level float64 `json:"level" validate:"required"`
}

func (b *BarrierRequest) toDomain() (*domain.BarrierSpec, error) {
	if b == nil {
		return nil, nil
	}
	spec, err := domain.ParseBarrierType(b.Type, b.Level)
	if err != nil {
		return nil, err
	}
	return &spec, nil
}

// PriceOptionRequest 定价请求。
// 计数与置信水平使用指针：只有省略的字段取默认值，显式的 0 原样交给领域层校验。
type PriceOptionRequest struct {
	Symbol          string          `json:"symbol" validate:"required,max=32"`
	Model           string          `json:"model" default:"LATTICE"`
	Market          MarketRequest   `json:"market"`
	OptionType      string          `json:"option_type" validate:"required"`
	Strike          float64         `json:"strike" validate:"required"`
	ExerciseStyle   string          `json:"exercise_style" default:"EUROPEAN"`
	PayoffStyle     string          `json:"payoff_style" default:"VANILLA"`
	Barrier         *BarrierRequest `json:"barrier,omitempty"`
	Steps           *int            `json:"steps,omitempty" default:"200"`
	Paths           *int            `json:"paths,omitempty" default:"10000"`
	Seed            uint64          `json:"seed"`
	ConfidenceLevel *float64        `json:"confidence_level,omitempty"`
}

// ToCommand 解析枚举字段，失败时返回 InvalidParameter
func (r PriceOptionRequest) ToCommand() (PriceOptionCommand, error) {
	model, err := domain.ParsePricingModel(r.Model)
	if err != nil {
		return PriceOptionCommand{}, err
	}
	optionType, err := domain.ParseOptionType(r.OptionType)
	if err != nil {
		return PriceOptionCommand{}, err
	}
	exercise, err := domain.ParseExerciseStyle(r.ExerciseStyle)
	if err != nil {
		return PriceOptionCommand{}, err
	}
	payoff, err := domain.ParsePayoffStyle(r.PayoffStyle)
	if err != nil {
		return PriceOptionCommand{}, err
	}
	barrier, err := r.Barrier.toDomain()
	if err != nil {
		return PriceOptionCommand{}, err
	}
	return PriceOptionCommand{
		Symbol: r.Symbol,
		Model:  model,
		Market: r.Market.toDomain(),
		Contract: domain.ContractSpec{
			Strike:   r.Strike,
			Type:     optionType,
			Exercise: exercise,
			Payoff:   payoff,
			Barrier:  barrier,
		},
		Steps:           deref(r.Steps),
		Paths:           deref(r.Paths),
		Seed:            r.Seed,
		ConfidenceLevel: r.ConfidenceLevel,
	}, nil
}

// deref 未填充默认值的 nil 按 0 处理，由领域层拒绝
func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// SimulatePathsRequest 样本路径请求
type SimulatePathsRequest struct {
	Market  MarketRequest   `json:"market"`
	Paths   *int            `json:"paths,omitempty" default:"20"`
	Steps   *int            `json:"steps,omitempty" default:"100"`
	Seed    uint64          `json:"seed"`
	Barrier *BarrierRequest `json:"barrier,omitempty"`
}

func (r SimulatePathsRequest) ToCommand() (SimulatePathsCommand, error) {
	barrier, err := r.Barrier.toDomain()
	if err != nil {
		return SimulatePathsCommand{}, err
	}
	return SimulatePathsCommand{
		Market:  r.Market.toDomain(),
		Paths:   deref(r.Paths),
		Steps:   deref(r.Steps),
		Seed:    r.Seed,
		Barrier: barrier,
	}, nil
}

// BatchPriceOptionsRequest 批量定价请求。Contracts 中的元素需逐个填充默认值并校验。
type BatchPriceOptionsRequest struct {
	BatchID   string               `json:"batch_id"`
	Contracts []PriceOptionRequest `json:"contracts" validate:"required,min=1"`
}

// ToCommand 任一合约无法解析时返回该合约的错误
func (r BatchPriceOptionsRequest) ToCommand() (BatchPriceOptionsCommand, error) {
	cmds := make([]PriceOptionCommand, len(r.Contracts))
	for i, c := range r.Contracts {
		cmd, err := c.ToCommand()
		if err != nil {
			return BatchPriceOptionsCommand{}, fmt.Errorf("contracts[%d]: %w", i, err)
		}
		cmds[i] = cmd
	}
	return BatchPriceOptionsCommand{BatchID: r.BatchID, Commands: cmds}, nil
}

// SimulatePathsResponse 样本路径响应
type SimulatePathsResponse struct {
	Seed  uint64          `json:"seed"`
	Paths []SamplePathDTO `json:"paths"`
}

// BatchPricingResponse 批量定价响应
type BatchPricingResponse struct {
	BatchID      string              `json:"batch_id"`
	Results      []*PricingResultDTO `json:"results"`
	Failures     []BatchFailure      `json:"failures,omitempty"`
	SuccessCount int                 `json:"success_count"`
	FailureCount int                 `json:"failure_count"`
	AverageTime  float64             `json:"average_time"`
}

// HistoryResponse 历史结果
type HistoryResponse struct {
	Symbol  string              `json:"symbol"`
	Results []*PricingResultDTO `json:"results"`
}

func ToSimulatePathsResponse(res *SimulatePathsResult) *SimulatePathsResponse {
	return &SimulatePathsResponse{Seed: res.Seed, Paths: ToSamplePathDTOs(res)}
}

func ToBatchPricingResponse(res *BatchPricingResult) *BatchPricingResponse {
	return &BatchPricingResponse{
		BatchID:      res.BatchID,
		Results:      ToPricingResultDTOs(res.Results),
		Failures:     res.Failures,
		SuccessCount: res.SuccessCount,
		FailureCount: res.FailureCount,
		AverageTime:  res.AverageTime,
	}
}
