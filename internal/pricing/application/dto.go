package application

import (
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/optionlab/internal/pricing/domain"
)

// pricePlaces 对外展示的小数位数
const pricePlaces = 6

// PricingResultDTO 定价结果展示对象
type PricingResultDTO struct {
	ID              uint             `json:"id"`
	Symbol          string           `json:"symbol"`
	PricingModel    string           `json:"pricing_model"`
	OptionType      string           `json:"option_type"`
	ExerciseStyle   string           `json:"exercise_style"`
	PayoffStyle     string           `json:"payoff_style"`
	BarrierType     string           `json:"barrier_type,omitempty"`
	BarrierLevel    float64          `json:"barrier_level,omitempty"`
	UnderlyingPrice decimal.Decimal  `json:"underlying_price"`
	StrikePrice     decimal.Decimal  `json:"strike_price"`
	Maturity        float64          `json:"maturity"`
	RiskFreeRate    float64          `json:"risk_free_rate"`
	Volatility      float64          `json:"volatility"`
	Steps           int              `json:"steps,omitempty"`
	Paths           int              `json:"paths,omitempty"`
	Seed            uint64           `json:"seed,omitempty"`
	Price           decimal.Decimal  `json:"price"`
	StdErr          *decimal.Decimal `json:"std_err,omitempty"`
	ConfidenceLevel float64          `json:"confidence_level,omitempty"`
	Lower           *decimal.Decimal `json:"lower,omitempty"`
	Upper           *decimal.Decimal `json:"upper,omitempty"`
	Greeks          *GreeksDTO       `json:"greeks,omitempty"`
	CalculatedAt    int64            `json:"calculated_at"`
}

// GreeksDTO 希腊字母
type GreeksDTO struct {
	Delta decimal.Decimal `json:"delta"`
	Gamma decimal.Decimal `json:"gamma"`
	Theta decimal.Decimal `json:"theta"`
	Vega  decimal.Decimal `json:"vega"`
	Rho   decimal.Decimal `json:"rho"`
}

// ToPricingResultDTO 价格类字段按 6 位小数四舍五入；只有蒙特卡洛结果带标准误差与置信区间
func ToPricingResultDTO(r *domain.PricingResult) *PricingResultDTO {
	if r == nil {
		return nil
	}
	dto := &PricingResultDTO{
		ID:              r.ID,
		Symbol:          r.Symbol,
		PricingModel:    string(r.PricingModel),
		OptionType:      string(r.OptionType),
		ExerciseStyle:   string(r.ExerciseStyle),
		PayoffStyle:     string(r.PayoffStyle),
		BarrierType:     r.BarrierType,
		BarrierLevel:    r.BarrierLevel,
		UnderlyingPrice: r.UnderlyingPrice,
		StrikePrice:     r.StrikePrice,
		Maturity:        r.Maturity,
		RiskFreeRate:    r.RiskFreeRate,
		Volatility:      r.Volatility,
		Steps:           r.Steps,
		Paths:           r.Paths,
		Seed:            r.Seed,
		Price:           r.OptionPrice.Round(pricePlaces),
		CalculatedAt:    r.CalculatedAt,
	}
	if r.PricingModel == domain.ModelMonteCarlo {
		stdErr := r.StdErr.Round(pricePlaces)
		lower := r.LowerBound.Round(pricePlaces)
		upper := r.UpperBound.Round(pricePlaces)
		dto.StdErr, dto.Lower, dto.Upper = &stdErr, &lower, &upper
		dto.ConfidenceLevel = r.ConfidenceLevel
	}
	if g := r.Greeks; g != nil {
		dto.Greeks = &GreeksDTO{
			Delta: g.Delta.Round(pricePlaces),
			Gamma: g.Gamma.Round(pricePlaces),
			Theta: g.Theta.Round(pricePlaces),
			Vega:  g.Vega.Round(pricePlaces),
			Rho:   g.Rho.Round(pricePlaces),
		}
	}
	return dto
}

// ToPricingResultDTOs 批量转换
func ToPricingResultDTOs(results []*domain.PricingResult) []*PricingResultDTO {
	out := make([]*PricingResultDTO, len(results))
	for i, r := range results {
		out[i] = ToPricingResultDTO(r)
	}
	return out
}

// SamplePathDTO 单条样本路径
type SamplePathDTO struct {
	Prices   []float64 `json:"prices"`
	Breached *bool     `json:"breached,omitempty"`
}

// ToSamplePathDTOs 转换样本路径，未指定障碍时不输出 breached
func ToSamplePathDTOs(res *SimulatePathsResult) []SamplePathDTO {
	out := make([]SamplePathDTO, len(res.Paths))
	for i, p := range res.Paths {
		out[i] = SamplePathDTO{Prices: p}
		if res.Breached != nil {
			b := res.Breached[i]
			out[i].Breached = &b
		}
	}
	return out
}
