package mysql

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/optionlab/internal/pricing/domain"
)

// PricingResultModel 定价结果数据库模型
type PricingResultModel struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
	Symbol          string    `gorm:"column:symbol;type:varchar(32);index:idx_symbol_calc,priority:1;not null"`
	PricingModel    string    `gorm:"column:pricing_model;type:varchar(32);not null"`
	OptionType      string    `gorm:"column:option_type;type:varchar(8);not null"`
	ExerciseStyle   string    `gorm:"column:exercise_style;type:varchar(16);not null"`
	PayoffStyle     string    `gorm:"column:payoff_style;type:varchar(16);not null"`
	BarrierType     string    `gorm:"column:barrier_type;type:varchar(16)"`
	BarrierLevel    float64   `gorm:"column:barrier_level"`
	UnderlyingPrice string    `gorm:"column:underlying_price;type:decimal(32,18);not null"`
	StrikePrice     string    `gorm:"column:strike_price;type:decimal(32,18);not null"`
	Maturity        float64   `gorm:"column:maturity;not null"`
	RiskFreeRate    float64   `gorm:"column:risk_free_rate;not null"`
	Volatility      float64   `gorm:"column:volatility;not null"`
	Steps           int       `gorm:"column:steps"`
	Paths           int       `gorm:"column:paths"`
	Seed            uint64    `gorm:"column:seed"`
	OptionPrice     string    `gorm:"column:option_price;type:decimal(32,18);not null"`
	StdErr          string    `gorm:"column:std_err;type:decimal(32,18)"`
	ConfidenceLevel float64   `gorm:"column:confidence_level"`
	LowerBound      string    `gorm:"column:lower_bound;type:decimal(32,18)"`
	UpperBound      string    `gorm:"column:upper_bound;type:decimal(32,18)"`
	HasGreeks       bool      `gorm:"column:has_greeks"`
	Delta           string    `gorm:"column:delta;type:decimal(32,18)"`
	Gamma           string    `gorm:"column:gamma;type:decimal(32,18)"`
	Theta           string    `gorm:"column:theta;type:decimal(32,18)"`
	Vega            string    `gorm:"column:vega;type:decimal(32,18)"`
	Rho             string    `gorm:"column:rho;type:decimal(32,18)"`
	CalculatedAt    int64     `gorm:"column:calculated_at;type:bigint;index:idx_symbol_calc,priority:2;not null"`
}

func (PricingResultModel) TableName() string { return "pricing_results" }

func toPricingResultModel(res *domain.PricingResult) *PricingResultModel {
	if res == nil {
		return nil
	}
	m := &PricingResultModel{
		ID:              res.ID,
		CreatedAt:       res.CreatedAt,
		UpdatedAt:       res.UpdatedAt,
		Symbol:          res.Symbol,
		PricingModel:    string(res.PricingModel),
		OptionType:      string(res.OptionType),
		ExerciseStyle:   string(res.ExerciseStyle),
		PayoffStyle:     string(res.PayoffStyle),
		BarrierType:     res.BarrierType,
		BarrierLevel:    res.BarrierLevel,
		UnderlyingPrice: res.UnderlyingPrice.String(),
		StrikePrice:     res.StrikePrice.String(),
		Maturity:        res.Maturity,
		RiskFreeRate:    res.RiskFreeRate,
		Volatility:      res.Volatility,
		Steps:           res.Steps,
		Paths:           res.Paths,
		Seed:            res.Seed,
		OptionPrice:     res.OptionPrice.String(),
		StdErr:          res.StdErr.String(),
		ConfidenceLevel: res.ConfidenceLevel,
		LowerBound:      res.LowerBound.String(),
		UpperBound:      res.UpperBound.String(),
		CalculatedAt:    res.CalculatedAt,
	}
	if g := res.Greeks; g != nil {
		m.HasGreeks = true
		m.Delta = g.Delta.String()
		m.Gamma = g.Gamma.String()
		m.Theta = g.Theta.String()
		m.Vega = g.Vega.String()
		m.Rho = g.Rho.String()
	}
	return m
}

func toPricingResult(m *PricingResultModel) *domain.PricingResult {
	if m == nil {
		return nil
	}
	res := &domain.PricingResult{
		ID:              m.ID,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		Symbol:          m.Symbol,
		PricingModel:    domain.PricingModel(m.PricingModel),
		OptionType:      domain.OptionType(m.OptionType),
		ExerciseStyle:   domain.ExerciseStyle(m.ExerciseStyle),
		PayoffStyle:     domain.PayoffStyle(m.PayoffStyle),
		BarrierType:     m.BarrierType,
		BarrierLevel:    m.BarrierLevel,
		UnderlyingPrice: parseDecimal(m.UnderlyingPrice),
		StrikePrice:     parseDecimal(m.StrikePrice),
		Maturity:        m.Maturity,
		RiskFreeRate:    m.RiskFreeRate,
		Volatility:      m.Volatility,
		Steps:           m.Steps,
		Paths:           m.Paths,
		Seed:            m.Seed,
		OptionPrice:     parseDecimal(m.OptionPrice),
		StdErr:          parseDecimal(m.StdErr),
		ConfidenceLevel: m.ConfidenceLevel,
		LowerBound:      parseDecimal(m.LowerBound),
		UpperBound:      parseDecimal(m.UpperBound),
		CalculatedAt:    m.CalculatedAt,
	}
	if m.HasGreeks {
		res.Greeks = &domain.Greeks{
			Delta: parseDecimal(m.Delta),
			Gamma: parseDecimal(m.Gamma),
			Theta: parseDecimal(m.Theta),
			Vega:  parseDecimal(m.Vega),
			Rho:   parseDecimal(m.Rho),
		}
	}
	return res
}

// parseDecimal 空列按零处理
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
