// 包 定价服务的领域模型
package domain

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OptionType 期权类型
type OptionType string

const (
	OptionTypeCall OptionType = "CALL" // 看涨期权
	OptionTypePut  OptionType = "PUT"  // 看跌期权
)

// ExerciseStyle 行权方式（仅二叉树与 LSM 使用）
type ExerciseStyle string

const (
	ExerciseEuropean ExerciseStyle = "EUROPEAN"
	ExerciseAmerican ExerciseStyle = "AMERICAN"
)

// PayoffStyle 收益类型（仅蒙特卡洛使用）
type PayoffStyle string

const (
	PayoffVanilla PayoffStyle = "VANILLA" // 到期价格
	PayoffAsian   PayoffStyle = "ASIAN"   // 算术平均价格
	PayoffBarrier PayoffStyle = "BARRIER" // 障碍条件
)

// BarrierDirection 障碍方向
type BarrierDirection string

const (
	BarrierUp   BarrierDirection = "UP"
	BarrierDown BarrierDirection = "DOWN"
)

// BarrierActivation 敲出 / 敲入
type BarrierActivation string

const (
	BarrierOut BarrierActivation = "OUT"
	BarrierIn  BarrierActivation = "IN"
)

// PricingModel 定价模型
type PricingModel string

const (
	ModelLattice      PricingModel = "LATTICE"
	ModelMonteCarlo   PricingModel = "MONTE_CARLO"
	ModelBlackScholes PricingModel = "BLACK_SCHOLES"
)

// 原始实现中使用的固定种子：定价 42，路径展示 1。
const (
	DefaultPricingSeed uint64 = 42
	DefaultSampleSeed  uint64 = 1
)

// DefaultConfidenceLevel 默认置信水平
const DefaultConfidenceLevel = 0.95

// MarketParameters 市场参数，单次定价调用内不可变
type MarketParameters struct {
	Spot       float64 `json:"spot"`       // 标的价格 S
	Rate       float64 `json:"rate"`       // 无风险利率 r
	Volatility float64 `json:"volatility"` // 波动率 σ
	Maturity   float64 `json:"maturity"`   // 到期时间 T (年)
}

// Validate 校验市场参数
func (m MarketParameters) Validate() error {
	if !(m.Spot > 0) || math.IsInf(m.Spot, 0) {
		return invalidParameter("spot", "must be positive, got %v", m.Spot)
	}
	if math.IsNaN(m.Rate) || math.IsInf(m.Rate, 0) {
		return invalidParameter("rate", "must be finite, got %v", m.Rate)
	}
	if !(m.Volatility > 0) || math.IsInf(m.Volatility, 0) {
		return invalidParameter("volatility", "must be positive, got %v", m.Volatility)
	}
	if !(m.Maturity > 0) || math.IsInf(m.Maturity, 0) {
		return invalidParameter("maturity", "must be positive, got %v", m.Maturity)
	}
	return nil
}

// DiscountFactor 返回 exp(-r·T)
func (m MarketParameters) DiscountFactor() float64 {
	return math.Exp(-m.Rate * m.Maturity)
}

// BarrierSpec 障碍参数
type BarrierSpec struct {
	Level      float64           `json:"level"`
	Direction  BarrierDirection  `json:"direction"`
	Activation BarrierActivation `json:"activation"`
}

// Validate 只接受 up-out / up-in / down-out / down-in 四种组合
func (b BarrierSpec) Validate() error {
	if !(b.Level > 0) || math.IsInf(b.Level, 0) {
		return invalidParameter("barrier.level", "must be positive, got %v", b.Level)
	}
	switch b.Direction {
	case BarrierUp, BarrierDown:
	default:
		return invalidParameter("barrier.direction", "unrecognized direction %q", b.Direction)
	}
	switch b.Activation {
	case BarrierOut, BarrierIn:
	default:
		return invalidParameter("barrier.activation", "unrecognized activation %q", b.Activation)
	}
	return nil
}

// Name 返回 "up-and-out" 形式的名称
func (b BarrierSpec) Name() string {
	return strings.ToLower(string(b.Direction)) + "-and-" + strings.ToLower(string(b.Activation))
}

// ParseBarrierType 解析 "up-and-out" / "down-and-in" 等障碍类型
func ParseBarrierType(s string, level float64) (BarrierSpec, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "-and-")
	if len(parts) != 2 {
		return BarrierSpec{}, invalidParameter("barrier.type", "unrecognized barrier type %q", s)
	}
	spec := BarrierSpec{
		Level:      level,
		Direction:  BarrierDirection(strings.ToUpper(parts[0])),
		Activation: BarrierActivation(strings.ToUpper(parts[1])),
	}
	if err := spec.Validate(); err != nil {
		return BarrierSpec{}, err
	}
	return spec, nil
}

// ContractSpec 合约条款
type ContractSpec struct {
	Strike   float64       `json:"strike"`
	Type     OptionType    `json:"type"`
	Exercise ExerciseStyle `json:"exercise"`
	Payoff   PayoffStyle   `json:"payoff"`
	Barrier  *BarrierSpec  `json:"barrier,omitempty"`
}

// validateTerms 校验行权价与期权类型
func (c ContractSpec) validateTerms() error {
	if !(c.Strike > 0) || math.IsInf(c.Strike, 0) {
		return invalidParameter("strike", "must be positive, got %v", c.Strike)
	}
	switch c.Type {
	case OptionTypeCall, OptionTypePut:
	default:
		return invalidParameter("option_type", "unrecognized option type %q", c.Type)
	}
	return nil
}

// exercise 空值视为欧式
func (c ContractSpec) exercise() (ExerciseStyle, error) {
	switch c.Exercise {
	case "", ExerciseEuropean:
		return ExerciseEuropean, nil
	case ExerciseAmerican:
		return ExerciseAmerican, nil
	default:
		return "", invalidParameter("exercise_style", "unrecognized exercise style %q", c.Exercise)
	}
}

// ParseOptionType 大小写不敏感
func ParseOptionType(s string) (OptionType, error) {
	switch t := OptionType(strings.ToUpper(strings.TrimSpace(s))); t {
	case OptionTypeCall, OptionTypePut:
		return t, nil
	default:
		return "", invalidParameter("option_type", "unrecognized option type %q", s)
	}
}

// ParseExerciseStyle 空字符串返回欧式
func ParseExerciseStyle(s string) (ExerciseStyle, error) {
	switch e := ExerciseStyle(strings.ToUpper(strings.TrimSpace(s))); e {
	case "", ExerciseEuropean:
		return ExerciseEuropean, nil
	case ExerciseAmerican:
		return e, nil
	default:
		return "", invalidParameter("exercise_style", "unrecognized exercise style %q", s)
	}
}

// ParsePayoffStyle 空字符串返回普通期权
func ParsePayoffStyle(s string) (PayoffStyle, error) {
	switch p := PayoffStyle(strings.ToUpper(strings.TrimSpace(s))); p {
	case "", PayoffVanilla:
		return PayoffVanilla, nil
	case PayoffAsian, PayoffBarrier:
		return p, nil
	default:
		return "", invalidParameter("payoff_style", "unrecognized payoff style %q", s)
	}
}

// ParsePricingModel 解析定价模型名称
func ParsePricingModel(s string) (PricingModel, error) {
	switch m := PricingModel(strings.ToUpper(strings.TrimSpace(s))); m {
	case ModelLattice, ModelMonteCarlo, ModelBlackScholes:
		return m, nil
	default:
		return "", invalidParameter("pricing_model", "unrecognized pricing model %q", s)
	}
}

// SimulationConfig 模拟配置
type SimulationConfig struct {
	Paths int    `json:"paths"`
	Steps int    `json:"steps"`
	Seed  uint64 `json:"seed"`
}

// Validate 校验路径数与步数
func (c SimulationConfig) Validate() error {
	if c.Paths < 1 {
		return invalidParameter("paths", "must be at least 1, got %d", c.Paths)
	}
	if c.Steps < 1 {
		return invalidParameter("steps", "must be at least 1, got %d", c.Steps)
	}
	return nil
}

// PricePath 一条模拟价格路径，长度为 Steps+1，首元素为 S
type PricePath []float64

// Terminal 返回到期价格
func (p PricePath) Terminal() float64 {
	return p[len(p)-1]
}

// PriceEstimate 蒙特卡洛估计结果
type PriceEstimate struct {
	Price           float64 `json:"price"`
	StdErr          float64 `json:"std_err"`
	ConfidenceLevel float64 `json:"confidence_level"`
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Paths           int     `json:"paths"`
}

// Contains 判断置信区间是否覆盖给定价格
func (e PriceEstimate) Contains(price float64) bool {
	return price >= e.Lower && price <= e.Upper
}

// Greeks 希腊字母
type Greeks struct {
	Delta decimal.Decimal `json:"delta"`
	Gamma decimal.Decimal `json:"gamma"`
	Theta decimal.Decimal `json:"theta"`
	Vega  decimal.Decimal `json:"vega"`
	Rho   decimal.Decimal `json:"rho"`
}

// PricingResult 定价结果实体
type PricingResult struct {
	ID              uint            `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Symbol          string          `json:"symbol"`
	PricingModel    PricingModel    `json:"pricing_model"`
	OptionType      OptionType      `json:"option_type"`
	ExerciseStyle   ExerciseStyle   `json:"exercise_style"`
	PayoffStyle     PayoffStyle     `json:"payoff_style"`
	BarrierType     string          `json:"barrier_type,omitempty"`
	BarrierLevel    float64         `json:"barrier_level,omitempty"`
	UnderlyingPrice decimal.Decimal `json:"underlying_price"`
	StrikePrice     decimal.Decimal `json:"strike_price"`
	Maturity        float64         `json:"maturity"`
	RiskFreeRate    float64         `json:"risk_free_rate"`
	Volatility      float64         `json:"volatility"`
	Steps           int             `json:"steps"`
	Paths           int             `json:"paths"`
	Seed            uint64          `json:"seed"`
	OptionPrice     decimal.Decimal `json:"option_price"`
	StdErr          decimal.Decimal `json:"std_err"`
	ConfidenceLevel float64         `json:"confidence_level"`
	LowerBound      decimal.Decimal `json:"lower_bound"`
	UpperBound      decimal.Decimal `json:"upper_bound"`
	Greeks          *Greeks         `json:"greeks,omitempty"`
	CalculatedAt    int64           `json:"calculated_at"`
}
