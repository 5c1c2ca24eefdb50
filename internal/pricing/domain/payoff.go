package domain

import "math"

// PayoffEvaluator 将一条路径归约为未折现收益
//
// 障碍只在离散步点 1..N 上检查（不含第 0 步，含边界值）。
// 两个步点之间的连续穿越不会被观测到，因此相对连续监控，
// 敲出期权价格偏高、敲入期权价格偏低，步数越少偏差越大。
type PayoffEvaluator struct {
	optionType OptionType
	strike     float64
	style      PayoffStyle
	barrier    BarrierSpec
}

// NewPayoffEvaluator 校验合约并创建收益计算器
func NewPayoffEvaluator(contract ContractSpec) (*PayoffEvaluator, error) {
	if err := contract.validateTerms(); err != nil {
		return nil, err
	}
	e := &PayoffEvaluator{
		optionType: contract.Type,
		strike:     contract.Strike,
		style:      contract.Payoff,
	}
	switch contract.Payoff {
	case "":
		e.style = PayoffVanilla
	case PayoffVanilla, PayoffAsian:
	case PayoffBarrier:
		if contract.Barrier == nil {
			return nil, invalidParameter("barrier", "is required for barrier payoff")
		}
		if err := contract.Barrier.Validate(); err != nil {
			return nil, err
		}
		e.barrier = *contract.Barrier
	default:
		return nil, invalidParameter("payoff_style", "unrecognized payoff style %q", contract.Payoff)
	}
	return e, nil
}

// Evaluate 计算单条路径的收益
func (e *PayoffEvaluator) Evaluate(path PricePath) (float64, error) {
	if len(path) < 2 {
		return 0, invalidParameter("path", "must contain at least 2 prices, got %d", len(path))
	}
	return e.evaluate(path), nil
}

// EvaluateBatch 计算一批路径的收益
func (e *PayoffEvaluator) EvaluateBatch(paths []PricePath) ([]float64, error) {
	payoffs := make([]float64, len(paths))
	for i, path := range paths {
		v, err := e.Evaluate(path)
		if err != nil {
			return nil, err
		}
		payoffs[i] = v
	}
	return payoffs, nil
}

func (e *PayoffEvaluator) evaluate(path PricePath) float64 {
	switch e.style {
	case PayoffAsian:
		return Intrinsic(e.optionType, averagePrice(path), e.strike)
	case PayoffBarrier:
		breached := Breached(path, e.barrier)
		active := !breached
		if e.barrier.Activation == BarrierIn {
			active = breached
		}
		if !active {
			return 0
		}
		return Intrinsic(e.optionType, path.Terminal(), e.strike)
	default:
		return Intrinsic(e.optionType, path.Terminal(), e.strike)
	}
}

// Intrinsic 内在价值 max(S-K, 0) 或 max(K-S, 0)
func Intrinsic(optionType OptionType, spot, strike float64) float64 {
	if optionType == OptionTypePut {
		return math.Max(strike-spot, 0)
	}
	return math.Max(spot-strike, 0)
}

// Breached 判断路径在第 1..N 步是否触及障碍
func Breached(path PricePath, barrier BarrierSpec) bool {
	for _, s := range path[1:] {
		if barrier.Direction == BarrierUp && s >= barrier.Level {
			return true
		}
		if barrier.Direction == BarrierDown && s <= barrier.Level {
			return true
		}
	}
	return false
}

// averagePrice 第 1..N 步的算术平均，不含初始价格
func averagePrice(path PricePath) float64 {
	sum := 0.0
	for _, s := range path[1:] {
		sum += s
	}
	return sum / float64(len(path)-1)
}
