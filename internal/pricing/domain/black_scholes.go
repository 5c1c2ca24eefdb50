package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// BlackScholesResult Black-Scholes 模型输出
type BlackScholesResult struct {
	Price  float64
	Greeks Greeks
}

// CalculateBlackScholes 计算欧式期权的 Black-Scholes 价格和 Greeks（无股息）
func CalculateBlackScholes(market MarketParameters, optionType OptionType, strike float64) (*BlackScholesResult, error) {
	if err := market.Validate(); err != nil {
		return nil, err
	}
	if err := (ContractSpec{Strike: strike, Type: optionType}).validateTerms(); err != nil {
		return nil, err
	}

	s, k, t, r, v := market.Spot, strike, market.Maturity, market.Rate, market.Volatility
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + (r+0.5*v*v)*t) / (v * sqrtT)
	d2 := d1 - v*sqrtT
	df := math.Exp(-r * t)

	var price, delta, theta, rho float64
	gamma := normPdf(d1) / (s * v * sqrtT)
	vega := s * sqrtT * normPdf(d1)

	if optionType == OptionTypeCall {
		price = s*normCdf(d1) - k*df*normCdf(d2)
		delta = normCdf(d1)
		theta = -s*normPdf(d1)*v/(2*sqrtT) - r*k*df*normCdf(d2)
		rho = k * t * df * normCdf(d2)
	} else {
		price = k*df*normCdf(-d2) - s*normCdf(-d1)
		delta = normCdf(d1) - 1
		theta = -s*normPdf(d1)*v/(2*sqrtT) + r*k*df*normCdf(-d2)
		rho = -k * t * df * normCdf(-d2)
	}

	return &BlackScholesResult{
		Price: price,
		Greeks: Greeks{
			Delta: decimal.NewFromFloat(delta),
			Gamma: decimal.NewFromFloat(gamma),
			Theta: decimal.NewFromFloat(theta),
			Vega:  decimal.NewFromFloat(vega),
			Rho:   decimal.NewFromFloat(rho),
		},
	}, nil
}

// normCdf 标准正态分布累积分布函数
func normCdf(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normPdf 标准正态分布概率密度函数
func normPdf(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}
