package domain

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// MonteCarloEstimator 将收益折现并给出点估计与置信区间（正态近似）
type MonteCarloEstimator struct {
	confidenceLevel float64
	z               float64
}

// NewMonteCarloEstimator 创建估计器，confidenceLevel 必须在 (0,1) 内
func NewMonteCarloEstimator(confidenceLevel float64) (*MonteCarloEstimator, error) {
	if !(confidenceLevel > 0 && confidenceLevel < 1) {
		return nil, invalidParameter("confidence_level", "must be in (0, 1), got %v", confidenceLevel)
	}
	return &MonteCarloEstimator{
		confidenceLevel: confidenceLevel,
		z:               ZScore(confidenceLevel),
	}, nil
}

// ZScore 双侧置信水平对应的标准正态分位数，0.95 -> 1.959964
func ZScore(confidenceLevel float64) float64 {
	return math.Sqrt2 * math.Erfinv(confidenceLevel)
}

// Estimate 按 exp(-rT) 折现每条收益后估计价格
func (e *MonteCarloEstimator) Estimate(payoffs []float64, market MarketParameters) (PriceEstimate, error) {
	if err := market.Validate(); err != nil {
		return PriceEstimate{}, err
	}
	if len(payoffs) < 2 {
		return PriceEstimate{}, degenerateStatistic("standard error needs at least 2 payoffs, got %d", len(payoffs))
	}
	df := market.DiscountFactor()
	discounted := make([]float64, len(payoffs))
	for i, p := range payoffs {
		discounted[i] = df * p
	}
	return e.summarize(discounted)
}

// summarize 对已折现到 0 时刻的现金流做统计
func (e *MonteCarloEstimator) summarize(discounted []float64) (PriceEstimate, error) {
	n := len(discounted)
	if n < 2 {
		return PriceEstimate{}, degenerateStatistic("standard error needs at least 2 payoffs, got %d", n)
	}
	mean, err := stats.Mean(discounted)
	if err != nil {
		return PriceEstimate{}, fmt.Errorf("mean of discounted payoffs: %w", err)
	}
	sd, err := stats.StandardDeviationSample(discounted)
	if err != nil {
		return PriceEstimate{}, fmt.Errorf("sample deviation of discounted payoffs: %w", err)
	}
	stdErr := sd / math.Sqrt(float64(n))
	half := e.z * stdErr
	return PriceEstimate{
		Price:           mean,
		StdErr:          stdErr,
		ConfidenceLevel: e.confidenceLevel,
		Lower:           mean - half,
		Upper:           mean + half,
		Paths:           n,
	}, nil
}
