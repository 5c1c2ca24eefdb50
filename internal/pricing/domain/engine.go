package domain

// PriceLattice 二叉树定价入口
func PriceLattice(market MarketParameters, contract ContractSpec, steps int) (float64, error) {
	engine, err := NewLatticeEngine(steps)
	if err != nil {
		return 0, err
	}
	return engine.Price(market, contract)
}

// SimulatePaths 生成完整路径，使用默认工作协程数
func SimulatePaths(market MarketParameters, cfg SimulationConfig) ([]PricePath, error) {
	return NewPathSimulator(0).Simulate(market, cfg)
}

// PriceMonteCarlo 蒙特卡洛定价入口，使用默认工作协程数
func PriceMonteCarlo(market MarketParameters, contract ContractSpec, cfg SimulationConfig, confidenceLevel float64) (PriceEstimate, error) {
	return NewMonteCarloEngine(0).Price(market, contract, cfg, confidenceLevel)
}

// MonteCarloEngine 组合模拟器、收益计算器与估计器
type MonteCarloEngine struct {
	simulator *PathSimulator
}

// NewMonteCarloEngine 创建引擎，workers<=0 时使用 GOMAXPROCS
func NewMonteCarloEngine(workers int) *MonteCarloEngine {
	return &MonteCarloEngine{simulator: NewPathSimulator(workers)}
}

// Simulator 返回底层路径模拟器
func (m *MonteCarloEngine) Simulator() *PathSimulator {
	return m.simulator
}

// Price 欧式合约走流式收益归约；美式普通期权走 Longstaff-Schwartz
func (m *MonteCarloEngine) Price(market MarketParameters, contract ContractSpec, cfg SimulationConfig, confidenceLevel float64) (PriceEstimate, error) {
	if err := market.Validate(); err != nil {
		return PriceEstimate{}, err
	}
	if err := cfg.Validate(); err != nil {
		return PriceEstimate{}, err
	}
	estimator, err := NewMonteCarloEstimator(confidenceLevel)
	if err != nil {
		return PriceEstimate{}, err
	}
	evaluator, err := NewPayoffEvaluator(contract)
	if err != nil {
		return PriceEstimate{}, err
	}
	exercise, err := contract.exercise()
	if err != nil {
		return PriceEstimate{}, err
	}
	if cfg.Paths < 2 {
		return PriceEstimate{}, degenerateStatistic("standard error needs at least 2 paths, got %d", cfg.Paths)
	}

	if exercise == ExerciseAmerican {
		if evaluator.style != PayoffVanilla {
			return PriceEstimate{}, invalidParameter("exercise_style", "american exercise supports vanilla payoff only, got %s", evaluator.style)
		}
		return NewLSMPricer(m.simulator, estimator).Price(market, contract, cfg)
	}

	payoffs, err := m.simulator.SimulatePayoffs(market, cfg, evaluator)
	if err != nil {
		return PriceEstimate{}, err
	}
	return estimator.Estimate(payoffs, market)
}
