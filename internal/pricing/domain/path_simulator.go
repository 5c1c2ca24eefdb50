package domain

import (
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// seedStream 主生成器的第二个种子分量
const seedStream uint64 = 0x9e3779b97f4a7c15

// PathSimulator 几何布朗运动 (GBM) 路径模拟器
//
// 每条路径使用独立的 PCG 生成器，其种子由单次调用内的主生成器从
// SimulationConfig.Seed 派生。因此输出与工作协程数量、调度顺序无关，
// 相同输入的两次调用得到逐位相同的路径。
type PathSimulator struct {
	workers int
}

// NewPathSimulator 创建模拟器，workers<=0 时使用 GOMAXPROCS
func NewPathSimulator(workers int) *PathSimulator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &PathSimulator{workers: workers}
}

// Simulate 生成 cfg.Paths 条长度为 cfg.Steps+1 的价格路径
func (s *PathSimulator) Simulate(market MarketParameters, cfg SimulationConfig) ([]PricePath, error) {
	if err := validateSimulation(market, cfg); err != nil {
		return nil, err
	}

	width := cfg.Steps + 1
	backing := make([]float64, cfg.Paths*width)
	paths := make([]PricePath, cfg.Paths)
	for i := range paths {
		paths[i] = backing[i*width : (i+1)*width : (i+1)*width]
	}

	s.forEachPath(market, cfg, func(i int, path PricePath) {
		copy(paths[i], path)
	})
	return paths, nil
}

// SimulatePayoffs 逐条生成路径并立即归约为收益，路径缓冲区按协程复用，不保留任何路径
func (s *PathSimulator) SimulatePayoffs(market MarketParameters, cfg SimulationConfig, evaluator *PayoffEvaluator) ([]float64, error) {
	if err := validateSimulation(market, cfg); err != nil {
		return nil, err
	}
	payoffs := make([]float64, cfg.Paths)
	s.forEachPath(market, cfg, func(i int, path PricePath) {
		payoffs[i] = evaluator.evaluate(path)
	})
	return payoffs, nil
}

// forEachPath 按路径区间切分给各协程。fn 收到的 path 只在本次回调内有效。
func (s *PathSimulator) forEachPath(market MarketParameters, cfg SimulationConfig, fn func(i int, path PricePath)) {
	seeds := pathSeeds(cfg.Seed, cfg.Paths)

	// 精确对数正态转移：S(t+dt) = S(t) * exp((r - σ²/2)dt + σ√dt·Z)
	dt := market.Maturity / float64(cfg.Steps)
	drift := (market.Rate - 0.5*market.Volatility*market.Volatility) * dt
	diffusion := market.Volatility * math.Sqrt(dt)

	workers := min(s.workers, cfg.Paths)
	chunk := (cfg.Paths + workers - 1) / workers

	var g errgroup.Group
	for start := 0; start < cfg.Paths; start += chunk {
		end := min(start+chunk, cfg.Paths)
		g.Go(func() error {
			pcg := rand.NewPCG(0, 0)
			rng := rand.New(pcg)
			path := make(PricePath, cfg.Steps+1)
			for i := start; i < end; i++ {
				pcg.Seed(seeds[i], uint64(i))
				path[0] = market.Spot
				for t := 1; t <= cfg.Steps; t++ {
					path[t] = path[t-1] * math.Exp(drift+diffusion*rng.NormFloat64())
				}
				fn(i, path)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// pathSeeds 由调用级主生成器派生每条路径的种子
func pathSeeds(seed uint64, n int) []uint64 {
	master := rand.New(rand.NewPCG(seed, seedStream))
	seeds := make([]uint64, n)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}
	return seeds
}

func validateSimulation(market MarketParameters, cfg SimulationConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return market.Validate()
}
