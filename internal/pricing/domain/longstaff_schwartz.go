package domain

import "math"

// lsmBasis 回归基函数个数：1, x, x²，其中 x = S/K
const lsmBasis = 3

// LSMPricer Longstaff-Schwartz 最小二乘蒙特卡洛，用于美式普通期权
type LSMPricer struct {
	simulator *PathSimulator
	estimator *MonteCarloEstimator
}

// NewLSMPricer 创建 LSM 定价器
func NewLSMPricer(simulator *PathSimulator, estimator *MonteCarloEstimator) *LSMPricer {
	return &LSMPricer{simulator: simulator, estimator: estimator}
}

// Price 逐步倒推：在每个步点对价内路径回归继续持有价值，立即行权价值更高时提前行权。
// 第 0 步不回归，结果为各路径最优停时现金流折现后的均值；若低于立即行权价值，则在 0 时刻行权。
func (p *LSMPricer) Price(market MarketParameters, contract ContractSpec, cfg SimulationConfig) (PriceEstimate, error) {
	if err := contract.validateTerms(); err != nil {
		return PriceEstimate{}, err
	}
	if cfg.Paths < 2 {
		return PriceEstimate{}, degenerateStatistic("standard error needs at least 2 paths, got %d", cfg.Paths)
	}
	paths, err := p.simulator.Simulate(market, cfg)
	if err != nil {
		return PriceEstimate{}, err
	}

	n := cfg.Steps
	dt := market.Maturity / float64(n)
	k := contract.Strike

	cash := make([]float64, len(paths))
	stop := make([]int, len(paths))
	for i, path := range paths {
		cash[i] = Intrinsic(contract.Type, path[n], k)
		stop[i] = n
	}

	itm := make([]int, 0, len(paths))
	for t := n - 1; t >= 1; t-- {
		itm = itm[:0]
		for i, path := range paths {
			if Intrinsic(contract.Type, path[t], k) > 0 {
				itm = append(itm, i)
			}
		}
		if len(itm) < lsmBasis {
			continue
		}

		var ata [lsmBasis][lsmBasis]float64
		var aty [lsmBasis]float64
		for _, i := range itm {
			b := basis(paths[i][t] / k)
			y := cash[i] * math.Exp(-market.Rate*float64(stop[i]-t)*dt)
			for r := 0; r < lsmBasis; r++ {
				aty[r] += b[r] * y
				for c := 0; c < lsmBasis; c++ {
					ata[r][c] += b[r] * b[c]
				}
			}
		}
		beta, ok := solve3(ata, aty)
		if !ok {
			continue
		}

		for _, i := range itm {
			b := basis(paths[i][t] / k)
			continuation := beta[0]*b[0] + beta[1]*b[1] + beta[2]*b[2]
			exercise := Intrinsic(contract.Type, paths[i][t], k)
			if exercise > continuation {
				cash[i] = exercise
				stop[i] = t
			}
		}
	}

	discounted := make([]float64, len(paths))
	for i := range cash {
		discounted[i] = cash[i] * math.Exp(-market.Rate*float64(stop[i])*dt)
	}
	est, err := p.estimator.summarize(discounted)
	if err != nil {
		return PriceEstimate{}, err
	}
	if now := Intrinsic(contract.Type, market.Spot, k); now > est.Price {
		return PriceEstimate{
			Price:           now,
			ConfidenceLevel: est.ConfidenceLevel,
			Lower:           now,
			Upper:           now,
			Paths:           est.Paths,
		}, nil
	}
	return est, nil
}

func basis(x float64) [lsmBasis]float64 {
	return [lsmBasis]float64{1, x, x * x}
}

// solve3 列主元高斯消元求解 3x3 正规方程，奇异时返回 false
func solve3(a [lsmBasis][lsmBasis]float64, b [lsmBasis]float64) ([lsmBasis]float64, bool) {
	var x [lsmBasis]float64
	for col := 0; col < lsmBasis; col++ {
		pivot := col
		for r := col + 1; r < lsmBasis; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return x, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]
		for r := col + 1; r < lsmBasis; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < lsmBasis; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}
	for r := lsmBasis - 1; r >= 0; r-- {
		sum := b[r]
		for c := r + 1; c < lsmBasis; c++ {
			sum -= a[r][c] * x[c]
		}
		x[r] = sum / a[r][r]
	}
	return x, true
}
