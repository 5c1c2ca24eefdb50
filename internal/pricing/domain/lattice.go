package domain

import "math"

// LatticeEngine Cox-Ross-Rubinstein 二叉树定价
type LatticeEngine struct {
	steps int
}

// NewLatticeEngine 创建 steps 层的二叉树
func NewLatticeEngine(steps int) (*LatticeEngine, error) {
	if steps < 1 {
		return nil, invalidParameter("steps", "must be at least 1, got %d", steps)
	}
	return &LatticeEngine{steps: steps}, nil
}

// Price 逆向归纳求根节点价值。美式行权在每一层比较继续持有价值与立即行权价值。
func (l *LatticeEngine) Price(market MarketParameters, contract ContractSpec) (float64, error) {
	if err := market.Validate(); err != nil {
		return 0, err
	}
	if err := contract.validateTerms(); err != nil {
		return 0, err
	}
	exercise, err := contract.exercise()
	if err != nil {
		return 0, err
	}

	n := l.steps
	dt := market.Maturity / float64(n)
	logU := market.Volatility * math.Sqrt(dt)
	u := math.Exp(logU)
	d := 1 / u
	growth := math.Exp(market.Rate * dt)
	p := (growth - d) / (u - d)
	// 无套利条件 d < exp(r·dt) < u；边界上 p 退化为 0 或 1，同样拒绝
	if !(d < growth && growth < u) || !(p >= 0 && p <= 1) {
		return 0, arbitrageViolation("risk-neutral probability %v: requires d=%v < exp(r·dt)=%v < u=%v", p, d, growth, u)
	}
	discount := 1 / growth

	// 节点价格 S·u^j·d^(i-j) = S·exp(σ√dt·(2j-i))，每层独立重算，不做增量累乘
	nodePrice := func(i, j int) float64 {
		return market.Spot * math.Exp(logU*float64(2*j-i))
	}

	option := make([]float64, n+1)
	for j := 0; j <= n; j++ {
		option[j] = Intrinsic(contract.Type, nodePrice(n, j), contract.Strike)
	}

	// 单一缓冲区逐层覆盖：第 i 层的值写入 option[0..i]，上一层的值用完即弃
	for i := n - 1; i >= 0; i-- {
		for j := 0; j <= i; j++ {
			cont := discount * (p*option[j+1] + (1-p)*option[j])
			if exercise == ExerciseAmerican {
				cont = math.Max(cont, Intrinsic(contract.Type, nodePrice(i, j), contract.Strike))
			}
			option[j] = cont
		}
	}
	return option[0], nil
}
