package application

import (
	"time"

	"github.com/wyfcoding/optionlab/internal/pricing/domain"
)

// Options 计算资源上限与默认值。MaxLSMCells 限制美式蒙特卡洛一次保存的路径点数 Paths*(Steps+1)。
type Options struct {
	Workers                int
	MaxPaths               int
	MaxSteps               int
	MaxLSMCells            int64
	MaxSamplePaths         int
	MaxBatchSize           int
	DefaultConfidenceLevel float64
	HistoryLimit           int
	CacheTTL               time.Duration
}

// DefaultOptions 与配置文件默认值一致
func DefaultOptions() Options {
	return Options{
		MaxPaths:               1_000_000,
		MaxSteps:               5000,
		MaxLSMCells:            20_000_000,
		MaxSamplePaths:         200,
		MaxBatchSize:           100,
		DefaultConfidenceLevel: domain.DefaultConfidenceLevel,
		HistoryLimit:           50,
		CacheTTL:               10 * time.Minute,
	}
}

// PriceOptionCommand 期权定价命令
type PriceOptionCommand struct {
	RequestID string                  `json:"-"`
	Symbol    string                  `json:"symbol"`
	Model     domain.PricingModel     `json:"model"`
	Market    domain.MarketParameters `json:"market"`
	Contract  domain.ContractSpec     `json:"contract"`
	// Steps 二叉树层数，或蒙特卡洛每条路径的时间步数
	Steps int `json:"steps"`
	Paths int `json:"paths"`
	// Seed 为 0 时使用 domain.DefaultPricingSeed
	Seed uint64 `json:"seed"`
	// ConfidenceLevel 为 nil 时使用 Options.DefaultConfidenceLevel
	ConfidenceLevel *float64 `json:"confidence_level"`
}

// SimulatePathsCommand 生成展示用样本路径
type SimulatePathsCommand struct {
	Market domain.MarketParameters
	Paths  int
	Steps  int
	// Seed 为 0 时使用 domain.DefaultSampleSeed
	Seed    uint64
	Barrier *domain.BarrierSpec
}

// SimulatePathsResult 样本路径，Breached[i] 表示第 i 条路径是否触及障碍
type SimulatePathsResult struct {
	Seed     uint64
	Paths    []domain.PricePath
	Breached []bool
}

// BatchPriceOptionsCommand 批量定价命令
type BatchPriceOptionsCommand struct {
	BatchID  string
	Commands []PriceOptionCommand
}

// BatchFailure 批量中单个失败项
type BatchFailure struct {
	Index   int    `json:"index"`
	Symbol  string `json:"symbol"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchPricingResult 批量定价结果
type BatchPricingResult struct {
	BatchID      string
	Results      []*domain.PricingResult
	Failures     []BatchFailure
	SuccessCount int
	FailureCount int
	// AverageTime 每个合约的平均耗时（秒）
	AverageTime float64
}
