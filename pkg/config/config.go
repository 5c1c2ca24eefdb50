// Package config 加载 TOML 配置：默认值、环境变量覆盖与结构校验
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/wyfcoding/optionlab/pkg/logger"
)

// EnvPrefix 环境变量前缀，例如 APP_HTTP_PORT 覆盖 http.port
const EnvPrefix = "APP"

// Config 服务配置
type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Logger    logger.Config   `mapstructure:"logger"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
}

// ServiceConfig 服务标识
type ServiceConfig struct {
	Name        string `mapstructure:"name" default:"pricing" validate:"required"`
	Version     string `mapstructure:"version" default:"dev"`
	Environment string `mapstructure:"environment" default:"dev" validate:"oneof=dev staging prod"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Host         string        `mapstructure:"host" default:"0.0.0.0"`
	Port         int           `mapstructure:"port" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" default:"30s"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" default:"60s"`
}

// Addr 监听地址
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GRPCConfig gRPC 服务配置
type GRPCConfig struct {
	Host                 string `mapstructure:"host" default:"0.0.0.0"`
	Port                 int    `mapstructure:"port" default:"50051" validate:"min=1,max=65535"`
	MaxConcurrentStreams uint32 `mapstructure:"max_concurrent_streams" default:"1000"`
}

// Addr 监听地址
func (c GRPCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver             string        `mapstructure:"driver" default:"mysql" validate:"oneof=mysql"`
	DSN                string        `mapstructure:"dsn" validate:"required"`
	MaxOpenConns       int           `mapstructure:"max_open_conns" default:"25"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns" default:"5"`
	ConnMaxLifetime    time.Duration `mapstructure:"conn_max_lifetime" default:"5m"`
	LogEnabled         bool          `mapstructure:"log_enabled"`
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold" default:"1s"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr         string        `mapstructure:"addr" default:"localhost:6379"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size" default:"10"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" default:"5s"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" default:"3s"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" default:"3s"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers" validate:"required,min=1"`
	MaxRetries   int           `mapstructure:"max_retries" default:"3"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" default:"100ms"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" default:"/metrics"`
}

// RateLimitConfig 接口限流配置
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	QPS     int  `mapstructure:"qps" default:"50" validate:"min=1"`
	Burst   int  `mapstructure:"burst" default:"100" validate:"min=1"`
}

// PricingConfig 定价计算资源上限与默认值
type PricingConfig struct {
	// Workers 路径模拟协程数，0 表示 GOMAXPROCS
	Workers                int           `mapstructure:"workers" validate:"min=0"`
	MaxPaths               int           `mapstructure:"max_paths" default:"1000000" validate:"min=2"`
	MaxSteps               int           `mapstructure:"max_steps" default:"5000" validate:"min=1"`
	MaxLSMCells            int64         `mapstructure:"max_lsm_cells" default:"20000000" validate:"min=2"`
	MaxSamplePaths         int           `mapstructure:"max_sample_paths" default:"200" validate:"min=1"`
	MaxBatchSize           int           `mapstructure:"max_batch_size" default:"100" validate:"min=1"`
	DefaultConfidenceLevel float64       `mapstructure:"default_confidence_level" default:"0.95" validate:"gt=0,lt=1"`
	HistoryLimit           int           `mapstructure:"history_limit" default:"50" validate:"min=1"`
	CacheTTL               time.Duration `mapstructure:"cache_ttl" default:"10m"`
	Outbox                 OutboxConfig  `mapstructure:"outbox"`
}

// OutboxConfig outbox 投递配置
type OutboxConfig struct {
	Topic         string        `mapstructure:"topic" default:"optionlab.pricing.events" validate:"required"`
	RelayInterval time.Duration `mapstructure:"relay_interval" default:"1s"`
	BatchSize     int           `mapstructure:"batch_size" default:"100" validate:"min=1"`
	Retention     time.Duration `mapstructure:"retention" default:"168h"`
}

// Load 读取配置文件。先填充默认值，再用文件与环境变量覆盖，最后校验。
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}
