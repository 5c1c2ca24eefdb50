// Package metrics Prometheus 指标定义与采集接口
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wyfcoding/optionlab/pkg/logger"
)

const namespace = "optionlab"

// Metrics 指标集合
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	GRPCRequestsTotal   *prometheus.CounterVec
	GRPCRequestDuration *prometheus.HistogramVec

	// 业务指标
	PricingRequestsTotal *prometheus.CounterVec
	PricingDuration      *prometheus.HistogramVec
	SimulatedPathsTotal  prometheus.Counter
	CacheLookupsTotal    *prometheus.CounterVec
	OutboxRelayedTotal   *prometheus.CounterVec
}

// New 创建指标实例，subsystem 一般为服务名
func New(subsystem string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		GRPCRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "grpc_requests_total",
			Help:      "Total gRPC requests",
		}, []string{"method", "code"}),
		GRPCRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "grpc_request_duration_seconds",
			Help:      "gRPC request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		PricingRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pricing_requests_total",
			Help:      "Pricing requests by model and outcome",
		}, []string{"model", "status"}),
		PricingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pricing_duration_seconds",
			Help:      "Pricing computation time in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		}, []string{"model"}),
		SimulatedPathsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "simulated_paths_total",
			Help:      "Monte Carlo trajectories simulated",
		}),
		CacheLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_lookups_total",
			Help:      "Pricing cache lookups by result",
		}, []string{"result"}),
		OutboxRelayedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_relayed_total",
			Help:      "Outbox messages relayed to Kafka by outcome",
		}, []string{"status"}),
	}
}

// Register 注册全部指标
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GRPCRequestsTotal,
		m.GRPCRequestDuration,
		m.PricingRequestsTotal,
		m.PricingDuration,
		m.SimulatedPathsTotal,
		m.CacheLookupsTotal,
		m.OutboxRelayedTotal,
	} {
		if err := reg.Register(c); err != nil {
			logger.Error(context.Background(), "failed to register metric", "error", err)
			return err
		}
	}
	return nil
}

// Handler 暴露指标的 HTTP handler
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Collector 指标采集接口
type Collector interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
	RecordGRPCRequest(method, code string, duration time.Duration)
	RecordPricing(model, status string, duration time.Duration)
	RecordSimulatedPaths(n int)
	RecordCacheLookup(hit bool)
	RecordOutboxRelay(status string, n int)
}

// PrometheusCollector 基于 Metrics 的 Collector 实现
type PrometheusCollector struct {
	metrics *Metrics
}

func NewPrometheusCollector(m *Metrics) *PrometheusCollector {
	return &PrometheusCollector{metrics: m}
}

func (c *PrometheusCollector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (c *PrometheusCollector) RecordGRPCRequest(method, code string, duration time.Duration) {
	c.metrics.GRPCRequestsTotal.WithLabelValues(method, code).Inc()
	c.metrics.GRPCRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func (c *PrometheusCollector) RecordPricing(model, status string, duration time.Duration) {
	c.metrics.PricingRequestsTotal.WithLabelValues(model, status).Inc()
	c.metrics.PricingDuration.WithLabelValues(model).Observe(duration.Seconds())
}

func (c *PrometheusCollector) RecordSimulatedPaths(n int) {
	c.metrics.SimulatedPathsTotal.Add(float64(n))
}

func (c *PrometheusCollector) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.metrics.CacheLookupsTotal.WithLabelValues(result).Inc()
}

func (c *PrometheusCollector) RecordOutboxRelay(status string, n int) {
	c.metrics.OutboxRelayedTotal.WithLabelValues(status).Add(float64(n))
}

// Noop 不记录任何指标
type Noop struct{}

func (Noop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Noop) RecordGRPCRequest(string, string, time.Duration)      {}
func (Noop) RecordPricing(string, string, time.Duration)          {}
func (Noop) RecordSimulatedPaths(int)                             {}
func (Noop) RecordCacheLookup(bool)                               {}
func (Noop) RecordOutboxRelay(string, int)                        {}
