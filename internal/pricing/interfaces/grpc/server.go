package grpc

import (
	"google.golang.org/grpc"

	"github.com/wyfcoding/optionlab/pkg/metrics"
	"github.com/wyfcoding/optionlab/pkg/middleware"
	"github.com/wyfcoding/optionlab/pkg/ratelimit"
)

// ServerOptions gRPC 服务端参数。Limiter 为 nil 时不限流。
type ServerOptions struct {
	MaxConcurrentStreams uint32
	Metrics              metrics.Collector
	Limiter              ratelimit.RateLimiter
	Limit                ratelimit.Limit
}

// NewServer 创建 gRPC 服务端并注册定价服务
func NewServer(handler PricingServer, opts ServerOptions) *grpc.Server {
	collector := opts.Metrics
	if collector == nil {
		collector = metrics.Noop{}
	}
	interceptors := []grpc.UnaryServerInterceptor{
		middleware.GRPCRecovery(),
		middleware.GRPCRequestContext(),
		middleware.GRPCLogging(),
		middleware.GRPCMetrics(collector),
	}
	if opts.Limiter != nil {
		interceptors = append(interceptors, middleware.GRPCRateLimit(opts.Limiter, opts.Limit))
	}

	serverOpts := []grpc.ServerOption{grpc.ChainUnaryInterceptor(interceptors...)}
	if opts.MaxConcurrentStreams > 0 {
		serverOpts = append(serverOpts, grpc.MaxConcurrentStreams(opts.MaxConcurrentStreams))
	}
	s := grpc.NewServer(serverOpts...)
	RegisterPricingServer(s, handler)
	return s
}
