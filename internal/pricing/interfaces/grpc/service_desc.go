package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/wyfcoding/optionlab/internal/pricing/application"
)

const serviceName = "optionlab.pricing.v1.PricingService"

// GetLatestResultRequest 最新结果查询
type GetLatestResultRequest struct {
	Symbol string `json:"symbol" validate:"required"`
}

// GetHistoryRequest 历史结果查询
type GetHistoryRequest struct {
	Symbol string `json:"symbol" validate:"required"`
	Limit  int    `json:"limit" validate:"min=0,max=1000"`
}

// PricingServer 定价 gRPC 服务
type PricingServer interface {
	PriceOption(context.Context, *application.PriceOptionRequest) (*application.PricingResultDTO, error)
	SimulatePaths(context.Context, *application.SimulatePathsRequest) (*application.SimulatePathsResponse, error)
	BatchPriceOptions(context.Context, *application.BatchPriceOptionsRequest) (*application.BatchPricingResponse, error)
	GetLatestResult(context.Context, *GetLatestResultRequest) (*application.PricingResultDTO, error)
	GetHistory(context.Context, *GetHistoryRequest) (*application.HistoryResponse, error)
}

// PricingServiceDesc 手工声明的服务描述，消息体使用 JSON 编码
var PricingServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*PricingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PriceOption", Handler: unaryHandler("PriceOption", PricingServer.PriceOption)},
		{MethodName: "SimulatePaths", Handler: unaryHandler("SimulatePaths", PricingServer.SimulatePaths)},
		{MethodName: "BatchPriceOptions", Handler: unaryHandler("BatchPriceOptions", PricingServer.BatchPriceOptions)},
		{MethodName: "GetLatestResult", Handler: unaryHandler("GetLatestResult", PricingServer.GetLatestResult)},
		{MethodName: "GetHistory", Handler: unaryHandler("GetHistory", PricingServer.GetHistory)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "optionlab/pricing/v1",
}

// RegisterPricingServer 注册服务实现
func RegisterPricingServer(s grpc.ServiceRegistrar, srv PricingServer) {
	s.RegisterService(&PricingServiceDesc, srv)
}

func unaryHandler[Req, Resp any](method string, call func(PricingServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	fullMethod := "/" + serviceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PricingServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PricingServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// PricingClient 定价 gRPC 客户端
type PricingClient struct {
	cc grpc.ClientConnInterface
}

func NewPricingClient(cc grpc.ClientConnInterface) *PricingClient {
	return &PricingClient{cc: cc}
}

func (c *PricingClient) PriceOption(ctx context.Context, in *application.PriceOptionRequest, opts ...grpc.CallOption) (*application.PricingResultDTO, error) {
	out := new(application.PricingResultDTO)
	return out, c.invoke(ctx, "PriceOption", in, out, opts)
}

func (c *PricingClient) SimulatePaths(ctx context.Context, in *application.SimulatePathsRequest, opts ...grpc.CallOption) (*application.SimulatePathsResponse, error) {
	out := new(application.SimulatePathsResponse)
	return out, c.invoke(ctx, "SimulatePaths", in, out, opts)
}

func (c *PricingClient) BatchPriceOptions(ctx context.Context, in *application.BatchPriceOptionsRequest, opts ...grpc.CallOption) (*application.BatchPricingResponse, error) {
	out := new(application.BatchPricingResponse)
	return out, c.invoke(ctx, "BatchPriceOptions", in, out, opts)
}

func (c *PricingClient) GetLatestResult(ctx context.Context, in *GetLatestResultRequest, opts ...grpc.CallOption) (*application.PricingResultDTO, error) {
	out := new(application.PricingResultDTO)
	return out, c.invoke(ctx, "GetLatestResult", in, out, opts)
}

func (c *PricingClient) GetHistory(ctx context.Context, in *GetHistoryRequest, opts ...grpc.CallOption) (*application.HistoryResponse, error) {
	out := new(application.HistoryResponse)
	return out, c.invoke(ctx, "GetHistory", in, out, opts)
}

func (c *PricingClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...)
}
