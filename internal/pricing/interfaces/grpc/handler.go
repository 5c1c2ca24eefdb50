// Package grpc 定价服务的 gRPC 接口
package grpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wyfcoding/optionlab/internal/pricing/application"
	"github.com/wyfcoding/optionlab/internal/pricing/domain"
	"github.com/wyfcoding/optionlab/pkg/logger"
	"github.com/wyfcoding/optionlab/pkg/request"
)

// GRPCHandler gRPC 处理器
type GRPCHandler struct {
	app *application.PricingService
}

func NewGRPCHandler(app *application.PricingService) *GRPCHandler {
	return &GRPCHandler{app: app}
}

func (h *GRPCHandler) PriceOption(ctx context.Context, req *application.PriceOptionRequest) (*application.PricingResultDTO, error) {
	if errs := request.Validate(req); errs != nil {
		return nil, status.Error(codes.InvalidArgument, request.Summary(errs))
	}
	cmd, err := req.ToCommand()
	if err != nil {
		return nil, toStatus(err)
	}
	cmd.RequestID = logger.RequestID(ctx)
	result, err := h.app.PriceOption(ctx, cmd)
	if err != nil {
		return nil, toStatus(err)
	}
	return application.ToPricingResultDTO(result), nil
}

func (h *GRPCHandler) SimulatePaths(ctx context.Context, req *application.SimulatePathsRequest) (*application.SimulatePathsResponse, error) {
	if errs := request.Validate(req); errs != nil {
		return nil, status.Error(codes.InvalidArgument, request.Summary(errs))
	}
	cmd, err := req.ToCommand()
	if err != nil {
		return nil, toStatus(err)
	}
	res, err := h.app.SimulatePaths(ctx, cmd)
	if err != nil {
		return nil, toStatus(err)
	}
	return application.ToSimulatePathsResponse(res), nil
}

func (h *GRPCHandler) BatchPriceOptions(ctx context.Context, req *application.BatchPriceOptionsRequest) (*application.BatchPricingResponse, error) {
	if errs := request.Validate(req); errs != nil {
		return nil, status.Error(codes.InvalidArgument, request.Summary(errs))
	}
	for i := range req.Contracts {
		if errs := request.Validate(&req.Contracts[i]); errs != nil {
			return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("contracts[%d]: %s", i, request.Summary(errs)))
		}
	}
	cmd, err := req.ToCommand()
	if err != nil {
		return nil, toStatus(err)
	}
	res, err := h.app.BatchPriceOptions(ctx, cmd)
	if err != nil {
		return nil, toStatus(err)
	}
	return application.ToBatchPricingResponse(res), nil
}

func (h *GRPCHandler) GetLatestResult(ctx context.Context, req *GetLatestResultRequest) (*application.PricingResultDTO, error) {
	if errs := request.Validate(req); errs != nil {
		return nil, status.Error(codes.InvalidArgument, request.Summary(errs))
	}
	result, err := h.app.GetLatestResult(ctx, req.Symbol)
	if err != nil {
		return nil, toStatus(err)
	}
	return application.ToPricingResultDTO(result), nil
}

func (h *GRPCHandler) GetHistory(ctx context.Context, req *GetHistoryRequest) (*application.HistoryResponse, error) {
	if errs := request.Validate(req); errs != nil {
		return nil, status.Error(codes.InvalidArgument, request.Summary(errs))
	}
	results, err := h.app.GetHistory(ctx, req.Symbol, req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return &application.HistoryResponse{Symbol: req.Symbol, Results: application.ToPricingResultDTOs(results)}, nil
}

// toStatus 将应用层错误映射为 gRPC 状态码
func toStatus(err error) error {
	switch code := domain.ErrorCode(err); {
	case errors.Is(err, application.ErrResultNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case code == domain.CodeInvalidParameter, code == domain.CodeDegenerateStatistic:
		return status.Error(codes.InvalidArgument, err.Error())
	case code == domain.CodeArbitrageViolation:
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
