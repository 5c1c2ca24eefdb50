package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/optionlab/internal/pricing/application"
	"github.com/wyfcoding/optionlab/internal/pricing/domain"
	"github.com/wyfcoding/optionlab/pkg/request"
	"github.com/wyfcoding/optionlab/pkg/response"
)

// PricingHandler 定价 HTTP 处理器
type PricingHandler struct {
	app *application.PricingService
}

func NewPricingHandler(app *application.PricingService) *PricingHandler {
	return &PricingHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *PricingHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/pricing")
	{
		api.POST("/option/price", h.PriceOption)
		api.POST("/lattice", h.priceWithModel(domain.ModelLattice))
		api.POST("/monte-carlo", h.priceWithModel(domain.ModelMonteCarlo))
		api.POST("/paths", h.SimulatePaths)
		api.POST("/batch", h.BatchPriceOptions)
		api.GET("/results/:symbol/latest", h.GetLatestResult)
		api.GET("/results/:symbol/history", h.GetHistory)
	}
}

// PriceOption 按请求中的 model 定价
func (h *PricingHandler) PriceOption(c *gin.Context) {
	h.price(c, "")
}

// priceWithModel 固定定价模型，忽略请求中的 model
func (h *PricingHandler) priceWithModel(model domain.PricingModel) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.price(c, model)
	}
}

func (h *PricingHandler) price(c *gin.Context, model domain.PricingModel) {
	var req application.PriceOptionRequest
	if errs := request.BindJSON(c, &req); errs != nil {
		badRequest(c, errs)
		return
	}
	if model != "" {
		req.Model = string(model)
	}
	cmd, err := req.ToCommand()
	if err != nil {
		writeError(c, err)
		return
	}
	cmd.RequestID = c.GetString(response.RequestIDKey)

	result, err := h.app.PriceOption(c.Request.Context(), cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, application.ToPricingResultDTO(result))
}

// SimulatePaths 生成样本路径
func (h *PricingHandler) SimulatePaths(c *gin.Context) {
	var req application.SimulatePathsRequest
	if errs := request.BindJSON(c, &req); errs != nil {
		badRequest(c, errs)
		return
	}
	cmd, err := req.ToCommand()
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.app.SimulatePaths(c.Request.Context(), cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, application.ToSimulatePathsResponse(res))
}

// BatchPriceOptions 批量定价
func (h *PricingHandler) BatchPriceOptions(c *gin.Context) {
	var req application.BatchPriceOptionsRequest
	if errs := request.BindJSON(c, &req); errs != nil {
		badRequest(c, errs)
		return
	}
	for i := range req.Contracts {
		if errs := request.Validate(&req.Contracts[i]); errs != nil {
			for j := range errs {
				errs[j].Field = fmt.Sprintf("contracts[%d].%s", i, errs[j].Field)
			}
			badRequest(c, errs)
			return
		}
	}
	cmd, err := req.ToCommand()
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.app.BatchPriceOptions(c.Request.Context(), cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, application.ToBatchPricingResponse(res))
}

// GetLatestResult 标的最新定价结果
func (h *PricingHandler) GetLatestResult(c *gin.Context) {
	result, err := h.app.GetLatestResult(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, application.ToPricingResultDTO(result))
}

// HistoryQuery 历史查询参数
type HistoryQuery struct {
	Limit int `form:"limit" validate:"min=0,max=1000"`
}

// GetHistory 标的历史定价结果
func (h *PricingHandler) GetHistory(c *gin.Context) {
	var q HistoryQuery
	if errs := request.BindQuery(c, &q); errs != nil {
		badRequest(c, errs)
		return
	}
	symbol := c.Param("symbol")
	results, err := h.app.GetHistory(c.Request.Context(), symbol, q.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, application.HistoryResponse{Symbol: symbol, Results: application.ToPricingResultDTOs(results)})
}

func badRequest(c *gin.Context, errs []request.FieldError) {
	response.Error(c, http.StatusBadRequest, domain.CodeInvalidParameter, request.Summary(errs), errs)
}

// writeError 将应用层错误映射为 HTTP 状态码
func writeError(c *gin.Context, err error) {
	var data any
	var perr *domain.PricingError
	if errors.As(err, &perr) && perr.Field != "" {
		data = gin.H{"field": perr.Field}
	}

	switch code := domain.ErrorCode(err); {
	case errors.Is(err, application.ErrResultNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		response.Error(c, http.StatusGatewayTimeout, "TIMEOUT", err.Error(), nil)
	case code == domain.CodeInvalidParameter, code == domain.CodeDegenerateStatistic:
		response.Error(c, http.StatusBadRequest, code, err.Error(), data)
	case code == domain.CodeArbitrageViolation:
		response.Error(c, http.StatusUnprocessableEntity, code, err.Error(), data)
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, domain.CodeInternal, "internal server error", nil)
	}
}
