package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	mddomain "github.com/wyfcoding/structuredpricing/internal/marketdata/domain"
	"github.com/wyfcoding/structuredpricing/internal/pricing/application"
	"github.com/wyfcoding/structuredpricing/internal/pricing/domain"
	"github.com/wyfcoding/structuredpricing/pkg/logger"
	"github.com/wyfcoding/structuredpricing/pkg/response"
)

// PricingHandler HTTP 处理器
// 负责处理与定价相关的 HTTP 请求
type PricingHandler struct {
	app *application.PricingService
}

// NewPricingHandler 创建 HTTP 处理器实例
func NewPricingHandler(app *application.PricingService) *PricingHandler {
	return &PricingHandler{app: app}
}

// RegisterRoutes 注册路由
// 将处理器方法绑定到 Gin 路由引擎
func (h *PricingHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api/v1/pricing")
	{
		api.POST("/zero-coupon", h.PriceZeroCoupon)
		api.POST("/option", h.PriceOption)
		api.POST("/autocall", h.PriceAutocall)
		api.POST("/convergence", h.Convergence)
	}
}

// PriceZeroCoupon 零息债券定价
func (h *PricingHandler) PriceZeroCoupon(c *gin.Context) {
	var req ZeroCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.app.PriceZeroCoupon(c.Request.Context(), application.PriceZeroCouponCommand{
		Rate:     req.Rate,
		Maturity: req.Maturity,
		Nominal:  req.Nominal,
	})
	if err != nil {
		h.writeError(c, "Failed to price zero coupon", err)
		return
	}
	response.Success(c, zeroCouponView(result))
}

// PriceOption 期权定价（call / put / digital）
func (h *PricingHandler) PriceOption(c *gin.Context) {
	var req OptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.app.PriceOption(c.Request.Context(), application.PriceOptionCommand{
		Kind:       req.Kind,
		Market:     req.Market.toInput(),
		Strike:     req.Strike,
		Maturity:   req.Maturity,
		Payout:     req.Payout,
		MonteCarlo: req.MonteCarlo.toSettings(),
	})
	if err != nil {
		h.writeError(c, "Failed to price option", err)
		return
	}
	response.Success(c, optionView(result))
}

// PriceAutocall autocall 定价
func (h *PricingHandler) PriceAutocall(c *gin.Context) {
	var req AutocallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.app.PriceAutocall(c.Request.Context(), application.PriceAutocallCommand{
		Market:     req.Market.toInput(),
		Autocall:   req.params(),
		MonteCarlo: req.MonteCarlo.toSettings(),
	})
	if err != nil {
		h.writeError(c, "Failed to price autocall", err)
		return
	}
	response.Success(c, autocallView(result))
}

// Convergence 收敛分析
func (h *PricingHandler) Convergence(c *gin.Context) {
	var req ConvergenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.app.Convergence(c.Request.Context(), application.ConvergenceCommand{
		Kind:       req.Kind,
		Market:     req.Market.toInput(),
		Strike:     req.Strike,
		Maturity:   req.Maturity,
		Payout:     req.Payout,
		Autocall:   req.Autocall.params(),
		MonteCarlo: req.MonteCarlo.toSettings(),
		Ladder:     req.Ladder,
	})
	if err != nil {
		h.writeError(c, "Failed to run convergence sweep", err)
		return
	}
	response.Success(c, convergenceView(result))
}

// writeError 参数错误 400（detail 为字段名），行情不可用 502，其余 500
func (h *PricingHandler) writeError(c *gin.Context, msg string, err error) {
	var ipe *domain.InvalidParameterError
	switch {
	case errors.As(err, &ipe):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), ipe.Field)
	case errors.Is(err, domain.ErrInvalidParameter):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, mddomain.ErrDataUnavailable):
		logger.Warn(c.Request.Context(), msg, "error", err)
		response.ErrorWithStatus(c, http.StatusBadGateway, err.Error(), "")
	default:
		logger.Error(c.Request.Context(), msg, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
	}
}
