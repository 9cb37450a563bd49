package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/structuredpricing/internal/marketdata/domain"
	"github.com/wyfcoding/structuredpricing/pkg/logger"
	"github.com/wyfcoding/structuredpricing/pkg/response"
)

// SnapshotFetcher 行情快照用例
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, ticker string, lookbackDays int) (*domain.MarketSnapshot, error)
}

// MarketDataHandler 行情 HTTP 处理器
type MarketDataHandler struct {
	app SnapshotFetcher
}

// NewMarketDataHandler 创建处理器
func NewMarketDataHandler(app SnapshotFetcher) *MarketDataHandler {
	return &MarketDataHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *MarketDataHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api/v1/market")
	{
		api.GET("/snapshot/:ticker", h.GetSnapshot)
	}
}

// GetSnapshot 查询现价与年化波动率，lookback_days 默认 252
func (h *MarketDataHandler) GetSnapshot(c *gin.Context) {
	lookback := 252
	if raw := c.Query("lookback_days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "invalid lookback_days", raw)
			return
		}
		lookback = v
	}

	snap, err := h.app.FetchSnapshot(c.Request.Context(), c.Param("ticker"), lookback)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRequest):
			response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		case errors.Is(err, domain.ErrDataUnavailable):
			logger.Warn(c.Request.Context(), "market data unavailable", "ticker", c.Param("ticker"), "error", err)
			response.ErrorWithStatus(c, http.StatusBadGateway, err.Error(), "")
		default:
			logger.Error(c.Request.Context(), "failed to fetch market snapshot", "ticker", c.Param("ticker"), "error", err)
			response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		}
		return
	}

	response.Success(c, snap)
}
