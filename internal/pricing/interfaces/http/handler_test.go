package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mddomain "github.com/wyfcoding/structuredpricing/internal/marketdata/domain"
	"github.com/wyfcoding/structuredpricing/internal/pricing/application"
	"github.com/wyfcoding/structuredpricing/internal/pricing/domain"
	"github.com/wyfcoding/structuredpricing/pkg/config"
)

type failingQuotes struct{}

func (failingQuotes) Quote(context.Context, string, int) (domain.MarketQuote, error) {
	return domain.MarketQuote{}, fmt.Errorf("%w: SPY: upstream timeout", mddomain.ErrDataUnavailable)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
	Data    json.RawMessage `json:"data"`
}

func newRouter(quotes domain.MarketQuoteProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.PricingConfig{
		DefaultPaths:      20000,
		DefaultSeed:       42,
		DefaultSteps:      1,
		DefaultAntithetic: true,
		MaxPaths:          100000,
		Workers:           1,
		BlockSize:         8192,
		ConvergenceLadder: []int{1000, 5000},
	}
	query := application.NewPricingQueryService(quotes)
	command := application.NewPricingCommandService(cfg, nil, query, nil, nil)

	r := gin.New()
	NewPricingHandler(application.NewPricingService(command, query)).RegisterRoutes(r)
	return r
}

func post(t *testing.T, r *gin.Engine, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestPriceOption_CallWithMonteCarlo(t *testing.T) {
	r := newRouter(nil)
	w, env := post(t, r, "/api/v1/pricing/option", gin.H{
		"kind":        "call",
		"market":      gin.H{"spot": 100, "rate": 0.02, "volatility": 0.2},
		"strike":      100,
		"maturity":    1,
		"monte_carlo": gin.H{"enabled": true},
	})
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	var result application.OptionPricingResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, domain.ProductCall, result.Product)
	assert.InDelta(t, 8.9161, result.AnalyticPrice, 0.01)
	require.NotNil(t, result.MonteCarlo)
	assert.Equal(t, 20000, result.MonteCarlo.Estimate.Paths)
	assert.InDelta(t, result.AnalyticPrice, result.MonteCarlo.Estimate.Price, 0.5)
	assert.Len(t, result.Profile, 31)

	// 展示值保留 6 位小数
	scaled := result.AnalyticPrice * 1e6
	assert.InDelta(t, scaled, float64(int64(scaled+0.5)), 1e-6)
}

func TestPriceOption_InvalidParameter(t *testing.T) {
	r := newRouter(nil)
	w, env := post(t, r, "/api/v1/pricing/option", gin.H{
		"kind":     "put",
		"market":   gin.H{"spot": -1, "rate": 0.02, "volatility": 0.2},
		"strike":   100,
		"maturity": 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "spot", env.Detail)

	w, env = post(t, r, "/api/v1/pricing/option", gin.H{
		"kind":   "swap",
		"market": gin.H{"spot": 100, "rate": 0.02, "volatility": 0.2},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "kind", env.Detail)

	w, _ = post(t, r, "/api/v1/pricing/option", `{"kind":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPriceOption_DigitalPayout(t *testing.T) {
	r := newRouter(nil)
	market := gin.H{"spot": 100, "rate": 0.02, "volatility": 0.2}

	w, env := post(t, r, "/api/v1/pricing/option", gin.H{
		"kind": "digital", "market": market, "strike": 100, "maturity": 1,
	})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var result application.OptionPricingResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	want, err := domain.DigitalCall(100, 100, 0.02, 0.2, 1, 1)
	require.NoError(t, err)
	assert.InDelta(t, want, result.AnalyticPrice, 1e-6)
	assert.Equal(t, 1.0, result.Payout)

	for _, payout := range []float64{0, -3} {
		w, env = post(t, r, "/api/v1/pricing/option", gin.H{
			"kind": "digital", "market": market, "strike": 100, "maturity": 1, "payout": payout,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "payout", env.Detail)
	}

	w, env = post(t, r, "/api/v1/pricing/convergence", gin.H{
		"kind": "digital", "market": market, "strike": 100, "maturity": 1, "payout": 0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "payout", env.Detail)
}

func TestPriceOption_DataUnavailable(t *testing.T) {
	r := newRouter(failingQuotes{})
	w, _ := post(t, r, "/api/v1/pricing/option", gin.H{
		"kind":     "call",
		"market":   gin.H{"ticker": "SPY", "rate": 0.02},
		"strike":   100,
		"maturity": 1,
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestPriceZeroCoupon(t *testing.T) {
	r := newRouter(nil)
	w, env := post(t, r, "/api/v1/pricing/zero-coupon", gin.H{"rate": 0.05, "maturity": 2, "nominal": 100})
	require.Equal(t, http.StatusOK, w.Code)

	var result application.ZeroCouponResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 0.904837, result.UnitPrice)
	assert.InDelta(t, 90.483742, result.Price, 1e-9)

	w, env = post(t, r, "/api/v1/pricing/zero-coupon", gin.H{"rate": 0.05, "maturity": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "maturity", env.Detail)
}

func TestPriceAutocall(t *testing.T) {
	r := newRouter(nil)
	w, env := post(t, r, "/api/v1/pricing/autocall", gin.H{
		"market":      gin.H{"spot": 100, "rate": 0.03, "volatility": 0.25},
		"strike_call": 100,
		"strike_put":  70,
		"maturity":    1,
		"coupon_rate": 0.08,
		"nominal":     100,
	})
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	var result application.AutocallPricingResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	d := result.Decomposition
	assert.InDelta(t, d.ZeroCouponLeg+d.DigitalCallLeg-d.ShortPutLeg, result.Price, 3e-6)
	assert.False(t, result.StrikesInverted)
	assert.Nil(t, result.MonteCarlo)
}

func TestConvergence(t *testing.T) {
	r := newRouter(nil)
	w, env := post(t, r, "/api/v1/pricing/convergence", gin.H{
		"kind":        "call",
		"market":      gin.H{"spot": 100, "rate": 0.02, "volatility": 0.2},
		"strike":      100,
		"maturity":    1,
		"monte_carlo": gin.H{"paths": 3000},
		"ladder":      []int{1000, 2000, 5000},
	})
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	var result application.ConvergenceResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.Len(t, result.Points, 3)
	assert.Equal(t, []int{1000, 2000, 3000}, []int{result.Points[0].Paths, result.Points[1].Paths, result.Points[2].Paths})
	require.Len(t, result.Errors, 3)
	for _, e := range result.Errors {
		assert.GreaterOrEqual(t, e.Value, 0.0)
	}
}
