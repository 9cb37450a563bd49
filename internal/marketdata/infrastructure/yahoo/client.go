// Package yahoo Yahoo Finance chart 接口客户端，带指数退避重试与熔断
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/wyfcoding/structuredpricing/internal/marketdata/domain"
	"github.com/wyfcoding/structuredpricing/pkg/logger"
)

// DefaultBaseURL chart 接口地址
const DefaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// Config 客户端配置
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// 熔断：连续失败次数阈值
	BreakerFailures uint32
	// 熔断：打开状态持续时间
	BreakerTimeout time.Duration
	// 首次重试间隔，0 使用 backoff 默认值
	RetryInterval time.Duration
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Client 日收盘价客户端
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	cfg     Config
}

// NewClient 创建客户端
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "structuredpricing/1.0")

	failures := cfg.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "yahoo-chart",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{http: httpClient, breaker: breaker, cfg: cfg}
}

// DailyCloses 拉取最近 days 天的日收盘价，丢弃缺失值
func (c *Client) DailyCloses(ctx context.Context, ticker string, days int) ([]float64, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchWithRetry(ctx, ticker, days)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrDataUnavailable, ticker, err)
		}
		return nil, err
	}
	return res.([]float64), nil
}

func (c *Client) fetchWithRetry(ctx context.Context, ticker string, days int) ([]float64, error) {
	exp := backoff.NewExponentialBackOff()
	if c.cfg.RetryInterval > 0 {
		exp.InitialInterval = c.cfg.RetryInterval
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(max(c.cfg.MaxRetries, 0))), ctx)

	var closes []float64
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		var err error
		closes, err = c.fetch(ctx, ticker, days)
		if err != nil {
			logger.Debug(ctx, "yahoo chart request failed", "ticker", ticker, "attempt", attempt, "error", err)
		}
		return err
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDataUnavailable, ticker, err)
	}
	return closes, nil
}

// fetch 单次请求；4xx 与解析错误不重试
func (c *Client) fetch(ctx context.Context, ticker string, days int) ([]float64, error) {
	var body chartResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("ticker", ticker).
		SetQueryParams(map[string]string{
			"interval": "1d",
			"range":    strconv.Itoa(days) + "d",
		}).
		SetResult(&body).
		SetError(&body).
		Get("/{ticker}")
	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		statusErr := fmt.Errorf("yahoo finance returned status %d", resp.StatusCode())
		if body.Chart.Error != nil {
			statusErr = fmt.Errorf("%w: %s", statusErr, body.Chart.Error.Description)
		}
		if resp.StatusCode() >= http.StatusInternalServerError || resp.StatusCode() == http.StatusTooManyRequests {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}

	if body.Chart.Error != nil {
		return nil, backoff.Permanent(fmt.Errorf("yahoo finance error %s: %s", body.Chart.Error.Code, body.Chart.Error.Description))
	}
	if len(body.Chart.Result) == 0 || len(body.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, backoff.Permanent(fmt.Errorf("no data returned for symbol %s", ticker))
	}

	raw := body.Chart.Result[0].Indicators.Quote[0].Close
	closes := make([]float64, 0, len(raw))
	for _, v := range raw {
		if v == nil || math.IsNaN(*v) {
			continue
		}
		closes = append(closes, *v)
	}
	return closes, nil
}
