package application

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/structuredpricing/internal/pricing/domain"
	"github.com/wyfcoding/structuredpricing/pkg/config"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.PricingCompletedEvent
	err    error
}

func (p *recordingPublisher) PublishPricingCompleted(_ context.Context, e domain.PricingCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) published() []domain.PricingCompletedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.PricingCompletedEvent(nil), p.events...)
}

type stubQuotes struct {
	quote    domain.MarketQuote
	err      error
	ticker   string
	lookback int
}

func (s *stubQuotes) Quote(_ context.Context, ticker string, lookbackDays int) (domain.MarketQuote, error) {
	s.ticker, s.lookback = ticker, lookbackDays
	return s.quote, s.err
}

func testPricingConfig() config.PricingConfig {
	return config.PricingConfig{
		DefaultPaths:      20000,
		DefaultSeed:       42,
		DefaultSteps:      1,
		DefaultAntithetic: true,
		MaxPaths:          200000,
		Workers:           1,
		BlockSize:         8192,
		ConvergenceLadder: []int{1000, 2000, 5000},
	}
}

func newTestService(quotes domain.MarketQuoteProvider, pub domain.EventPublisher) *PricingService {
	query := NewPricingQueryService(quotes)
	command := NewPricingCommandService(testPricingConfig(), nil, query, pub, nil)
	return NewPricingService(command, query)
}

func atmMarket() MarketInput {
	return MarketInput{Spot: 100, Rate: 0.02, Volatility: 0.2}
}

func TestPriceOption_AnalyticAndMonteCarlo(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(nil, pub)

	res, err := svc.PriceOption(context.Background(), PriceOptionCommand{
		Kind:       "call",
		Market:     atmMarket(),
		Strike:     100,
		Maturity:   1,
		MonteCarlo: MonteCarloSettings{Enabled: true, Convergence: true},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ProductCall, res.Product)
	assert.InDelta(t, 8.9161, res.AnalyticPrice, 0.01)
	require.NotNil(t, res.MonteCarlo)
	assert.Equal(t, 20000, res.MonteCarlo.Estimate.Paths)
	require.NotNil(t, res.MonteCarlo.Seed)
	assert.Equal(t, int64(42), *res.MonteCarlo.Seed)
	assert.True(t, res.MonteCarlo.Antithetic)
	assert.Equal(t, res.MonteCarlo.Estimate.Price-res.AnalyticPrice, res.MonteCarlo.Difference)
	assert.Less(t, math.Abs(res.MonteCarlo.Difference), 4*res.MonteCarlo.Estimate.StandardError)
	assert.Len(t, res.Profile, 31)

	require.Len(t, res.MonteCarlo.Convergence, 4)
	for i, n := range []int{1000, 2000, 5000, 20000} {
		assert.Equal(t, n, res.MonteCarlo.Convergence[i].Paths)
		assert.GreaterOrEqual(t, res.MonteCarlo.Convergence[i].Value, 0.0)
	}

	events := pub.published()
	require.Len(t, events, 1)
	assert.Equal(t, domain.ProductCall, events[0].Product)
	assert.NotEmpty(t, events[0].EventID)
	require.NotNil(t, events[0].MonteCarlo)
	assert.Equal(t, res.MonteCarlo.Estimate.Price, events[0].MonteCarlo.Price)
}

func TestPriceOption_Digital(t *testing.T) {
	svc := newTestService(nil, nil)
	res, err := svc.PriceOption(context.Background(), PriceOptionCommand{
		Kind: "digital", Market: atmMarket(), Strike: 100, Maturity: 1, Payout: ptr(10.0),
	})
	require.NoError(t, err)

	want, err := domain.DigitalCall(100, 100, 0.02, 0.2, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, want, res.AnalyticPrice)
	assert.Nil(t, res.MonteCarlo)
	assert.Equal(t, 10.0, res.Profile[30].Payoff)
}

func ptr[T any](v T) *T {
	return &v
}

func TestPriceOption_DigitalDefaultPayout(t *testing.T) {
	svc := newTestService(nil, nil)
	res, err := svc.PriceOption(context.Background(), PriceOptionCommand{
		Kind: "digital", Market: atmMarket(), Strike: 100, Maturity: 1,
		MonteCarlo: MonteCarloSettings{Enabled: true},
	})
	require.NoError(t, err)

	want, err := domain.DigitalCall(100, 100, 0.02, 0.2, 1, domain.DefaultDigitalPayout)
	require.NoError(t, err)
	assert.Equal(t, want, res.AnalyticPrice)
	assert.Greater(t, res.AnalyticPrice, 0.0)
	assert.Equal(t, domain.DefaultDigitalPayout, res.Payout)
	assert.Equal(t, 1.0, res.Profile[30].Payoff)
	require.NotNil(t, res.MonteCarlo)
	assert.Greater(t, res.MonteCarlo.Estimate.Price, 0.0)
}

func TestPriceOption_DigitalNonPositivePayout(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(nil, pub)
	for _, payout := range []float64{0, -2, math.NaN()} {
		_, err := svc.PriceOption(context.Background(), PriceOptionCommand{
			Kind: "digital", Market: atmMarket(), Strike: 100, Maturity: 1, Payout: ptr(payout),
		})
		require.ErrorIs(t, err, domain.ErrInvalidParameter)
		var pe *domain.InvalidParameterError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, "payout", pe.Field)
	}

	_, err := svc.Convergence(context.Background(), ConvergenceCommand{
		Kind: "digital", Market: atmMarket(), Strike: 100, Maturity: 1, Payout: ptr(0.0),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
	assert.Empty(t, pub.published())

	// 非数字期权忽略 payout
	res, err := svc.PriceOption(context.Background(), PriceOptionCommand{
		Kind: "call", Market: atmMarket(), Strike: 100, Maturity: 1, Payout: ptr(-1.0),
	})
	require.NoError(t, err)
	assert.Zero(t, res.Payout)
}

func TestPriceOption_InvalidInput(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(nil, pub)

	_, err := svc.PriceOption(context.Background(), PriceOptionCommand{Kind: "straddle", Market: atmMarket(), Strike: 100, Maturity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)

	_, err = svc.PriceOption(context.Background(), PriceOptionCommand{Kind: "put", Market: atmMarket(), Strike: -5, Maturity: 1})
	require.ErrorIs(t, err, domain.ErrInvalidParameter)
	var pe *domain.InvalidParameterError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "strike", pe.Field)

	_, err = svc.PriceOption(context.Background(), PriceOptionCommand{
		Kind: "call", Market: atmMarket(), Strike: 100, Maturity: 1,
		MonteCarlo: MonteCarloSettings{Enabled: true, Paths: 1},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)

	_, err = svc.PriceOption(context.Background(), PriceOptionCommand{
		Kind: "call", Market: atmMarket(), Strike: 100, Maturity: 1,
		MonteCarlo: MonteCarloSettings{Enabled: true, Paths: 300000},
	})
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "paths", pe.Field)

	assert.Empty(t, pub.published())
}

func TestPriceOption_TickerFillsMarket(t *testing.T) {
	quotes := &stubQuotes{quote: domain.MarketQuote{Ticker: "AAPL", Spot: 180, Volatility: 0.25}}
	svc := newTestService(quotes, nil)

	res, err := svc.PriceOption(context.Background(), PriceOptionCommand{
		Kind:     "call",
		Market:   MarketInput{Ticker: " aapl ", Rate: 0.03},
		Strike:   180,
		Maturity: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", quotes.ticker)
	assert.Equal(t, DefaultLookbackDays, quotes.lookback)
	assert.Equal(t, "AAPL", res.Ticker)
	assert.Equal(t, domain.MarketParams{Spot: 180, Rate: 0.03, Volatility: 0.25}, res.Market)

	// 显式给出的波动率优先
	res, err = svc.PriceOption(context.Background(), PriceOptionCommand{
		Kind:     "call",
		Market:   MarketInput{Ticker: "AAPL", Rate: 0.03, Volatility: 0.4, LookbackDays: 60},
		Strike:   180,
		Maturity: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.4, res.Market.Volatility)
	assert.Equal(t, 180.0, res.Market.Spot)
	assert.Equal(t, 60, quotes.lookback)
}

func TestPriceOption_TickerErrors(t *testing.T) {
	svc := newTestService(nil, nil)
	_, err := svc.PriceOption(context.Background(), PriceOptionCommand{
		Kind: "call", Market: MarketInput{Ticker: "AAPL"}, Strike: 100, Maturity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)

	unavailable := errors.New("upstream down")
	svc = newTestService(&stubQuotes{err: unavailable}, nil)
	_, err = svc.PriceOption(context.Background(), PriceOptionCommand{
		Kind: "call", Market: MarketInput{Ticker: "AAPL"}, Strike: 100, Maturity: 1,
	})
	assert.ErrorIs(t, err, unavailable)
}

func TestPriceOption_PublishFailureIgnored(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker unavailable")}
	svc := newTestService(nil, pub)

	_, err := svc.PriceOption(context.Background(), PriceOptionCommand{Kind: "put", Market: atmMarket(), Strike: 90, Maturity: 1})
	assert.NoError(t, err)
	assert.Len(t, pub.published(), 1)
}

func TestPriceAutocall(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(nil, pub)
	params := domain.AutocallParams{StrikeCall: 110, StrikePut: 80, Maturity: 1, CouponRate: 0.08, Nominal: 100}

	res, err := svc.PriceAutocall(context.Background(), PriceAutocallCommand{
		Market:     atmMarket(),
		Autocall:   params,
		MonteCarlo: MonteCarloSettings{Enabled: true, Paths: 100000},
	})
	require.NoError(t, err)

	want, err := domain.PriceAutocallSimplified(100, 110, 80, 0.02, 0.2, 1, 0.08, 100)
	require.NoError(t, err)
	assert.Equal(t, want, res.Price)
	assert.Equal(t, res.Decomposition.Total(), res.Price)
	assert.False(t, res.StrikesInverted)
	require.NotNil(t, res.MonteCarlo)
	assert.Less(t, math.Abs(res.MonteCarlo.Difference), 4*res.MonteCarlo.Estimate.StandardError)
	assert.Len(t, res.Profile, 31)

	events := pub.published()
	require.Len(t, events, 1)
	assert.Equal(t, domain.ProductAutocall, events[0].Product)

	params.StrikePut = 120
	res, err = svc.PriceAutocall(context.Background(), PriceAutocallCommand{Market: atmMarket(), Autocall: params})
	require.NoError(t, err)
	assert.True(t, res.StrikesInverted)

	params.Nominal = 0
	_, err = svc.PriceAutocall(context.Background(), PriceAutocallCommand{Market: atmMarket(), Autocall: params})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestPriceZeroCoupon(t *testing.T) {
	svc := newTestService(nil, nil)
	res, err := svc.PriceZeroCoupon(context.Background(), PriceZeroCouponCommand{Rate: 0.03, Maturity: 2, Nominal: 100})
	require.NoError(t, err)
	assert.Equal(t, math.Exp(-0.06), res.UnitPrice)
	assert.Equal(t, 100*math.Exp(-0.06), res.Price)

	res, err = svc.PriceZeroCoupon(context.Background(), PriceZeroCouponCommand{Rate: 0.03, Maturity: 0})
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Price)

	_, err = svc.PriceZeroCoupon(context.Background(), PriceZeroCouponCommand{Rate: 0.03, Maturity: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
	_, err = svc.PriceZeroCoupon(context.Background(), PriceZeroCouponCommand{Rate: 0.03, Maturity: 1, Nominal: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestConvergence(t *testing.T) {
	svc := newTestService(nil, nil)

	res, err := svc.Convergence(context.Background(), ConvergenceCommand{
		Kind:       "call",
		Market:     atmMarket(),
		Strike:     100,
		Maturity:   1,
		MonteCarlo: MonteCarloSettings{Paths: 3000},
		Ladder:     domain.DefaultConvergenceLadder,
	})
	require.NoError(t, err)
	require.Len(t, res.Points, 3)
	require.Len(t, res.Errors, 3)
	for i, n := range []int{1000, 2000, 3000} {
		assert.Equal(t, n, res.Points[i].Paths)
		assert.Equal(t, math.Abs(res.Points[i].Estimate.Price-res.Reference), res.Errors[i].Value)
	}

	res, err = svc.Convergence(context.Background(), ConvergenceCommand{
		Kind:       "autocall",
		Market:     atmMarket(),
		Autocall:   domain.AutocallParams{StrikeCall: 110, StrikePut: 80, Maturity: 1, CouponRate: 0.08, Nominal: 100},
		MonteCarlo: MonteCarloSettings{Paths: 2000},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ProductAutocall, res.Product)
	require.Len(t, res.Points, 2)

	_, err = svc.Convergence(context.Background(), ConvergenceCommand{Kind: "swap", Market: atmMarket(), Strike: 100, Maturity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestSimulationDefaults(t *testing.T) {
	c := NewPricingCommandService(testPricingConfig(), nil, NewPricingQueryService(nil), nil, nil)

	sim, err := c.simulation(MonteCarloSettings{})
	require.NoError(t, err)
	assert.Equal(t, 20000, sim.Paths)
	assert.Equal(t, 1, sim.Steps)
	assert.True(t, sim.Antithetic)
	require.NotNil(t, sim.Seed)
	assert.Equal(t, int64(42), *sim.Seed)

	off := false
	sim, err = c.simulation(MonteCarloSettings{Paths: 500, Steps: 12, Antithetic: &off, Seed: domain.Seed(7)})
	require.NoError(t, err)
	assert.Equal(t, domain.SimulationParams{Paths: 500, Steps: 12, Antithetic: false, Seed: domain.Seed(7)}, sim)

	sim, err = c.simulation(MonteCarloSettings{RandomSeed: true})
	require.NoError(t, err)
	assert.Nil(t, sim.Seed)
}
