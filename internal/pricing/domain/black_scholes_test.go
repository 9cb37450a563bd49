package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_ReferenceValue(t *testing.T) {
	price, err := Call(100, 100, 0.02, 0.20, 1.0)
	require.NoError(t, err)
	assert.InDelta(t, 8.9161, price, 0.01)
}

func TestPutCallParity(t *testing.T) {
	cases := []struct {
		spot, strike, rate, vol, maturity float64
	}{
		{100, 100, 0.02, 0.20, 1.0},
		{100, 80, 0.05, 0.35, 0.5},
		{50, 120, -0.01, 0.15, 3.0},
		{250, 200, 0.0, 0.60, 0.1},
	}
	for _, tc := range cases {
		call, err := Call(tc.spot, tc.strike, tc.rate, tc.vol, tc.maturity)
		require.NoError(t, err)
		put, err := Put(tc.spot, tc.strike, tc.rate, tc.vol, tc.maturity)
		require.NoError(t, err)

		parity := tc.spot - tc.strike*math.Exp(-tc.rate*tc.maturity)
		assert.InDelta(t, parity, call-put, 1e-9)
	}
}

func TestZeroCoupon(t *testing.T) {
	zc, err := ZeroCoupon(0.03, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, zc)

	prev := 1.0
	for _, m := range []float64{0.25, 0.5, 1, 2, 5, 10} {
		zc, err := ZeroCoupon(0.03, m)
		require.NoError(t, err)
		assert.Less(t, zc, prev)
		prev = zc
	}

	_, err = ZeroCoupon(0.03, -1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = ZeroCoupon(math.NaN(), 1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestDigitalCall_Bounds(t *testing.T) {
	for _, strike := range []float64{50, 90, 100, 110, 200} {
		d, err := DigitalCall(100, strike, 0.02, 0.2, 1.0, 1.0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, d, 0.0)
		assert.LessOrEqual(t, d, math.Exp(-0.02))
	}

	d, err := DigitalCall(100, 100, 0.02, 0.2, 1.0, 1.0)
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(-0.02)*0.5, d, 1e-12)

	_, err = DigitalCall(100, 100, 0.02, 0.2, 1.0, math.Inf(1))
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestBlackScholes_InvalidParameters(t *testing.T) {
	cases := []struct {
		name                              string
		spot, strike, rate, vol, maturity float64
		field                             string
	}{
		{"zero spot", 0, 100, 0.02, 0.2, 1, "spot"},
		{"negative strike", 100, -1, 0.02, 0.2, 1, "strike"},
		{"zero volatility", 100, 100, 0.02, 0, 1, "volatility"},
		{"zero maturity", 100, 100, 0.02, 0.2, 0, "maturity"},
		{"nan rate", 100, 100, math.NaN(), 0.2, 1, "rate"},
		{"inf spot", math.Inf(1), 100, 0.02, 0.2, 1, "spot"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, price := range []func(s, k, r, v, m float64) (float64, error){Call, Put} {
				_, err := price(tc.spot, tc.strike, tc.rate, tc.vol, tc.maturity)
				require.ErrorIs(t, err, ErrInvalidParameter)

				var pe *InvalidParameterError
				require.True(t, errors.As(err, &pe))
				assert.Equal(t, tc.field, pe.Field)
			}
		})
	}
}
