package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePrice(t *testing.T) {
	got, err := ComputePrice(decimal.NewFromInt(100), decimal.NewFromInt(10), date("2024-01-01"), date("2024-01-04"))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(270)), "got %s", got)
}

func TestComputePriceExactDecimal(t *testing.T) {
	// 99.99 * 0.85 = 84.9915 per night; 3 nights = 254.9745
	got, err := ComputePrice(decimal.RequireFromString("99.99"), decimal.NewFromInt(15), date("2024-01-01"), date("2024-01-04"))
	require.NoError(t, err)
	assert.Equal(t, "254.97", got.StringFixed(2))

	got, err = ComputePrice(decimal.RequireFromString("0.10"), decimal.Zero, date("2024-01-01"), date("2024-01-04"))
	require.NoError(t, err)
	assert.Equal(t, "0.30", got.StringFixed(2))
}

func TestComputePriceBounds(t *testing.T) {
	full, err := ComputePrice(decimal.NewFromInt(100), decimal.NewFromInt(100), date("2024-01-01"), date("2024-01-02"))
	require.NoError(t, err)
	assert.True(t, full.IsZero())

	_, err = ComputePrice(decimal.NewFromInt(100), decimal.NewFromInt(101), date("2024-01-01"), date("2024-01-02"))
	assert.ErrorIs(t, err, ErrInvalidDiscount)

	_, err = ComputePrice(decimal.NewFromInt(100), decimal.NewFromInt(-1), date("2024-01-01"), date("2024-01-02"))
	assert.ErrorIs(t, err, ErrInvalidDiscount)

	_, err = ComputePrice(decimal.NewFromInt(100), decimal.Zero, date("2024-01-01"), date("2024-01-01"))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = ComputePrice(decimal.NewFromInt(100), decimal.Zero, date("2024-01-05"), date("2024-01-01"))
	assert.ErrorIs(t, err, ErrInvalidRange)
}
