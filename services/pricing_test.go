package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blazeoffice/models"
)

var testTiers = []models.PricingTier{
	{ID: 1, TierNumber: 1, Name: "Founders", MinBuyers: 1, MaxBuyers: 100, PricePerToken: 0.0015, BonusPercentage: 50, IsActive: true},
	{ID: 2, TierNumber: 2, Name: "Early Birds", MinBuyers: 101, MaxBuyers: 250, PricePerToken: 0.002, BonusPercentage: 30},
	{ID: 3, TierNumber: 3, Name: "Pioneers", MinBuyers: 251, MaxBuyers: 500, PricePerToken: 0.0025, BonusPercentage: 15},
}

func TestEstimateTokens_Example(t *testing.T) {
	est, err := EstimateTokens(1000, testTiers[0])
	require.NoError(t, err)

	assert.Equal(t, 666667.0, math.Round(est.BaseTokens))
	assert.Equal(t, 333333.0, math.Round(est.BonusTokens))
	assert.Equal(t, 1000000.0, math.Round(est.TotalTokens))
	assert.Equal(t, 1, est.Tier)
}

func TestEstimateTokens_FormulaHoldsAcrossRange(t *testing.T) {
	for _, tier := range testTiers {
		for amount := 100.0; amount <= 10000; amount += 337 {
			est, err := EstimateTokens(amount, tier)
			require.NoError(t, err)

			want := amount / tier.PricePerToken * (1 + tier.BonusPercentage/100)
			assert.InEpsilon(t, want, est.TotalTokens, 1e-9, "amount=%v tier=%d", amount, tier.TierNumber)
			assert.InDelta(t, est.BaseTokens+est.BonusTokens, est.TotalTokens, 1e-6)
		}
	}
}

func TestEstimateTokens_ClampsAmount(t *testing.T) {
	low, err := EstimateTokens(5, testTiers[1])
	require.NoError(t, err)
	assert.Equal(t, MinCommitmentUSD, low.AmountUSD)

	high, err := EstimateTokens(50000, testTiers[1])
	require.NoError(t, err)
	assert.Equal(t, MaxCommitmentUSD, high.AmountUSD)
	assert.InDelta(t, 10000/0.002*1.3, high.TotalTokens, 1e-6)
}

func TestEstimateTokens_InvalidPrice(t *testing.T) {
	_, err := EstimateTokens(1000, models.PricingTier{TierNumber: 9})
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestClampAmount(t *testing.T) {
	assert.Equal(t, 100.0, ClampAmount(math.NaN()))
	assert.Equal(t, 100.0, ClampAmount(-3))
	assert.Equal(t, 2500.5, ClampAmount(2500.5))
	assert.Equal(t, 10000.0, ClampAmount(10000.01))
}

func TestActiveTier(t *testing.T) {
	tier, err := ActiveTier(testTiers)
	require.NoError(t, err)
	assert.Equal(t, "Founders", tier.Name)

	both := []models.PricingTier{
		{TierNumber: 3, IsActive: true},
		{TierNumber: 2, IsActive: true},
	}
	tier, err = ActiveTier(both)
	require.NoError(t, err)
	assert.Equal(t, 2, tier.TierNumber)

	_, err = ActiveTier([]models.PricingTier{{TierNumber: 1}})
	assert.ErrorIs(t, err, ErrNoActiveTier)
}

func TestTierForBuyers(t *testing.T) {
	tier, ok := TierForBuyers(testTiers, 101)
	require.True(t, ok)
	assert.Equal(t, 2, tier.TierNumber)

	_, ok = TierForBuyers(testTiers, 9999)
	assert.False(t, ok)
}
