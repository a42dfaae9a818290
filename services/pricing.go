package services

import (
	"errors"
	"fmt"
	"math"

	"blazeoffice/models"
)

const (
	MinCommitmentUSD = 100.0
	MaxCommitmentUSD = 10000.0
)

var (
	ErrNoActiveTier = errors.New("no active pricing tier")
	ErrInvalidPrice = errors.New("pricing tier has no valid price")
)

type TokenEstimate struct {
	AmountUSD       float64 `json:"amount_usd"`
	Tier            int     `json:"tier"`
	TierName        string  `json:"tier_name"`
	PricePerToken   float64 `json:"price_per_token"`
	BonusPercentage float64 `json:"bonus_percentage"`
	BaseTokens      float64 `json:"base_tokens"`
	BonusTokens     float64 `json:"bonus_tokens"`
	TotalTokens     float64 `json:"total_tokens"`
}

// ClampAmount forces a commitment into the accepted USD range.
func ClampAmount(amount float64) float64 {
	if math.IsNaN(amount) || amount < MinCommitmentUSD {
		return MinCommitmentUSD
	}
	if amount > MaxCommitmentUSD {
		return MaxCommitmentUSD
	}
	return amount
}

// EstimateTokens prices a (clamped) USD amount against a tier.
func EstimateTokens(amount float64, tier models.PricingTier) (TokenEstimate, error) {
	if tier.PricePerToken <= 0 {
		return TokenEstimate{}, fmt.Errorf("tier %d: %w", tier.TierNumber, ErrInvalidPrice)
	}

	amount = ClampAmount(amount)
	base := amount / tier.PricePerToken
	bonus := base * tier.BonusPercentage / 100

	return TokenEstimate{
		AmountUSD:       amount,
		Tier:            tier.TierNumber,
		TierName:        tier.Name,
		PricePerToken:   tier.PricePerToken,
		BonusPercentage: tier.BonusPercentage,
		BaseTokens:      base,
		BonusTokens:     bonus,
		TotalTokens:     base + bonus,
	}, nil
}

// ActiveTier picks the active tier with the lowest tier number.
func ActiveTier(tiers []models.PricingTier) (models.PricingTier, error) {
	var active *models.PricingTier
	for i := range tiers {
		t := &tiers[i]
		if !t.IsActive {
			continue
		}
		if active == nil || t.TierNumber < active.TierNumber {
			active = t
		}
	}
	if active == nil {
		return models.PricingTier{}, ErrNoActiveTier
	}
	return *active, nil
}

// TierForBuyers returns the tier whose buyer range holds the n-th buyer.
func TierForBuyers(tiers []models.PricingTier, n int) (models.PricingTier, bool) {
	for _, t := range tiers {
		if n >= t.MinBuyers && n <= t.MaxBuyers {
			return t, true
		}
	}
	return models.PricingTier{}, false
}
