package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"blazeoffice/models"
)

type PricingOverview struct {
	Tiers      []models.PricingTier `json:"tiers"`
	Active     *models.PricingTier  `json:"active_tier"`
	BuyerCount int                  `json:"buyer_count"`
}

// PricingService serves tier data to the presale page and the admin.
type PricingService struct {
	tiers       PricingStore
	commitments CommitmentStore
	cache       Cache
	log         *zap.Logger
}

func NewPricingService(tiers PricingStore, commitments CommitmentStore, cache Cache, log *zap.Logger) *PricingService {
	if cache == nil {
		cache = NoopCache{}
	}
	return &PricingService{tiers: tiers, commitments: commitments, cache: cache, log: log}
}

func (s *PricingService) Tiers(ctx context.Context) ([]models.PricingTier, error) {
	tiers, err := s.tiers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pricing tiers: %w", err)
	}
	return tiers, nil
}

func (s *PricingService) Overview(ctx context.Context) (*PricingOverview, error) {
	var cached PricingOverview
	if s.cache.Get(ctx, cacheKeyPricing, &cached) {
		return &cached, nil
	}

	tiers, err := s.Tiers(ctx)
	if err != nil {
		return nil, err
	}
	buyers, err := s.commitments.BuyerCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("count buyers: %w", err)
	}

	out := &PricingOverview{Tiers: tiers, BuyerCount: buyers}
	if active, err := ActiveTier(tiers); err == nil {
		out.Active = &active
	}
	s.cache.Set(ctx, cacheKeyPricing, out)
	return out, nil
}

// Estimate prices amount against the currently active tier.
func (s *PricingService) Estimate(ctx context.Context, amount float64) (TokenEstimate, models.PricingTier, error) {
	tiers, err := s.Tiers(ctx)
	if err != nil {
		return TokenEstimate{}, models.PricingTier{}, err
	}
	tier, err := ActiveTier(tiers)
	if err != nil {
		return TokenEstimate{}, models.PricingTier{}, err
	}
	est, err := EstimateTokens(amount, tier)
	return est, tier, err
}

// Activate makes one tier the only active tier.
func (s *PricingService) Activate(ctx context.Context, id int64) error {
	if err := s.tiers.Activate(ctx, id); err != nil {
		return err
	}
	s.log.Info("Pricing tier activated", zap.Int64("tier_id", id))
	s.Invalidate(ctx)
	return nil
}

func (s *PricingService) Invalidate(ctx context.Context) {
	s.cache.Delete(ctx, cacheKeyPricing)
}
