package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"blazeoffice/metrics"
	"blazeoffice/models"
)

type CommitRequest struct {
	Email       string
	Amount      float64
	CountryCode string
	IPAddress   string
}

type CommitResult struct {
	Commitment *models.Commitment `json:"commitment"`
	Estimate   TokenEstimate      `json:"estimate"`
}

// CommitmentService records presale purchase intents.
type CommitmentService struct {
	commitments CommitmentStore
	pricing     *PricingService
	dispatcher  *Dispatcher
	notifier    Notifier
	events      EventPublisher
	geo         GeoLocator
	geoTimeout  time.Duration
	log         *zap.Logger
}

func NewCommitmentService(
	commitments CommitmentStore,
	pricing *PricingService,
	dispatcher *Dispatcher,
	notifier Notifier,
	events EventPublisher,
	geo GeoLocator,
	log *zap.Logger,
) *CommitmentService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	if events == nil {
		events = NoopPublisher{}
	}
	return &CommitmentService{
		commitments: commitments,
		pricing:     pricing,
		dispatcher:  dispatcher,
		notifier:    notifier,
		events:      events,
		geo:         geo,
		geoTimeout:  2 * time.Second,
		log:         log,
	}
}

// Commit prices the amount against the active tier and stores it. The
// amount is clamped into the accepted range rather than rejected.
func (s *CommitmentService) Commit(ctx context.Context, req CommitRequest) (*CommitResult, error) {
	email, err := NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	est, tier, err := s.pricing.Estimate(ctx, req.Amount)
	if err != nil {
		return nil, err
	}

	c := &models.Commitment{
		Email:             email,
		IntendedAmountUSD: est.AmountUSD,
		EstimatedTokens:   est.TotalTokens,
		Tier:              tier.TierNumber,
	}
	if req.IPAddress != "" {
		ip := req.IPAddress
		c.IPAddress = &ip
	}
	if code := s.country(ctx, req); code != "" {
		c.CountryCode = &code
	}

	if err := s.commitments.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create commitment: %w", err)
	}
	metrics.CommittedUSD.Add(c.IntendedAmountUSD)
	s.pricing.Invalidate(ctx)
	s.log.Info("Presale commitment",
		zap.Int64("id", c.ID),
		zap.Float64("amount_usd", c.IntendedAmountUSD),
		zap.Int("tier", c.Tier))

	if s.dispatcher != nil {
		_, _ = s.dispatcher.SendTemplate(ctx, models.AudienceCommitment, email, "commitment_confirmation", CommitmentVars(*c, tier.Name))
	}
	s.notifier.Notify(ctx, commitmentNotice(email, c.IntendedAmountUSD, tier.Name, c.EstimatedTokens))
	publishBestEffort(ctx, s.events, s.log, EventCommitmentCreated, map[string]interface{}{
		"id":         c.ID,
		"email":      c.Email,
		"amount_usd": c.IntendedAmountUSD,
		"tokens":     c.EstimatedTokens,
		"tier":       c.Tier,
	})

	return &CommitResult{Commitment: c, Estimate: est}, nil
}

// country prefers the client supplied code and falls back to a bounded
// geo lookup. Lookup failures leave the country for the backfill.
func (s *CommitmentService) country(ctx context.Context, req CommitRequest) string {
	if code := NormalizeCountryCode(req.CountryCode); code != "" {
		return code
	}
	if s.geo == nil || !PublicIP(req.IPAddress) {
		return ""
	}
	lookupCtx, cancel := context.WithTimeout(ctx, s.geoTimeout)
	defer cancel()
	code, err := s.geo.Country(lookupCtx, req.IPAddress)
	if err != nil {
		s.log.Debug("Country lookup skipped", zap.Error(err))
		return ""
	}
	return code
}

func (s *CommitmentService) List(ctx context.Context) ([]models.Commitment, error) {
	rows, err := s.commitments.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list commitments: %w", err)
	}
	if rows == nil {
		rows = []models.Commitment{}
	}
	return rows, nil
}

// SetConverted flags a commitment as turned into a purchase, which also
// takes it out of the commitment drip.
func (s *CommitmentService) SetConverted(ctx context.Context, id int64, converted bool) error {
	return s.commitments.SetConverted(ctx, id, converted)
}
