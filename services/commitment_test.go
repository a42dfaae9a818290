package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"blazeoffice/models"
)

type fixedGeo struct {
	code  string
	err   error
	calls int
}

func (g *fixedGeo) Country(context.Context, string) (string, error) {
	g.calls++
	return g.code, g.err
}

type commitmentFixture struct {
	commitments *memCommitments
	pricing     *memPricing
	logs        *memLogs
	mailer      *recordingMailer
	notifier    *recordingNotifier
	publisher   *recordingPublisher
	geo         *fixedGeo
	svc         *CommitmentService
}

func newCommitmentFixture(t *testing.T) *commitmentFixture {
	t.Helper()
	f := &commitmentFixture{
		commitments: &memCommitments{},
		pricing:     &memPricing{tiers: seededTiers()},
		logs:        &memLogs{},
		mailer:      &recordingMailer{},
		notifier:    &recordingNotifier{},
		publisher:   &recordingPublisher{},
		geo:         &fixedGeo{code: "NL"},
	}
	logs := map[string]EmailLogStore{models.AudienceCommitment: f.logs}
	pricing := NewPricingService(f.pricing, f.commitments, nil, zap.NewNop())
	f.svc = NewCommitmentService(f.commitments, pricing, newTestDispatcher(t, f.mailer, logs), f.notifier, f.publisher, f.geo, zap.NewNop())
	return f
}

func TestCommitStoresEstimate(t *testing.T) {
	f := newCommitmentFixture(t)

	res, err := f.svc.Commit(context.Background(), CommitRequest{Email: "Buyer@X.io", Amount: 1000, CountryCode: "de"})
	require.NoError(t, err)

	c := res.Commitment
	assert.Equal(t, "buyer@x.io", c.Email)
	assert.Equal(t, 1000.0, c.IntendedAmountUSD)
	assert.Equal(t, 1, c.Tier)
	assert.Equal(t, 1000000.0, math.Round(c.EstimatedTokens))
	require.NotNil(t, c.CountryCode)
	assert.Equal(t, "DE", *c.CountryCode)
	assert.Zero(t, f.geo.calls)

	require.Equal(t, 1, f.mailer.count())
	assert.Equal(t, 1, f.logs.count(models.SendSent))
	require.Len(t, f.notifier.texts, 1)
	assert.Contains(t, f.notifier.texts[0], "$1000.00")
	assert.Equal(t, []string{EventCommitmentCreated}, f.publisher.keys)
}

func TestCommitClampsAmount(t *testing.T) {
	f := newCommitmentFixture(t)

	low, err := f.svc.Commit(context.Background(), CommitRequest{Email: "a@x.io", Amount: 5})
	require.NoError(t, err)
	assert.Equal(t, MinCommitmentUSD, low.Commitment.IntendedAmountUSD)

	high, err := f.svc.Commit(context.Background(), CommitRequest{Email: "a@x.io", Amount: 1e9})
	require.NoError(t, err)
	assert.Equal(t, MaxCommitmentUSD, high.Commitment.IntendedAmountUSD)
}

func TestCommitLooksUpCountryFromPublicIP(t *testing.T) {
	f := newCommitmentFixture(t)

	res, err := f.svc.Commit(context.Background(), CommitRequest{Email: "a@x.io", Amount: 500, IPAddress: "8.8.8.8"})
	require.NoError(t, err)
	require.NotNil(t, res.Commitment.CountryCode)
	assert.Equal(t, "NL", *res.Commitment.CountryCode)
	require.NotNil(t, res.Commitment.IPAddress)

	res, err = f.svc.Commit(context.Background(), CommitRequest{Email: "b@x.io", Amount: 500, IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.Nil(t, res.Commitment.CountryCode)
	assert.Equal(t, 1, f.geo.calls)
}

func TestCommitGeoFailureLeavesCountryEmpty(t *testing.T) {
	f := newCommitmentFixture(t)
	f.geo.err = errors.New("quota exceeded")

	res, err := f.svc.Commit(context.Background(), CommitRequest{Email: "a@x.io", Amount: 500, IPAddress: "8.8.8.8"})
	require.NoError(t, err)
	assert.Nil(t, res.Commitment.CountryCode)
}

func TestCommitWithoutActiveTier(t *testing.T) {
	f := newCommitmentFixture(t)
	for i := range f.pricing.tiers {
		f.pricing.tiers[i].IsActive = false
	}

	_, err := f.svc.Commit(context.Background(), CommitRequest{Email: "a@x.io", Amount: 500})
	assert.ErrorIs(t, err, ErrNoActiveTier)
	assert.Empty(t, f.commitments.rows)
}

func TestPricingOverviewCachesAndInvalidates(t *testing.T) {
	store := &memPricing{tiers: seededTiers()}
	commitments := &memCommitments{}
	cache := newMemCache()
	svc := NewPricingService(store, commitments, cache, zap.NewNop())

	ov, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ov.Active)
	assert.Equal(t, 1, ov.Active.TierNumber)
	assert.Len(t, ov.Tiers, 4)

	require.NoError(t, svc.Activate(context.Background(), 3))
	ov, err = svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, ov.Active.TierNumber)
	assert.Zero(t, cache.hits)

	_, err = svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
}

func TestPricingEstimateUsesActiveTier(t *testing.T) {
	store := &memPricing{tiers: seededTiers()}
	svc := NewPricingService(store, &memCommitments{}, nil, zap.NewNop())
	require.NoError(t, svc.Activate(context.Background(), 2))

	est, tier, err := svc.Estimate(context.Background(), 1000)
	require.NoError(t, err)
	assert.Equal(t, "Early Birds", tier.Name)
	assert.InDelta(t, 500000.0, est.BaseTokens, 0.001)
	assert.InDelta(t, 150000.0, est.BonusTokens, 0.001)
	assert.InDelta(t, 650000.0, est.TotalTokens, 0.001)
}
