package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"blazeoffice/models"
)

const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 500
)

// Rank orders signups by referral count (desc), join time (asc) and id
// (asc), assigns 1-based ranks and attaches the matching reward tier.
// The input slice is not modified.
func Rank(rows []models.Signup, rewards []models.RewardTier) []models.LeaderboardEntry {
	sorted := append([]models.Signup(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.ReferralCount != b.ReferralCount {
			return a.ReferralCount > b.ReferralCount
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	out := make([]models.LeaderboardEntry, len(sorted))
	for i, s := range sorted {
		rank := i + 1
		out[i] = models.LeaderboardEntry{
			Rank:          rank,
			SignupID:      s.ID,
			Email:         s.Email,
			ReferralCode:  s.ReferralCode,
			ReferralCount: s.ReferralCount,
			JoinedAt:      s.CreatedAt,
			Reward:        RewardFor(rank, rewards),
		}
	}
	return out
}

// RewardFor returns the reward tier containing rank, or nil.
func RewardFor(rank int, rewards []models.RewardTier) *models.RewardTier {
	for i := range rewards {
		if rewards[i].Contains(rank) {
			r := rewards[i]
			return &r
		}
	}
	return nil
}

// MaskEmail keeps the first two characters of the local part:
// "johnny@example.com" becomes "jo***@example.com".
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return "***"
	}
	return truncateRunes(email[:at], 2) + "***" + email[at:]
}

type Leaderboard struct {
	Entries []models.LeaderboardEntry `json:"entries"`
	Rewards []models.RewardTier       `json:"rewards"`
	You     *models.LeaderboardEntry  `json:"you,omitempty"`
}

// LeaderboardService builds the public referral leaderboard.
type LeaderboardService struct {
	signups SignupStore
	rewards RewardStore
	cache   Cache
}

func NewLeaderboardService(signups SignupStore, rewards RewardStore, cache Cache) *LeaderboardService {
	if cache == nil {
		cache = NoopCache{}
	}
	return &LeaderboardService{signups: signups, rewards: rewards, cache: cache}
}

// Full ranks every signup with at least one referral, unmasked.
func (s *LeaderboardService) Full(ctx context.Context) ([]models.LeaderboardEntry, error) {
	var cached []models.LeaderboardEntry
	if s.cache.Get(ctx, cacheKeyLeaderboard, &cached) {
		return cached, nil
	}

	rows, err := s.signups.Referrers(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("load referrers: %w", err)
	}
	rewards, err := s.rewards.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rewards: %w", err)
	}
	ranked := Rank(rows, rewards)
	s.cache.Set(ctx, cacheKeyLeaderboard, ranked)
	return ranked, nil
}

// Public returns the top limit entries with masked emails. When code is
// set and belongs to a ranked signup, that entry is returned as You.
func (s *LeaderboardService) Public(ctx context.Context, limit int, code string) (*Leaderboard, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	ranked, err := s.Full(ctx)
	if err != nil {
		return nil, err
	}
	rewards, err := s.rewards.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rewards: %w", err)
	}

	board := &Leaderboard{Rewards: rewards, Entries: make([]models.LeaderboardEntry, 0, limit)}
	code = NormalizeReferralCode(code)
	for _, e := range ranked {
		e.Email = MaskEmail(e.Email)
		if len(board.Entries) < limit {
			board.Entries = append(board.Entries, e)
		}
		if code != "" && e.ReferralCode == code {
			you := e
			board.You = &you
		}
	}
	return board, nil
}

// Invalidate drops the cached ranking after referral counts change.
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	s.cache.Delete(ctx, cacheKeyLeaderboard)
}
