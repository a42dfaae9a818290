package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"blazeoffice/metrics"
	"blazeoffice/models"
	"blazeoffice/repository"
)

const (
	defaultSignupSource = "website"
	maxSourceLength     = 64
)

// NormalizeEmail trims and lower-cases an address after checking it parses.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

type JoinRequest struct {
	Email        string
	ReferralCode string
	Source       string
}

type JoinResult struct {
	Signup   *models.Signup
	Position int
	Created  bool
}

// WaitlistService handles public signups and the admin signup views.
type WaitlistService struct {
	signups     SignupStore
	dispatcher  *Dispatcher
	leaderboard *LeaderboardService
	events      EventPublisher
	siteURL     string
	log         *zap.Logger
}

func NewWaitlistService(signups SignupStore, dispatcher *Dispatcher, leaderboard *LeaderboardService, events EventPublisher, siteURL string, log *zap.Logger) *WaitlistService {
	if events == nil {
		events = NoopPublisher{}
	}
	return &WaitlistService{
		signups:     signups,
		dispatcher:  dispatcher,
		leaderboard: leaderboard,
		events:      events,
		siteURL:     siteURL,
		log:         log,
	}
}

// Join adds an email to the waitlist. Joining twice is not an error: the
// existing signup comes back with Created false.
func (s *WaitlistService) Join(ctx context.Context, req JoinRequest) (*JoinResult, error) {
	email, err := NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	existing, err := s.signups.GetByEmail(ctx, email)
	if err == nil {
		return s.result(ctx, existing, false)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup signup: %w", err)
	}

	signup := &models.Signup{Email: email, Source: cleanSource(req.Source)}
	if ref := s.referrer(ctx, req.ReferralCode); ref != "" {
		signup.ReferredBy = &ref
	}

	created, err := s.insert(ctx, signup)
	if err != nil {
		return nil, err
	}
	if !created {
		// Lost a race with a concurrent signup for the same address.
		existing, err := s.signups.GetByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("lookup signup: %w", err)
		}
		return s.result(ctx, existing, false)
	}

	metrics.Signups.Inc()
	s.log.Info("Waitlist signup",
		zap.Int64("id", signup.ID),
		zap.String("source", signup.Source),
		zap.Bool("referred", signup.ReferredBy != nil))

	if signup.ReferredBy != nil {
		if err := s.signups.IncrementReferrals(ctx, *signup.ReferredBy); err != nil {
			s.log.Warn("Failed to credit referrer", zap.String("code", *signup.ReferredBy), zap.Error(err))
		} else if s.leaderboard != nil {
			s.leaderboard.Invalidate(ctx)
		}
	}

	if s.dispatcher != nil {
		// Best effort: the send is logged, so the drip will not repeat it
		// and a failure is retried by the next run.
		_, _ = s.dispatcher.SendTemplate(ctx, models.AudienceWaitlist, email, "welcome", SignupVars(s.siteURL, *signup))
	}

	publishBestEffort(ctx, s.events, s.log, EventWaitlistJoined, map[string]interface{}{
		"email":         signup.Email,
		"referral_code": signup.ReferralCode,
		"referred_by":   signup.ReferredBy,
		"source":        signup.Source,
	})

	return s.result(ctx, signup, true)
}

func (s *WaitlistService) insert(ctx context.Context, signup *models.Signup) (bool, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := uniqueReferralCode(ctx, s.signups)
		if err != nil {
			return false, err
		}
		signup.ReferralCode = code

		created, err := s.signups.Create(ctx, signup)
		if errors.Is(err, repository.ErrDuplicateCode) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("create signup: %w", err)
		}
		return created, nil
	}
	return false, ErrCodeSpaceExhausted
}

// referrer returns the normalized code when it belongs to an existing
// signup, otherwise "".
func (s *WaitlistService) referrer(ctx context.Context, code string) string {
	code = NormalizeReferralCode(code)
	if code == "" {
		return ""
	}
	if _, err := s.signups.GetByCode(ctx, code); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("Referral lookup failed", zap.String("code", code), zap.Error(err))
		}
		return ""
	}
	return code
}

func (s *WaitlistService) result(ctx context.Context, signup *models.Signup, created bool) (*JoinResult, error) {
	pos, err := s.signups.Position(ctx, signup.ID)
	if err != nil {
		return nil, fmt.Errorf("signup position: %w", err)
	}
	return &JoinResult{Signup: signup, Position: pos, Created: created}, nil
}

func (s *WaitlistService) Count(ctx context.Context) (int, error) {
	return s.signups.Count(ctx)
}

type SignupPage struct {
	Signups  []models.Signup `json:"signups"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

func (s *WaitlistService) List(ctx context.Context, page, pageSize int, search string) (*SignupPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	rows, total, err := s.signups.List(ctx, (page-1)*pageSize, pageSize, strings.TrimSpace(search))
	if err != nil {
		return nil, fmt.Errorf("list signups: %w", err)
	}
	if rows == nil {
		rows = []models.Signup{}
	}
	return &SignupPage{Signups: rows, Total: total, Page: page, PageSize: pageSize}, nil
}

// SetPaused stops or resumes drip emails for one signup.
func (s *WaitlistService) SetPaused(ctx context.Context, id int64, paused bool) error {
	return s.signups.SetPaused(ctx, id, paused)
}

func cleanSource(source string) string {
	source = strings.TrimSpace(source)
	if source == "" {
		return defaultSignupSource
	}
	return truncateRunes(source, maxSourceLength)
}

// truncateRunes keeps at most n runes of s.
func truncateRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}
