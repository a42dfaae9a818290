package handlers

import (
	"context"

	"blazeoffice/models"
	"blazeoffice/repository"
	"blazeoffice/services"
)

type WaitlistServicer interface {
	Join(ctx context.Context, req services.JoinRequest) (*services.JoinResult, error)
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, page, pageSize int, search string) (*services.SignupPage, error)
	SetPaused(ctx context.Context, id int64, paused bool) error
}

type CommitmentServicer interface {
	Commit(ctx context.Context, req services.CommitRequest) (*services.CommitResult, error)
	List(ctx context.Context) ([]models.Commitment, error)
	SetConverted(ctx context.Context, id int64, converted bool) error
}

type PricingServicer interface {
	Overview(ctx context.Context) (*services.PricingOverview, error)
	Estimate(ctx context.Context, amount float64) (services.TokenEstimate, models.PricingTier, error)
	Tiers(ctx context.Context) ([]models.PricingTier, error)
	Activate(ctx context.Context, id int64) error
}

type LeaderboardServicer interface {
	Public(ctx context.Context, limit int, code string) (*services.Leaderboard, error)
	Full(ctx context.Context) ([]models.LeaderboardEntry, error)
}

type ContactServicer interface {
	Submit(ctx context.Context, req services.ContactRequest) (*models.ContactMessage, error)
	List(ctx context.Context, status string) ([]models.ContactMessage, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error
}

type ChatServicer interface {
	Enabled() bool
	Validate(messages []services.ChatMessage) ([]services.ChatMessage, error)
	Stream(ctx context.Context, messages []services.ChatMessage, emit func(delta string) error) error
}

type BulkServicer interface {
	Reminder(ctx context.Context, emails []string, templateKey string) (*services.BulkResult, error)
	Broadcast(ctx context.Context, req services.BroadcastRequest) (*services.BulkResult, error)
	Apology(ctx context.Context) (*services.BulkResult, error)
}

type CountryBackfiller interface {
	Run(ctx context.Context) (*services.BackfillResult, error)
}

type StatsReader interface {
	Overview(ctx context.Context) (*repository.DashboardStats, error)
}

type CampaignAdmin interface {
	List(ctx context.Context, audience string) ([]models.EmailCampaign, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type EmailLogReader interface {
	Recent(ctx context.Context, limit int) ([]models.EmailLog, error)
}

type AdminAuthenticator interface {
	Login(email, password string) (string, *models.Admin, error)
	Verify(token string) (*models.Admin, error)
}
