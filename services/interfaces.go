package services

import (
	"context"

	"blazeoffice/models"
	"blazeoffice/repository"
)

type SignupStore interface {
	Create(ctx context.Context, s *models.Signup) (bool, error)
	GetByEmail(ctx context.Context, email string) (*models.Signup, error)
	GetByCode(ctx context.Context, code string) (*models.Signup, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	IncrementReferrals(ctx context.Context, code string) error
	Count(ctx context.Context) (int, error)
	Position(ctx context.Context, id int64) (int, error)
	List(ctx context.Context, offset, limit int, search string) ([]models.Signup, int, error)
	SetPaused(ctx context.Context, id int64, paused bool) error
	Active(ctx context.Context) ([]models.Signup, error)
	Emails(ctx context.Context) ([]string, error)
	Referrers(ctx context.Context, limit int) ([]models.Signup, error)
}

type CommitmentStore interface {
	Create(ctx context.Context, c *models.Commitment) error
	List(ctx context.Context) ([]models.Commitment, error)
	SetConverted(ctx context.Context, id int64, converted bool) error
	Pending(ctx context.Context) ([]models.Commitment, error)
	ForReminder(ctx context.Context, emails []string) ([]models.Commitment, error)
	ForApology(ctx context.Context) ([]models.Commitment, error)
	MarkReminderSent(ctx context.Context, id int64) error
	MarkApologySent(ctx context.Context, id int64) error
	MissingCountry(ctx context.Context) ([]models.Commitment, error)
	SetCountry(ctx context.Context, id int64, code string) error
	BuyerCount(ctx context.Context) (int, error)
}

type PricingStore interface {
	List(ctx context.Context) ([]models.PricingTier, error)
	Activate(ctx context.Context, id int64) error
}

type ContactStore interface {
	Create(ctx context.Context, m *models.ContactMessage) error
	List(ctx context.Context, status string) ([]models.ContactMessage, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error
}

type CampaignStore interface {
	List(ctx context.Context, audience string) ([]models.EmailCampaign, error)
	Active(ctx context.Context, audience string) ([]models.EmailCampaign, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type EmailLogStore interface {
	Record(ctx context.Context, l *models.EmailLog) error
	SentPairs(ctx context.Context) ([]repository.SentPair, error)
	Recent(ctx context.Context, limit int) ([]models.EmailLog, error)
	StatusCounts(ctx context.Context) (map[string]int, error)
}

type RewardStore interface {
	List(ctx context.Context) ([]models.RewardTier, error)
}

// Notifier posts short operational notices (new commitments, messages).
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// EventPublisher emits domain events for downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}
