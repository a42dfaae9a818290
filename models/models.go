package models

import (
	"time"
)

type Signup struct {
	ID            int64     `db:"id" json:"id"`
	Email         string    `db:"email" json:"email"`
	ReferralCode  string    `db:"referral_code" json:"referral_code"`
	ReferredBy    *string   `db:"referred_by" json:"referred_by,omitempty"`
	ReferralCount int       `db:"referral_count" json:"referral_count"`
	Source        string    `db:"source" json:"source"`
	Paused        bool      `db:"paused" json:"paused"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

const (
	MessageNew      = "new"
	MessageRead     = "read"
	MessageReplied  = "replied"
	MessageResolved = "resolved"
)

type ContactMessage struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Subject   string    `db:"subject" json:"subject"`
	Message   string    `db:"message" json:"message"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func IsValidMessageStatus(s string) bool {
	switch s {
	case MessageNew, MessageRead, MessageReplied, MessageResolved:
		return true
	}
	return false
}

// Commitment is a non-binding purchase intent.
type Commitment struct {
	ID                int64     `db:"id" json:"id"`
	Email             string    `db:"email" json:"email"`
	IntendedAmountUSD float64   `db:"intended_amount_usd" json:"intended_amount_usd"`
	EstimatedTokens   float64   `db:"estimated_tokens" json:"estimated_tokens"`
	Tier              int       `db:"tier" json:"tier"`
	Converted         bool      `db:"converted" json:"converted"`
	CountryCode       *string   `db:"country_code" json:"country_code,omitempty"`
	IPAddress         *string   `db:"ip_address" json:"-"`
	ReminderSent      bool      `db:"reminder_sent" json:"reminder_sent"`
	ApologySent       bool      `db:"apology_sent" json:"apology_sent"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

type PricingTier struct {
	ID              int64   `db:"id" json:"id"`
	TierNumber      int     `db:"tier_number" json:"tier_number"`
	Name            string  `db:"name" json:"name"`
	MinBuyers       int     `db:"min_buyers" json:"min_buyers"`
	MaxBuyers       int     `db:"max_buyers" json:"max_buyers"`
	PricePerToken   float64 `db:"price_per_token" json:"price_per_token"`
	BonusPercentage float64 `db:"bonus_percentage" json:"bonus_percentage"`
	IsActive        bool    `db:"is_active" json:"is_active"`
}

const (
	AudienceWaitlist   = "waitlist"
	AudienceCommitment = "commitment"
)

// EmailCampaign is one step of a drip sequence.
type EmailCampaign struct {
	ID          int64  `db:"id" json:"id"`
	Audience    string `db:"audience" json:"audience"`
	Sequence    int    `db:"sequence" json:"sequence"`
	DayOffset   int    `db:"day_offset" json:"day_offset"`
	HourOffset  int    `db:"hour_offset" json:"hour_offset"`
	TemplateKey string `db:"template_key" json:"template_key"`
	IsActive    bool   `db:"is_active" json:"is_active"`
}

// Offset is the elapsed time after which the step becomes due.
func (c EmailCampaign) Offset() time.Duration {
	return time.Duration(c.DayOffset)*24*time.Hour + time.Duration(c.HourOffset)*time.Hour
}

const (
	SendSent   = "sent"
	SendFailed = "failed"
)

type EmailLog struct {
	ID          int64     `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	TemplateKey string    `db:"template_key" json:"template_key"`
	Status      string    `db:"status" json:"status"`
	Error       *string   `db:"error" json:"error,omitempty"`
	SentAt      time.Time `db:"sent_at" json:"sent_at"`
}

type RewardTier struct {
	ID          int64  `db:"id" json:"id"`
	MinRank     int    `db:"min_rank" json:"min_rank"`
	MaxRank     int    `db:"max_rank" json:"max_rank"`
	Badge       string `db:"badge" json:"badge"`
	Color       string `db:"color" json:"color"`
	BonusTokens int    `db:"bonus_tokens" json:"bonus_tokens"`
}

func (r RewardTier) Contains(rank int) bool {
	return rank >= r.MinRank && rank <= r.MaxRank
}

type LeaderboardEntry struct {
	Rank          int         `json:"rank"`
	SignupID      int64       `json:"-"`
	Email         string      `json:"email"`
	ReferralCode  string      `json:"referral_code"`
	ReferralCount int         `json:"referral_count"`
	JoinedAt      time.Time   `json:"joined_at"`
	Reward        *RewardTier `json:"reward,omitempty"`
}
