package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type DashboardStats struct {
	TotalSignups        int     `json:"total_signups" db:"total_signups"`
	SignupsToday        int     `json:"signups_today" db:"signups_today"`
	SignupsThisWeek     int     `json:"signups_this_week" db:"signups_this_week"`
	PausedSignups       int     `json:"paused_signups" db:"paused_signups"`
	TotalReferrals      int     `json:"total_referrals" db:"total_referrals"`
	TotalCommitments    int     `json:"total_commitments" db:"total_commitments"`
	UniqueCommitters    int     `json:"unique_committers" db:"unique_committers"`
	CommittedUSD        float64 `json:"committed_usd" db:"committed_usd"`
	AvgCommitmentUSD    float64 `json:"avg_commitment_usd" db:"avg_commitment_usd"`
	ConvertedCount      int     `json:"converted_count" db:"converted_count"`
	ConversionRate      float64 `json:"conversion_rate" db:"-"`
	NewMessages         int     `json:"new_messages" db:"new_messages"`
	TotalMessages       int     `json:"total_messages" db:"total_messages"`
	DripSent            int     `json:"drip_sent" db:"drip_sent"`
	DripFailed          int     `json:"drip_failed" db:"drip_failed"`
	CommitmentEmailSent int     `json:"commitment_email_sent" db:"commitment_email_sent"`
	CommitmentEmailFail int     `json:"commitment_email_failed" db:"commitment_email_failed"`
}

type StatsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Overview aggregates the dashboard counters in one round trip.
func (r *StatsRepository) Overview(ctx context.Context) (*DashboardStats, error) {
	var s DashboardStats
	err := r.db.GetContext(ctx, &s, `
		SELECT
			(SELECT COUNT(*) FROM waitlist) AS total_signups,
			(SELECT COUNT(*) FROM waitlist WHERE created_at >= date_trunc('day', NOW())) AS signups_today,
			(SELECT COUNT(*) FROM waitlist WHERE created_at >= NOW() - INTERVAL '7 days') AS signups_this_week,
			(SELECT COUNT(*) FROM waitlist WHERE paused) AS paused_signups,
			(SELECT COALESCE(SUM(referral_count), 0) FROM waitlist) AS total_referrals,
			(SELECT COUNT(*) FROM commitments) AS total_commitments,
			(SELECT COUNT(DISTINCT email) FROM commitments) AS unique_committers,
			(SELECT COALESCE(SUM(intended_amount_usd), 0) FROM commitments) AS committed_usd,
			(SELECT COALESCE(AVG(intended_amount_usd), 0) FROM commitments) AS avg_commitment_usd,
			(SELECT COUNT(*) FROM commitments WHERE converted) AS converted_count,
			(SELECT COUNT(*) FROM contact_messages WHERE status = 'new') AS new_messages,
			(SELECT COUNT(*) FROM contact_messages) AS total_messages,
			(SELECT COUNT(*) FROM email_logs WHERE status = 'sent') AS drip_sent,
			(SELECT COUNT(*) FROM email_logs WHERE status = 'failed') AS drip_failed,
			(SELECT COUNT(*) FROM commitment_email_logs WHERE status = 'sent') AS commitment_email_sent,
			(SELECT COUNT(*) FROM commitment_email_logs WHERE status = 'failed') AS commitment_email_failed
	`)
	if err != nil {
		return nil, err
	}

	if s.TotalCommitments > 0 {
		s.ConversionRate = float64(s.ConvertedCount) / float64(s.TotalCommitments) * 100
	}
	return &s, nil
}
