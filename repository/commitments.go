package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"blazeoffice/models"
)

const commitmentColumns = `id, email, intended_amount_usd, estimated_tokens, tier, converted,
	country_code, ip_address, reminder_sent, apology_sent, created_at`

type CommitmentRepository struct {
	db *sqlx.DB
}

func NewCommitmentRepository(db *sqlx.DB) *CommitmentRepository {
	return &CommitmentRepository{db: db}
}

func (r *CommitmentRepository) Create(ctx context.Context, c *models.Commitment) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO commitments (email, intended_amount_usd, estimated_tokens, tier, country_code, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, c.Email, c.IntendedAmountUSD, c.EstimatedTokens, c.Tier, c.CountryCode, c.IPAddress).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert commitment: %w", err)
	}
	return nil
}

func (r *CommitmentRepository) List(ctx context.Context) ([]models.Commitment, error) {
	out := []models.Commitment{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+commitmentColumns+` FROM commitments ORDER BY created_at DESC`)
	return out, err
}

func (r *CommitmentRepository) SetConverted(ctx context.Context, id int64, converted bool) error {
	return expectOne(r.db.ExecContext(ctx, `UPDATE commitments SET converted = $1 WHERE id = $2`, converted, id))
}

// Pending returns unconverted commitments, oldest first.
func (r *CommitmentRepository) Pending(ctx context.Context) ([]models.Commitment, error) {
	out := []models.Commitment{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+commitmentColumns+` FROM commitments WHERE converted = FALSE ORDER BY created_at ASC`)
	return out, err
}

// ForReminder returns unconverted commitments that never got a reminder,
// optionally restricted to the given addresses.
func (r *CommitmentRepository) ForReminder(ctx context.Context, emails []string) ([]models.Commitment, error) {
	query := `SELECT ` + commitmentColumns + ` FROM commitments WHERE converted = FALSE AND reminder_sent = FALSE`
	args := []interface{}{}
	if len(emails) > 0 {
		query += ` AND email = ANY($1)`
		args = append(args, pq.Array(emails))
	}
	query += ` ORDER BY created_at ASC`

	out := []models.Commitment{}
	err := r.db.SelectContext(ctx, &out, query, args...)
	return out, err
}

func (r *CommitmentRepository) ForApology(ctx context.Context) ([]models.Commitment, error) {
	out := []models.Commitment{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+commitmentColumns+` FROM commitments WHERE apology_sent = FALSE ORDER BY created_at ASC`)
	return out, err
}

func (r *CommitmentRepository) MarkReminderSent(ctx context.Context, id int64) error {
	return expectOne(r.db.ExecContext(ctx, `UPDATE commitments SET reminder_sent = TRUE WHERE id = $1`, id))
}

func (r *CommitmentRepository) MarkApologySent(ctx context.Context, id int64) error {
	return expectOne(r.db.ExecContext(ctx, `UPDATE commitments SET apology_sent = TRUE WHERE id = $1`, id))
}

func (r *CommitmentRepository) MissingCountry(ctx context.Context) ([]models.Commitment, error) {
	out := []models.Commitment{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+commitmentColumns+` FROM commitments
		WHERE country_code IS NULL AND ip_address IS NOT NULL AND ip_address <> ''
		ORDER BY id`)
	return out, err
}

func (r *CommitmentRepository) SetCountry(ctx context.Context, id int64, code string) error {
	return expectOne(r.db.ExecContext(ctx, `UPDATE commitments SET country_code = $1 WHERE id = $2`, code, id))
}

// BuyerCount is the number of distinct committed emails.
func (r *CommitmentRepository) BuyerCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(DISTINCT email) FROM commitments`)
	return n, err
}
