package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"blazeoffice/models"
)

const signupColumns = `id, email, referral_code, referred_by, referral_count, source, paused, created_at`

type WaitlistRepository struct {
	db *sqlx.DB
}

func NewWaitlistRepository(db *sqlx.DB) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

// Create inserts the signup and fills ID and CreatedAt. It reports false
// when the email is already on the list.
func (r *WaitlistRepository) Create(ctx context.Context, s *models.Signup) (bool, error) {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO waitlist (email, referral_code, referred_by, source)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, created_at
	`, s.Email, s.ReferralCode, s.ReferredBy, s.Source).Scan(&s.ID, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if isUniqueViolation(err, "waitlist_referral_code_key") {
		return false, ErrDuplicateCode
	}
	if err != nil {
		return false, fmt.Errorf("insert signup: %w", err)
	}
	return true, nil
}

func (r *WaitlistRepository) GetByEmail(ctx context.Context, email string) (*models.Signup, error) {
	var s models.Signup
	err := r.db.GetContext(ctx, &s, `SELECT `+signupColumns+` FROM waitlist WHERE email = $1`, email)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *WaitlistRepository) GetByCode(ctx context.Context, code string) (*models.Signup, error) {
	var s models.Signup
	err := r.db.GetContext(ctx, &s, `SELECT `+signupColumns+` FROM waitlist WHERE referral_code = $1`, code)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *WaitlistRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM waitlist WHERE referral_code = $1)`, code)
	return exists, err
}

func (r *WaitlistRepository) IncrementReferrals(ctx context.Context, code string) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE waitlist SET referral_count = referral_count + 1 WHERE referral_code = $1`, code))
}

func (r *WaitlistRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM waitlist`)
	return n, err
}

// Position is the 1-based place of the signup in join order.
func (r *WaitlistRepository) Position(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM waitlist WHERE id <= $1`, id)
	return n, err
}

func (r *WaitlistRepository) List(ctx context.Context, offset, limit int, search string) ([]models.Signup, int, error) {
	where := ""
	args := []interface{}{}
	if search != "" {
		where = ` WHERE email ILIKE $1 OR referral_code ILIKE $1`
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM waitlist`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count signups: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM waitlist%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		signupColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	signups := []models.Signup{}
	if err := r.db.SelectContext(ctx, &signups, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list signups: %w", err)
	}
	return signups, total, nil
}

func (r *WaitlistRepository) SetPaused(ctx context.Context, id int64, paused bool) error {
	return expectOne(r.db.ExecContext(ctx, `UPDATE waitlist SET paused = $1 WHERE id = $2`, paused, id))
}

// Active returns every signup that still receives drip emails.
func (r *WaitlistRepository) Active(ctx context.Context) ([]models.Signup, error) {
	signups := []models.Signup{}
	err := r.db.SelectContext(ctx, &signups,
		`SELECT `+signupColumns+` FROM waitlist WHERE paused = FALSE ORDER BY created_at ASC`)
	return signups, err
}

// Emails returns every unpaused address, for broadcasts.
func (r *WaitlistRepository) Emails(ctx context.Context) ([]string, error) {
	emails := []string{}
	err := r.db.SelectContext(ctx, &emails, `SELECT email FROM waitlist WHERE paused = FALSE ORDER BY id`)
	return emails, err
}

// Referrers returns signups with at least one referral, best first. A
// non-positive limit returns all of them.
func (r *WaitlistRepository) Referrers(ctx context.Context, limit int) ([]models.Signup, error) {
	query := `SELECT ` + signupColumns + ` FROM waitlist WHERE referral_count > 0
		ORDER BY referral_count DESC, created_at ASC, id ASC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	signups := []models.Signup{}
	err := r.db.SelectContext(ctx, &signups, query, args...)
	return signups, err
}
