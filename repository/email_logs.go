package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"blazeoffice/models"
)

// EmailLogRepository writes one of the two send logs: the waitlist drip log
// or the commitment drip log.
type EmailLogRepository struct {
	db    *sqlx.DB
	table string
}

func NewEmailLogRepository(db *sqlx.DB, audience string) *EmailLogRepository {
	table := "email_logs"
	if audience == models.AudienceCommitment {
		table = "commitment_email_logs"
	}
	return &EmailLogRepository{db: db, table: table}
}

// Record stores a send attempt. A second successful send of the same
// template to the same address is dropped by the partial unique index.
func (r *EmailLogRepository) Record(ctx context.Context, l *models.EmailLog) error {
	query := fmt.Sprintf(`INSERT INTO %s (email, template_key, status, error)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING`, r.table)
	if _, err := r.db.ExecContext(ctx, query, l.Email, l.TemplateKey, l.Status, l.Error); err != nil {
		return fmt.Errorf("record email log: %w", err)
	}
	return nil
}

type SentPair struct {
	Email       string `db:"email"`
	TemplateKey string `db:"template_key"`
}

// SentPairs returns every (email, template) pair that was delivered.
func (r *EmailLogRepository) SentPairs(ctx context.Context) ([]SentPair, error) {
	pairs := []SentPair{}
	query := fmt.Sprintf(`SELECT DISTINCT email, template_key FROM %s WHERE status = 'sent'`, r.table)
	err := r.db.SelectContext(ctx, &pairs, query)
	return pairs, err
}

func (r *EmailLogRepository) Recent(ctx context.Context, limit int) ([]models.EmailLog, error) {
	logs := []models.EmailLog{}
	query := fmt.Sprintf(`SELECT id, email, template_key, status, error, sent_at FROM %s
		ORDER BY sent_at DESC LIMIT $1`, r.table)
	err := r.db.SelectContext(ctx, &logs, query, limit)
	return logs, err
}

// StatusCounts returns the number of log rows per status.
func (r *EmailLogRepository) StatusCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`SELECT status, COUNT(*) FROM %s GROUP BY status`, r.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{models.SendSent: 0, models.SendFailed: 0}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}
