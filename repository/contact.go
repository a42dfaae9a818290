package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"blazeoffice/models"
)

type ContactRepository struct {
	db *sqlx.DB
}

func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) Create(ctx context.Context, m *models.ContactMessage) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO contact_messages (name, email, subject, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, status, created_at, updated_at
	`, m.Name, m.Email, m.Subject, m.Message).Scan(&m.ID, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert contact message: %w", err)
	}
	return nil
}

func (r *ContactRepository) List(ctx context.Context, status string) ([]models.ContactMessage, error) {
	query := `SELECT id, name, email, subject, message, status, created_at, updated_at FROM contact_messages`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	out := []models.ContactMessage{}
	err := r.db.SelectContext(ctx, &out, query, args...)
	return out, err
}

func (r *ContactRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE contact_messages SET status = $1, updated_at = NOW() WHERE id = $2`, status, id))
}

func (r *ContactRepository) Delete(ctx context.Context, id int64) error {
	return expectOne(r.db.ExecContext(ctx, `DELETE FROM contact_messages WHERE id = $1`, id))
}
