package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"blazeoffice/models"
)

const campaignColumns = `id, audience, sequence, day_offset, hour_offset, template_key, is_active`

type CampaignRepository struct {
	db *sqlx.DB
}

func NewCampaignRepository(db *sqlx.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// List returns every step, optionally for one audience.
func (r *CampaignRepository) List(ctx context.Context, audience string) ([]models.EmailCampaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM email_campaigns`
	args := []interface{}{}
	if audience != "" {
		query += ` WHERE audience = $1`
		args = append(args, audience)
	}
	query += ` ORDER BY audience, sequence`

	out := []models.EmailCampaign{}
	err := r.db.SelectContext(ctx, &out, query, args...)
	return out, err
}

func (r *CampaignRepository) Active(ctx context.Context, audience string) ([]models.EmailCampaign, error) {
	out := []models.EmailCampaign{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+campaignColumns+` FROM email_campaigns
		WHERE audience = $1 AND is_active = TRUE ORDER BY sequence`, audience)
	return out, err
}

func (r *CampaignRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return expectOne(r.db.ExecContext(ctx, `UPDATE email_campaigns SET is_active = $1 WHERE id = $2`, active, id))
}
