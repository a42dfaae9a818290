package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"blazeoffice/models"
)

type PricingRepository struct {
	db *sqlx.DB
}

func NewPricingRepository(db *sqlx.DB) *PricingRepository {
	return &PricingRepository{db: db}
}

func (r *PricingRepository) List(ctx context.Context) ([]models.PricingTier, error) {
	tiers := []models.PricingTier{}
	err := r.db.SelectContext(ctx, &tiers, `
		SELECT id, tier_number, name, min_buyers, max_buyers, price_per_token, bonus_percentage, is_active
		FROM pricing_tiers ORDER BY tier_number ASC`)
	return tiers, err
}

// Activate makes the given tier the only active one.
func (r *PricingRepository) Activate(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE pricing_tiers SET is_active = FALSE WHERE id <> $1`, id); err != nil {
		return fmt.Errorf("deactivate tiers: %w", err)
	}
	if err := expectOne(tx.ExecContext(ctx, `UPDATE pricing_tiers SET is_active = TRUE WHERE id = $1`, id)); err != nil {
		return err
	}
	return tx.Commit()
}
