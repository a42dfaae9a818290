package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"blazeoffice/models"
)

type RewardRepository struct {
	db *sqlx.DB
}

func NewRewardRepository(db *sqlx.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

func (r *RewardRepository) List(ctx context.Context) ([]models.RewardTier, error) {
	out := []models.RewardTier{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, min_rank, max_rank, badge, color, bonus_tokens FROM leaderboard_rewards ORDER BY min_rank`)
	return out, err
}
