package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/KGR33N-dev/Portfolio-Backend/internal/models"
)

// RankService promotes users through the cosmetic rank ladder as their
// activity counters grow. Ranks never grant permissions.
type RankService struct {
	db *gorm.DB
}

// NewRankService constructs a RankService.
func NewRankService(db *gorm.DB) (*RankService, error) {
	if db == nil {
		return nil, errors.New("rank service: db is required")
	}
	return &RankService{db: db}, nil
}

// CheckAndUpgrade assigns the highest active rank whose requirements the
// user meets. Ranks only move up; a drop in counters never demotes.
func (s *RankService) CheckAndUpgrade(ctx context.Context, userID string) (*models.Rank, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Rank").Take(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("rank service: user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("rank service: query user: %w", err)
	}

	var ranks []models.Rank
	err = s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("level desc").
		Find(&ranks).Error
	if err != nil {
		return nil, fmt.Errorf("rank service: load ranks: %w", err)
	}

	currentLevel := 0
	if user.Rank != nil {
		currentLevel = user.Rank.Level
	}

	for i := range ranks {
		rank := &ranks[i]
		if !rank.MeetsRequirements(user.TotalComments, user.TotalLikesReceived) {
			continue
		}
		if rank.Level <= currentLevel {
			return user.Rank, nil
		}
		// Update through a fresh model. Updating &user directly would let
		// gorm write the preloaded association's old rank_id back.
		err := s.db.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", userID).
			Update("rank_id", rank.ID).Error
		if err != nil {
			return nil, fmt.Errorf("rank service: upgrade rank: %w", err)
		}
		return rank, nil
	}

	return user.Rank, nil
}

// RecordActivity bumps the user's counters and runs a rank check.
func (s *RankService) RecordActivity(ctx context.Context, userID string, comments, likes int) (*models.Rank, error) {
	if comments < 0 || likes < 0 {
		return nil, errors.New("rank service: counters only move up")
	}

	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"total_comments":       gorm.Expr("total_comments + ?", comments),
			"total_likes_received": gorm.Expr("total_likes_received + ?", likes),
		}).Error
	if err != nil {
		return nil, fmt.Errorf("rank service: record activity: %w", err)
	}

	return s.CheckAndUpgrade(ctx, userID)
}
