package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/KGR33N-dev/Portfolio-Backend/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Role{},
		&models.Rank{},
		&models.User{},
		&models.APIKey{},
		&models.VerificationCode{},
		&models.PasswordResetToken{},
		&models.BlogPost{},
		&models.CacheEntry{},
	)
}

// SeedData populates the default roles and ranks. Existing rows are left
// untouched so operators can tune permissions without fighting restarts.
func SeedData(db *gorm.DB) error {
	roles := []models.Role{
		{
			Name:        "user",
			DisplayName: "User",
			Description: "Regular blog user",
			Color:       "#6c757d",
			Level:       1,
			IsSystem:    true,
			Permissions: datatypes.NewJSONSlice([]string{
				"post.read", "comment.create", "comment.like", "profile.edit",
			}),
		},
		{
			Name:        "moderator",
			DisplayName: "Moderator",
			Description: "Blog moderator with moderation permissions",
			Color:       "#fd7e14",
			Level:       50,
			IsSystem:    true,
			Permissions: datatypes.NewJSONSlice([]string{
				"post.read", "comment.create", "comment.like", "comment.moderate",
				"post.moderate", "user.moderate", "profile.edit",
			}),
		},
		{
			Name:        "admin",
			DisplayName: "Administrator",
			Description: "Blog administrator with full permissions",
			Color:       "#dc3545",
			Level:       100,
			IsSystem:    true,
			Permissions: datatypes.NewJSONSlice([]string{
				"post.read", "comment.create", "comment.like", "comment.moderate", "comment.delete",
				"post.create", "post.edit", "post.delete", "post.publish",
				"user.manage", "role.manage", "apikey.manage", "system.admin",
			}),
		},
	}

	for _, role := range roles {
		if err := db.Where(models.Role{Name: role.Name}).Attrs(role).FirstOrCreate(&models.Role{}).Error; err != nil {
			return err
		}
	}

	ranks := []models.Rank{
		{
			Name:         "newbie",
			DisplayName:  "New User",
			Description:  "Newly registered user",
			Icon:         "👶",
			Color:        "#17a2b8",
			Level:        1,
			IsActive:     true,
			Requirements: datatypes.NewJSONType(models.RankRequirements{Comments: 0, Likes: 0}),
		},
		{
			Name:         "regular",
			DisplayName:  "Regular User",
			Description:  "Active community member",
			Icon:         "👤",
			Color:        "#28a745",
			Level:        2,
			IsActive:     true,
			Requirements: datatypes.NewJSONType(models.RankRequirements{Comments: 5, Likes: 10}),
		},
		{
			Name:         "trusted",
			DisplayName:  "Trusted User",
			Description:  "Experienced and trusted member",
			Icon:         "🤝",
			Color:        "#007bff",
			Level:        3,
			IsActive:     true,
			Requirements: datatypes.NewJSONType(models.RankRequirements{Comments: 25, Likes: 50}),
		},
		{
			Name:         "star",
			DisplayName:  "Community Star",
			Description:  "Outstanding community member",
			Icon:         "⭐",
			Color:        "#ffc107",
			Level:        4,
			IsActive:     true,
			Requirements: datatypes.NewJSONType(models.RankRequirements{Comments: 100, Likes: 200}),
		},
		{
			Name:         "legend",
			DisplayName:  "Legend",
			Description:  "Legendary community member",
			Icon:         "🏆",
			Color:        "#6f42c1",
			Level:        5,
			IsActive:     true,
			Requirements: datatypes.NewJSONType(models.RankRequirements{Comments: 500, Likes: 1000}),
		},
		{
			Name:         "vip",
			DisplayName:  "VIP",
			Description:  "Highest rank, reserved for VIP community members",
			Icon:         "👑",
			Color:        "#fd7e14",
			Level:        6,
			IsActive:     true,
			Requirements: datatypes.NewJSONType(models.RankRequirements{Comments: 1000, Likes: 2000}),
		},
	}

	for _, rank := range ranks {
		if err := db.Where(models.Rank{Name: rank.Name}).Attrs(rank).FirstOrCreate(&models.Rank{}).Error; err != nil {
			return err
		}
	}

	return nil
}
