package models

import "gorm.io/datatypes"

// RankRequirements lists the activity thresholds needed to earn a rank.
type RankRequirements struct {
	Comments int `json:"comments"`
	Likes    int `json:"likes"`
}

// Rank is a cosmetic community level. Unlike roles, ranks grant no
// permissions; they are upgraded automatically as user activity grows.
type Rank struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	Level       int    `gorm:"default:1;index" json:"level"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	Requirements datatypes.JSONType[RankRequirements] `json:"requirements"`
}

// MeetsRequirements reports whether the given activity counters satisfy
// this rank's thresholds.
func (r *Rank) MeetsRequirements(comments, likes int) bool {
	req := r.Requirements.Data()
	return comments >= req.Comments && likes >= req.Likes
}
