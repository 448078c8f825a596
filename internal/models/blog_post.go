package models

import (
	"time"

	"gorm.io/datatypes"
)

// BlogPost is a published article. Reading is open to any authenticated
// identity with blog:read; writing requires blog:write.
type BlogPost struct {
	BaseModel

	Slug    string `gorm:"uniqueIndex;not null" json:"slug"`
	Title   string `gorm:"not null" json:"title"`
	Excerpt string `json:"excerpt"`
	Content string `gorm:"type:text" json:"content"`

	AuthorID string `gorm:"type:uuid;index;not null" json:"author_id"`
	Author   *User  `json:"author,omitempty"`

	Tags datatypes.JSONSlice[string] `json:"tags"`

	IsPublished bool       `gorm:"default:false;index" json:"is_published"`
	PublishedAt *time.Time `json:"published_at"`
}
