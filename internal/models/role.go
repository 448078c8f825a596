package models

import "gorm.io/datatypes"

// AdminLevel is the role level at which permission checks short-circuit to allow.
const AdminLevel = 100

// Role groups users into an authorization tier. Permissions holds the
// permission names granted to the role; roles at AdminLevel or above pass
// every check regardless of the list.
type Role struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Level       int    `gorm:"default:1;index" json:"level"`
	IsSystem    bool   `gorm:"default:false" json:"is_system"`

	Permissions datatypes.JSONSlice[string] `json:"permissions"`
}

// HasPermission reports whether the role carries the named permission,
// including the admin level bypass.
func (r *Role) HasPermission(name string) bool {
	if r == nil {
		return false
	}
	if r.Level >= AdminLevel {
		return true
	}
	for _, p := range r.Permissions {
		if p == name {
			return true
		}
	}
	return false
}
