package auth

import (
	"encoding/json"
	"time"
)

// User is the minimal record the session layer needs from the relational
// store: identity facts, the password hash, and the enabled flag.
type User struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Email         string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Name          string    `json:"name" gorm:"size:255"`
	Role          string    `json:"role" gorm:"size:64;not null;default:student"`
	InstitutionID uint      `json:"institution_id" gorm:"index"`
	Permissions   string    `json:"-" gorm:"size:2000"`
	PasswordHash  string    `json:"-" gorm:"size:255;not null"`
	Enabled       bool      `json:"enabled" gorm:"not null;default:true"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// PermissionList decodes the stored permission snapshot, falling back to the
// role's defaults when the user carries no explicit grants.
func (u *User) PermissionList() []string {
	if u.Permissions != "" {
		var perms []string
		if err := json.Unmarshal([]byte(u.Permissions), &perms); err == nil {
			return perms
		}
	}
	return defaultRolePermissions[u.Role]
}

var defaultRolePermissions = map[string][]string{
	"admin": {
		"users:read", "users:write",
		"teachers:read", "teachers:write",
		"grades:read", "grades:write",
		"sessions:admin",
	},
	"teacher": {
		"grades:read", "grades:write",
		"students:read",
	},
	"student": {
		"grades:read",
	},
}
