package domain

import (
	"time"

	"github.com/boutiqueapp/boutique/pkg/common"
	"gorm.io/gorm"
)

const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleUser      = "user"
)

// AppRoles lists the roles accepted in user_roles.
var AppRoles = []string{RoleAdmin, RoleModerator, RoleUser}

// IsAppRole reports whether role is one of AppRoles.
func IsAppRole(role string) bool {
	for _, r := range AppRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Account is the authentication identity of a user
type Account struct {
	ID        int64     `json:"id,string"`
	Email     string    `gorm:"size:255;uniqueIndex" json:"email"`
	Password  string    `json:"-"`
	Status    string    `gorm:"size:32" json:"status"`
	LastLogin time.Time `json:"last_login"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Account) TableName() string {
	return "auth_account"
}

func (a *Account) BeforeCreate(*gorm.DB) error {
	if a.ID == 0 {
		a.ID = common.UUIDint64()
	}
	return nil
}

// Profile public user profile, shares its id with Account
type Profile struct {
	ID        int64      `json:"id,string"`
	FullName  *string    `json:"full_name"`
	Username  *string    `gorm:"size:100" json:"username"`
	Role      *string    `gorm:"size:32" json:"role"` // legacy single role, kept next to user_roles
	Roles     []UserRole `gorm:"foreignKey:UserID" json:"roles,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// UserRole grants an app role to a user
type UserRole struct {
	ID        int64     `json:"id,string"`
	UserID    int64     `gorm:"uniqueIndex:idx_user_role" json:"user_id,string"`
	Role      string    `gorm:"size:32;uniqueIndex:idx_user_role" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

func (r *UserRole) BeforeCreate(*gorm.DB) error {
	if r.ID == 0 {
		r.ID = common.UUIDint64()
	}
	return nil
}
