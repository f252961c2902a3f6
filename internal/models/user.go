package models

import (
	"time"
)

type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// PrivilegedRoles may moderate and remove other users' content.
var PrivilegedRoles = []Role{RoleModerator, RoleAdmin}

func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleUser, RoleModerator, RoleAdmin:
		return r, true
	}
	return "", false
}

type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"not null" json:"username"`
	Email          string    `gorm:"uniqueIndex;not null" json:"-"`
	Password       string    `gorm:"not null" json:"-"` // bcrypt hash
	Role           Role      `gorm:"size:20;default:'USER';not null" json:"role"`
	Blocked        bool      `gorm:"default:false;not null" json:"blocked"`
	ArticleCount   int       `gorm:"default:0;not null" json:"article_count"`
	CommentCount   int       `gorm:"default:0;not null" json:"comment_count"`
	FollowerCount  int       `gorm:"default:0;not null" json:"follower_count"`
	FollowingCount int       `gorm:"default:0;not null" json:"following_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Identity is the resolved caller of a service operation. Services never
// look the current user up themselves; handlers pass it in.
type Identity struct {
	UserID  uint
	Role    Role
	Blocked bool
}

func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Role: u.Role, Blocked: u.Blocked}
}

func (id Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}

func (id Identity) Privileged() bool {
	return id.HasRole(PrivilegedRoles...)
}
