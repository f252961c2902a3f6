package models

import (
	"time"
)

type Comment struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	ContentID uint       `gorm:"not null;index" json:"article_id"`
	Article   Content    `gorm:"foreignKey:ContentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	User      User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Body      string     `gorm:"type:text;not null" json:"body"`
	PostedAt  time.Time  `gorm:"not null" json:"posted_at"`
	LikeCount int        `gorm:"default:0;not null" json:"like_count"`
	Edited    bool       `gorm:"default:false;not null" json:"edited"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	Pinned    bool       `gorm:"default:false;not null" json:"pinned"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
