package models

import (
	"time"
)

// ArticleLike and CommentLike allow one row per (user, target). Unliking
// deletes the row, so Active is always true for stored rows.
type ArticleLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_article_like_pair" json:"user_id"`
	ContentID uint      `gorm:"not null;uniqueIndex:idx_article_like_pair;index" json:"article_id"`
	Active    bool      `gorm:"default:true;not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func (ArticleLike) TableName() string {
	return "article_likes"
}

type CommentLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_comment_like_pair" json:"user_id"`
	CommentID uint      `gorm:"not null;uniqueIndex:idx_comment_like_pair;index" json:"comment_id"`
	Active    bool      `gorm:"default:true;not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func (CommentLike) TableName() string {
	return "comment_likes"
}

type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;uniqueIndex:idx_follow_pair" json:"follower_id"`
	Follower   User      `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE;" json:"follower"`
	FolloweeID uint      `gorm:"not null;uniqueIndex:idx_follow_pair;index" json:"followee_id"`
	Followee   User      `gorm:"foreignKey:FolloweeID;constraint:OnDelete:CASCADE;" json:"followee"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Follow) TableName() string {
	return "follows"
}
