package models

import (
	"time"
)

// ContentState tags which lifecycle representation a Content row is in.
type ContentState string

const (
	StatePending   ContentState = "PENDING"
	StatePublished ContentState = "PUBLISHED"
	StateRejected  ContentState = "REJECTED"
	StateDeleted   ContentState = "DELETED"
)

// RemovalReason distinguishes an author deleting their own article from a
// moderator removing it.
type RemovalReason string

const (
	RemovalDeleted RemovalReason = "DELETED"
	RemovalRemoved RemovalReason = "REMOVED"
)

// Content is a submitted article in any lifecycle state. Decision fields
// are set by moderation (accept or reject), removal fields by deletion.
type Content struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	UserID       uint         `gorm:"not null;index" json:"user_id"`
	User         User         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Title        string       `gorm:"not null" json:"title"`
	Body         string       `gorm:"type:text;not null" json:"body"`
	State        ContentState `gorm:"size:16;not null;index;default:'PENDING'" json:"state"`
	PostedAt     time.Time    `gorm:"not null;index" json:"posted_at"`
	LikeCount    int          `gorm:"default:0;not null" json:"like_count"`
	CommentCount int          `gorm:"default:0;not null" json:"comment_count"`
	Edited       bool         `gorm:"default:false;not null" json:"edited"`
	EditedAt     *time.Time   `json:"edited_at,omitempty"`
	Pinned       bool         `gorm:"default:false;not null;index" json:"pinned"`

	DecidedByID *uint      `gorm:"index" json:"decided_by_id,omitempty"`
	DecidedBy   *User      `gorm:"foreignKey:DecidedByID;constraint:OnDelete:SET NULL;" json:"-"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`

	RemovedByID   *uint         `gorm:"index" json:"removed_by_id,omitempty"`
	RemovedBy     *User         `gorm:"foreignKey:RemovedByID;constraint:OnDelete:SET NULL;" json:"-"`
	RemovedAt     *time.Time    `json:"removed_at,omitempty"`
	RemovalReason RemovalReason `gorm:"size:16" json:"removal_reason,omitempty"`

	Hashtags  []Hashtag `gorm:"many2many:content_hashtags;" json:"hashtags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the table name stable regardless of struct naming.
func (Content) TableName() string {
	return "contents"
}

// Live reports whether the article is reachable through the public path.
func (c *Content) Live() bool {
	return c.State == StatePublished
}

// Editable reports whether the author may still change the text.
func (c *Content) Editable() bool {
	return c.State == StatePending || c.State == StatePublished
}

type Hashtag struct {
	ID   uint   `gorm:"primaryKey" json:"-"`
	Name string `gorm:"size:64;uniqueIndex;not null" json:"name"`
}
