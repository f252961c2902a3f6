package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pressroom/internal/apperr"
	"pressroom/internal/models"

	"gorm.io/gorm"
)

type Comments struct {
	db  *gorm.DB
	log *slog.Logger
	now func() time.Time
}

func NewComments(db *gorm.DB, log *slog.Logger) *Comments {
	return &Comments{db: db, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func liveArticleIDs(tx *gorm.DB) *gorm.DB {
	return tx.Model(&models.Content{}).Select("id").Where("state = ?", models.StatePublished)
}

// lockLiveComment loads a comment whose article is published.
func lockLiveComment(tx *gorm.DB, id uint) (*models.Comment, error) {
	var c models.Comment
	err := forUpdate(tx).Where("id = ? AND content_id IN (?)", id, liveArticleIDs(tx)).First(&c).Error
	if err != nil {
		return nil, apperr.FromStore(err, fmt.Sprintf("comment %d", id))
	}
	return &c, nil
}

func (s *Comments) Add(ctx context.Context, articleID uint, body string, author models.Identity) (*models.Comment, error) {
	if err := RequireActive(author); err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperr.Validation("comment can't be empty")
	}

	c := &models.Comment{ContentID: articleID, UserID: author.UserID, Body: body, PostedAt: s.now()}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var article models.Content
		err := tx.Select("id", "user_id", "title").
			Where("id = ? AND state = ?", articleID, models.StatePublished).
			First(&article).Error
		if err != nil {
			return apperr.FromStore(err, fmt.Sprintf("article %d", articleID))
		}
		if err := tx.Create(c).Error; err != nil {
			return apperr.FromStore(err, "comment")
		}
		if err := ApplyDelta(tx, ArticleComments, articleID, 1); err != nil {
			return err
		}
		if err := ApplyDelta(tx, UserComments, author.UserID, 1); err != nil {
			return err
		}
		if article.UserID == author.UserID {
			return nil
		}
		return notify(tx, models.Notification{
			UserID:    article.UserID,
			ActorID:   &author.UserID,
			ContentID: &article.ID,
			Type:      models.NotificationCommentArticle,
			Reason:    fmt.Sprintf("New comment on %q.", article.Title),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("comment added", "comment_id", c.ID, "article_id", articleID, "author_id", author.UserID)
	return s.get(ctx, c.ID)
}

func (s *Comments) Edit(ctx context.Context, id uint, body string, editor models.Identity) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := lockLiveComment(tx, id)
		if err != nil {
			return err
		}
		if err := RequireOwner(c.UserID, editor); err != nil {
			return err
		}
		if body == "" {
			return apperr.Validation("comment can't be empty")
		}
		return apperr.FromStore(tx.Model(c).Updates(map[string]any{
			"body":      body,
			"edited":    true,
			"edited_at": s.now(),
		}).Error, "comment")
	})
	if err != nil {
		return nil, err
	}
	return s.get(ctx, id)
}

// Remove deletes a comment with its likes and decrements the article's and
// the author's comment counters. It returns the id of the comment's article.
func (s *Comments) Remove(ctx context.Context, id uint, actor models.Identity) (uint, error) {
	var articleID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := lockLiveComment(tx, id)
		if err != nil {
			return err
		}
		if err := RequireOwnerOrRole(c.UserID, actor, models.PrivilegedRoles...); err != nil {
			return err
		}
		articleID = c.ContentID

		if err := tx.Where("comment_id = ?", id).Delete(&models.CommentLike{}).Error; err != nil {
			return apperr.FromStore(err, "comment likes")
		}
		res := tx.Delete(&models.Comment{}, id)
		if res.Error != nil {
			return apperr.FromStore(res.Error, "comment")
		}
		if res.RowsAffected != 1 {
			return apperr.NotFound("comment %d not found", id)
		}
		if err := ApplyDelta(tx, ArticleComments, c.ContentID, -1); err != nil {
			return err
		}
		return ApplyDelta(tx, UserComments, c.UserID, -1)
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("comment removed", "comment_id", id, "article_id", articleID, "actor_id", actor.UserID)
	return articleID, nil
}

func (s *Comments) Pin(ctx context.Context, id uint) error {
	return s.setPinned(ctx, id, true)
}

func (s *Comments) Unpin(ctx context.Context, id uint) error {
	return s.setPinned(ctx, id, false)
}

// ArticleOf returns the article a comment belongs to.
func (s *Comments) ArticleOf(ctx context.Context, id uint) (uint, error) {
	var c models.Comment
	if err := s.db.WithContext(ctx).Select("id", "content_id").First(&c, id).Error; err != nil {
		return 0, apperr.FromStore(err, fmt.Sprintf("comment %d", id))
	}
	return c.ContentID, nil
}

func (s *Comments) setPinned(ctx context.Context, id uint, pinned bool) error {
	db := s.db.WithContext(ctx)
	res := db.Model(&models.Comment{}).
		Where("id = ? AND content_id IN (?)", id, liveArticleIDs(db)).
		Update("pinned", pinned)
	if res.Error != nil {
		return apperr.FromStore(res.Error, "comment")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("comment %d not found", id)
	}
	return nil
}

func (s *Comments) get(ctx context.Context, id uint) (*models.Comment, error) {
	var c models.Comment
	if err := s.db.WithContext(ctx).Preload("User").First(&c, id).Error; err != nil {
		return nil, apperr.FromStore(err, fmt.Sprintf("comment %d", id))
	}
	return &c, nil
}

// ListForArticle lists the comments of a published article, pinned first.
func (s *Comments) ListForArticle(ctx context.Context, articleID uint, req PageRequest) (Page[models.Comment], error) {
	db := s.db.WithContext(ctx)
	var n int64
	if err := db.Model(&models.Content{}).Where("id = ? AND state = ?", articleID, models.StatePublished).Count(&n).Error; err != nil {
		return Page[models.Comment]{}, apperr.FromStore(err, "article")
	}
	if n == 0 {
		return Page[models.Comment]{}, apperr.NotFound("article %d not found", articleID)
	}
	return Paginate[models.Comment](db, req, commentSort, func(q *gorm.DB) *gorm.DB {
		return q.Where("content_id = ?", articleID)
	}, "User")
}

// ListByUser lists a user's comments on published articles.
func (s *Comments) ListByUser(ctx context.Context, userID uint, req PageRequest) (Page[models.Comment], error) {
	db := s.db.WithContext(ctx)
	return Paginate[models.Comment](db, req, commentSort.withoutLeading(), func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ? AND content_id IN (?)", userID, liveArticleIDs(db))
	}, "User")
}
