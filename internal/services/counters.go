package services

import (
	"context"
	"fmt"

	"pressroom/internal/apperr"
	"pressroom/internal/metrics"
	"pressroom/internal/models"

	"gorm.io/gorm"
)

// Counter names one denormalized count column. live, when set, restricts
// the parent rows a delta may touch (likes only land on published articles).
type Counter struct {
	name   string
	model  func() any
	column string
	live   func(*gorm.DB) *gorm.DB
}

func newContent() any { return &models.Content{} }
func newComment() any { return &models.Comment{} }
func newUser() any    { return &models.User{} }

func publishedOnly(db *gorm.DB) *gorm.DB {
	return db.Where("state = ?", models.StatePublished)
}

var (
	ArticleLikes    = Counter{name: "article_likes", model: newContent, column: "like_count", live: publishedOnly}
	ArticleComments = Counter{name: "article_comments", model: newContent, column: "comment_count", live: publishedOnly}
	CommentLikes    = Counter{name: "comment_likes", model: newComment, column: "like_count"}
	UserArticles    = Counter{name: "user_articles", model: newUser, column: "article_count"}
	UserComments    = Counter{name: "user_comments", model: newUser, column: "comment_count"}
	UserFollowers   = Counter{name: "user_followers", model: newUser, column: "follower_count"}
	UserFollowing   = Counter{name: "user_following", model: newUser, column: "following_count"}
)

// ApplyDelta adds delta to the counter of row id inside tx. It is a relative
// update, never a read-modify-write. A missing or non-live parent is a
// NotFound error so the surrounding transaction rolls back.
func ApplyDelta(tx *gorm.DB, c Counter, id uint, delta int) error {
	if delta == 0 {
		return nil
	}
	q := tx.Model(c.model()).Where("id = ?", id)
	if c.live != nil {
		q = q.Scopes(c.live)
	}
	res := q.UpdateColumn(c.column, gorm.Expr(c.column+" + ?", delta))
	if res.Error != nil {
		return apperr.FromStore(res.Error, c.name)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("%s target %d not found", c.name, id)
	}
	return nil
}

// Counters recomputes stored counts from the child rows.
type Counters struct {
	db *gorm.DB
}

func NewCounters(db *gorm.DB) *Counters {
	return &Counters{db: db}
}

// overwrite sets column to actual if it differs and reports whether it did.
func overwrite(tx *gorm.DB, c Counter, id uint, stored int, actual int64) (bool, error) {
	if int64(stored) == actual {
		return false, nil
	}
	err := tx.Model(c.model()).Where("id = ?", id).UpdateColumn(c.column, actual).Error
	if err != nil {
		return false, apperr.FromStore(err, c.name)
	}
	metrics.CounterDrift.WithLabelValues(c.name).Inc()
	return true, nil
}

// lockArticleCounters locks a published article and its comments, so a
// delta committing between the recount and the overwrite waits for it.
func lockArticleCounters(tx *gorm.DB, id uint) (*models.Content, error) {
	c, err := lockContent(tx, id, models.StatePublished)
	if err != nil {
		return nil, err
	}
	var ids []uint
	if err := forUpdate(tx).Model(&models.Comment{}).Where("content_id = ?", id).Pluck("id", &ids).Error; err != nil {
		return nil, apperr.FromStore(err, "comments")
	}
	return c, nil
}

// ReconcileArticle recounts likes and comments of a published article and
// the likes of each of its comments. It returns the number of corrected
// fields. Non-published content is left untouched: deleted snapshots keep
// their frozen counters.
func (s *Counters) ReconcileArticle(ctx context.Context, id uint) (int, error) {
	fixed := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := lockArticleCounters(tx, id)
		if err != nil {
			return err
		}

		var likes, comments int64
		if err := tx.Model(&models.ArticleLike{}).Where("content_id = ? AND active = ?", id, true).Count(&likes).Error; err != nil {
			return apperr.FromStore(err, "article likes")
		}
		if err := tx.Model(&models.Comment{}).Where("content_id = ?", id).Count(&comments).Error; err != nil {
			return apperr.FromStore(err, "article comments")
		}
		for _, step := range []struct {
			c      Counter
			stored int
			actual int64
		}{
			{ArticleLikes, c.LikeCount, likes},
			{ArticleComments, c.CommentCount, comments},
		} {
			changed, err := overwrite(tx, step.c, id, step.stored, step.actual)
			if err != nil {
				return err
			}
			if changed {
				fixed++
			}
		}

		type row struct {
			ID        uint
			LikeCount int
			Actual    int64
		}
		var rows []row
		err = tx.Model(&models.Comment{}).
			Select("comments.id, comments.like_count, (SELECT COUNT(*) FROM comment_likes WHERE comment_likes.comment_id = comments.id AND comment_likes.active = ?) AS actual", true).
			Where("comments.content_id = ?", id).
			Scan(&rows).Error
		if err != nil {
			return apperr.FromStore(err, "comment likes")
		}
		for _, r := range rows {
			changed, err := overwrite(tx, CommentLikes, r.ID, r.LikeCount, r.Actual)
			if err != nil {
				return err
			}
			if changed {
				fixed++
			}
		}
		return nil
	})
	return fixed, err
}

// ReconcileUser recounts a user's published articles, comments, followers
// and followings.
func (s *Counters) ReconcileUser(ctx context.Context, id uint) (int, error) {
	fixed := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := forUpdate(tx).First(&u, id).Error; err != nil {
			return apperr.FromStore(err, "user")
		}

		counts := make([]int64, 4)
		queries := []*gorm.DB{
			tx.Model(&models.Content{}).Where("user_id = ? AND state = ?", id, models.StatePublished),
			tx.Model(&models.Comment{}).Where("user_id = ?", id),
			tx.Model(&models.Follow{}).Where("followee_id = ?", id),
			tx.Model(&models.Follow{}).Where("follower_id = ?", id),
		}
		for i, q := range queries {
			if err := q.Count(&counts[i]).Error; err != nil {
				return apperr.FromStore(err, "user counters")
			}
		}

		for i, step := range []struct {
			c      Counter
			stored int
		}{
			{UserArticles, u.ArticleCount},
			{UserComments, u.CommentCount},
			{UserFollowers, u.FollowerCount},
			{UserFollowing, u.FollowingCount},
		} {
			changed, err := overwrite(tx, step.c, id, step.stored, counts[i])
			if err != nil {
				return err
			}
			if changed {
				fixed++
			}
		}
		return nil
	})
	return fixed, err
}

// ReconcileAll reconciles every published article and every user. If
// corrected is not nil it is called for each article that had drift.
func (s *Counters) ReconcileAll(ctx context.Context, corrected func(articleID uint)) (int, error) {
	total := 0

	var articleIDs []uint
	if err := s.db.WithContext(ctx).Model(&models.Content{}).
		Where("state = ?", models.StatePublished).
		Order("id").
		Pluck("id", &articleIDs).Error; err != nil {
		return 0, apperr.FromStore(err, "articles")
	}
	for _, id := range articleIDs {
		n, err := s.ReconcileArticle(ctx, id)
		// An article deleted since the pluck is not drift.
		if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
			return total, fmt.Errorf("reconcile article %d: %w", id, err)
		}
		if n > 0 && corrected != nil {
			corrected(id)
		}
		total += n
	}

	var userIDs []uint
	if err := s.db.WithContext(ctx).Model(&models.User{}).Order("id").Pluck("id", &userIDs).Error; err != nil {
		return total, apperr.FromStore(err, "users")
	}
	for _, id := range userIDs {
		n, err := s.ReconcileUser(ctx, id)
		if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
			return total, fmt.Errorf("reconcile user %d: %w", id, err)
		}
		total += n
	}
	return total, nil
}
