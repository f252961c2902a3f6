package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"pressroom/internal/apperr"
	"pressroom/internal/metrics"
	"pressroom/internal/models"

	"gorm.io/gorm"
)

type TargetKind string

const (
	TargetArticle TargetKind = "ARTICLE"
	TargetComment TargetKind = "COMMENT"
)

func ParseTargetKind(s string) (TargetKind, error) {
	switch k := TargetKind(strings.ToUpper(s)); k {
	case TargetArticle, TargetComment:
		return k, nil
	}
	return "", apperr.Validation("unknown like target %q", s)
}

type LikeState string

const (
	Liked   LikeState = "LIKED"
	Unliked LikeState = "UNLIKED"
)

// likeTable describes where the relations of one target kind live.
type likeTable struct {
	model   func() any
	column  string
	counter Counter
	newRow  func(userID, targetID uint) any
}

var likeTables = map[TargetKind]likeTable{
	TargetArticle: {
		model:   func() any { return &models.ArticleLike{} },
		column:  "content_id",
		counter: ArticleLikes,
		newRow: func(userID, targetID uint) any {
			return &models.ArticleLike{UserID: userID, ContentID: targetID, Active: true}
		},
	},
	TargetComment: {
		model:   func() any { return &models.CommentLike{} },
		column:  "comment_id",
		counter: CommentLikes,
		newRow: func(userID, targetID uint) any {
			return &models.CommentLike{UserID: userID, CommentID: targetID, Active: true}
		},
	},
}

type Likes struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewLikes(db *gorm.DB, log *slog.Logger) *Likes {
	return &Likes{db: db, log: log}
}

// Toggle likes the target if user has no relation to it and unlikes it
// otherwise. Two concurrent toggles by the same user can race on the unique
// pair; the loser is retried once against the fresh state.
func (s *Likes) Toggle(ctx context.Context, kind TargetKind, targetID uint, user models.Identity) (LikeState, error) {
	t, ok := likeTables[kind]
	if !ok {
		return "", apperr.Validation("unknown like target %q", kind)
	}
	if err := RequireActive(user); err != nil {
		return "", err
	}

	state, err := s.toggleOnce(ctx, kind, t, targetID, user.UserID)
	if errors.Is(err, apperr.ErrConflict) {
		metrics.ToggleRetries.WithLabelValues(string(kind)).Inc()
		s.log.Debug("like toggle conflict, retrying", "kind", kind, "target_id", targetID, "user_id", user.UserID)
		state, err = s.toggleOnce(ctx, kind, t, targetID, user.UserID)
	}
	if err != nil {
		return "", err
	}

	metrics.LikeToggles.WithLabelValues(string(kind), string(state)).Inc()
	return state, nil
}

func (s *Likes) toggleOnce(ctx context.Context, kind TargetKind, t likeTable, targetID, userID uint) (LikeState, error) {
	var state LikeState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireLiveTarget(tx, kind, targetID); err != nil {
			return err
		}

		var existing struct{ ID uint }
		err := tx.Model(t.model()).Select("id").
			Where(t.column+" = ? AND user_id = ?", targetID, userID).
			Take(&existing).Error
		switch {
		case err == nil:
			res := tx.Where("id = ?", existing.ID).Delete(t.model())
			if res.Error != nil {
				return apperr.FromStore(res.Error, "like")
			}
			if res.RowsAffected != 1 {
				return apperr.Conflict("like removed concurrently")
			}
			state = Unliked
			return ApplyDelta(tx, t.counter, targetID, -1)
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(t.newRow(userID, targetID)).Error; err != nil {
				return apperr.FromStore(err, "like")
			}
			state = Liked
			return ApplyDelta(tx, t.counter, targetID, 1)
		default:
			return apperr.FromStore(err, "like")
		}
	})
	return state, err
}

// requireLiveTarget resolves a published article, or a comment whose
// article is published.
func requireLiveTarget(tx *gorm.DB, kind TargetKind, id uint) error {
	var n int64
	var err error
	switch kind {
	case TargetArticle:
		err = tx.Model(&models.Content{}).Where("id = ? AND state = ?", id, models.StatePublished).Count(&n).Error
	case TargetComment:
		err = tx.Model(&models.Comment{}).
			Joins("JOIN contents ON contents.id = comments.content_id").
			Where("comments.id = ? AND contents.state = ?", id, models.StatePublished).
			Count(&n).Error
	}
	if err != nil {
		return apperr.FromStore(err, "like target")
	}
	if n == 0 {
		return apperr.NotFound("%s %d not found", strings.ToLower(string(kind)), id)
	}
	return nil
}

// LikedSet returns which of ids the user currently likes.
func (s *Likes) LikedSet(ctx context.Context, kind TargetKind, userID uint, ids []uint) (map[uint]bool, error) {
	t, ok := likeTables[kind]
	if !ok {
		return nil, apperr.Validation("unknown like target %q", kind)
	}
	set := make(map[uint]bool, len(ids))
	if userID == 0 || len(ids) == 0 {
		return set, nil
	}

	var liked []uint
	err := s.db.WithContext(ctx).Model(t.model()).
		Where("user_id = ? AND "+t.column+" IN ?", userID, ids).
		Pluck(t.column, &liked).Error
	if err != nil {
		return nil, apperr.FromStore(err, "likes")
	}
	for _, id := range liked {
		set[id] = true
	}
	return set, nil
}
