package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pressroom/internal/apperr"
	"pressroom/internal/models"

	"gorm.io/gorm"
)

type FollowState string

const (
	Following  FollowState = "FOLLOWING"
	Unfollowed FollowState = "UNFOLLOWED"
)

type Follows struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewFollows(db *gorm.DB, log *slog.Logger) *Follows {
	return &Follows{db: db, log: log}
}

// Toggle follows followee or stops following it, keeping both users'
// counters in step.
func (s *Follows) Toggle(ctx context.Context, followeeID uint, actor models.Identity) (FollowState, error) {
	if err := RequireActive(actor); err != nil {
		return "", err
	}
	if followeeID == actor.UserID {
		return "", apperr.Validation("cannot follow yourself")
	}

	state, err := s.toggleOnce(ctx, followeeID, actor.UserID)
	if errors.Is(err, apperr.ErrConflict) {
		state, err = s.toggleOnce(ctx, followeeID, actor.UserID)
	}
	return state, err
}

func (s *Follows) toggleOnce(ctx context.Context, followeeID, followerID uint) (FollowState, error) {
	var state FollowState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var followee models.User
		if err := tx.Select("id").First(&followee, followeeID).Error; err != nil {
			return apperr.FromStore(err, fmt.Sprintf("user %d", followeeID))
		}

		res := tx.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).Delete(&models.Follow{})
		if res.Error != nil {
			return apperr.FromStore(res.Error, "follow")
		}
		delta := -1
		state = Unfollowed
		if res.RowsAffected == 0 {
			if err := tx.Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID}).Error; err != nil {
				return apperr.FromStore(err, "follow")
			}
			delta = 1
			state = Following
		}

		if err := ApplyDelta(tx, UserFollowers, followeeID, delta); err != nil {
			return err
		}
		if err := ApplyDelta(tx, UserFollowing, followerID, delta); err != nil {
			return err
		}
		if state == Following {
			return notify(tx, models.Notification{
				UserID:  followeeID,
				ActorID: &followerID,
				Type:    models.NotificationNewFollower,
				Reason:  "You have a new follower.",
			})
		}
		return nil
	})
	if err == nil {
		s.log.Info("follow toggled", "follower_id", followerID, "followee_id", followeeID, "state", state)
	}
	return state, err
}

func (s *Follows) Followers(ctx context.Context, userID uint, req PageRequest) (Page[models.Follow], error) {
	return Paginate[models.Follow](s.db.WithContext(ctx), req, followSort, func(db *gorm.DB) *gorm.DB {
		return db.Where("followee_id = ?", userID)
	}, "Follower")
}

func (s *Follows) Following(ctx context.Context, userID uint, req PageRequest) (Page[models.Follow], error) {
	return Paginate[models.Follow](s.db.WithContext(ctx), req, followSort, func(db *gorm.DB) *gorm.DB {
		return db.Where("follower_id = ?", userID)
	}, "Followee")
}

func (s *Follows) IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&n).Error
	return n > 0, apperr.FromStore(err, "follow")
}
