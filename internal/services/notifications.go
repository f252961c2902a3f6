package services

import (
	"context"

	"pressroom/internal/apperr"
	"pressroom/internal/models"

	"gorm.io/gorm"
)

// notify records n inside the caller's transaction.
func notify(tx *gorm.DB, n models.Notification) error {
	return apperr.FromStore(tx.Create(&n).Error, "notification")
}

type Notifications struct {
	db *gorm.DB
}

func NewNotifications(db *gorm.DB) *Notifications {
	return &Notifications{db: db}
}

func (s *Notifications) List(ctx context.Context, userID uint, unreadOnly bool, req PageRequest) (Page[models.Notification], error) {
	return Paginate[models.Notification](s.db.WithContext(ctx), req, notificationSort, func(db *gorm.DB) *gorm.DB {
		db = db.Where("user_id = ?", userID)
		if unreadOnly {
			db = db.Where("is_read = ?", false)
		}
		return db
	}, "Actor")
}

func (s *Notifications) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, apperr.FromStore(err, "notifications")
}

// MarkRead marks one of the user's notifications read. Notifications of
// other users read as NotFound.
func (s *Notifications) MarkRead(ctx context.Context, id, userID uint) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return apperr.FromStore(res.Error, "notification")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("notification %d not found", id)
	}
	return nil
}

func (s *Notifications) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, apperr.FromStore(res.Error, "notifications")
}

func (s *Notifications) Delete(ctx context.Context, id, userID uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if res.Error != nil {
		return apperr.FromStore(res.Error, "notification")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("notification %d not found", id)
	}
	return nil
}
