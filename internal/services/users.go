package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"pressroom/internal/apperr"
	"pressroom/internal/models"
	"pressroom/internal/utils"

	"gorm.io/gorm"
)

const minPasswordLen = 8

type Users struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewUsers(db *gorm.DB, log *slog.Logger) *Users {
	return &Users{db: db, log: log}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

func (s *Users) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("invalid email address")
	}
	if len(in.Password) < minPasswordLen {
		return nil, apperr.Validation("password must be at least %d characters", minPasswordLen)
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{Username: username, Email: email, Password: hash, Role: models.RoleUser}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		err = apperr.FromStore(err, "user")
		if apperr.KindOf(err) == apperr.KindConflict {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, err
	}

	s.log.Info("user registered", "user_id", u.ID)
	return u, nil
}

// Authenticate checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Users) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if err != nil {
		err = apperr.FromStore(err, "user")
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Unauthenticated("invalid email or password")
		}
		return nil, err
	}
	if !utils.CheckPasswordHash(password, u.Password) {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	if u.Blocked {
		return nil, apperr.Forbidden("account is blocked")
	}
	return &u, nil
}

func (s *Users) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, apperr.FromStore(err, fmt.Sprintf("user %d", id))
	}
	return &u, nil
}

func (s *Users) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error; err != nil {
		return nil, apperr.FromStore(err, "user "+email)
	}
	return &u, nil
}

func (s *Users) SetRole(ctx context.Context, id uint, role models.Role, admin models.Identity) (*models.User, error) {
	if err := RequireRole(admin, models.RoleAdmin); err != nil {
		return nil, err
	}
	if _, ok := models.ParseRole(string(role)); !ok {
		return nil, apperr.Validation("unknown role %q", role)
	}
	if err := s.update(ctx, id, "role", role); err != nil {
		return nil, err
	}
	s.log.Info("user role changed", "user_id", id, "role", role, "admin_id", admin.UserID)
	return s.Get(ctx, id)
}

func (s *Users) SetBlocked(ctx context.Context, id uint, blocked bool, admin models.Identity) (*models.User, error) {
	if err := RequireRole(admin, models.RoleAdmin); err != nil {
		return nil, err
	}
	if id == admin.UserID {
		return nil, apperr.Validation("cannot block yourself")
	}
	if err := s.update(ctx, id, "blocked", blocked); err != nil {
		return nil, err
	}
	s.log.Info("user block changed", "user_id", id, "blocked", blocked, "admin_id", admin.UserID)
	return s.Get(ctx, id)
}

func (s *Users) update(ctx context.Context, id uint, column string, value any) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return apperr.FromStore(res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user %d not found", id)
	}
	return nil
}
