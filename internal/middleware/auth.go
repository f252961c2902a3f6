package middleware

import (
	"context"

	"pressroom/internal/apperr"
	"pressroom/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	CurrentUserKey = "user"
	SessionUserKey = "user_id"
)

// UserLoader resolves the session's user id.
type UserLoader interface {
	Get(ctx context.Context, id uint) (*models.User, error)
}

// LoadUser retrieves the user from the session and sets it on the context.
// A session pointing at a missing user is cleared.
func LoadUser(users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, ok := session.Get(SessionUserKey).(uint)
		if ok {
			user, err := users.Get(c.Request.Context(), id)
			switch {
			case err == nil:
				c.Set(CurrentUserKey, user)
			case apperr.KindOf(err) == apperr.KindNotFound:
				session.Delete(SessionUserKey)
				session.Save()
			default:
				AbortWithError(c, err)
				return
			}
		}
		c.Next()
	}
}

// CurrentUser returns the user loaded by LoadUser.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(CurrentUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok
}

// Identity returns the caller's identity, the zero Identity if anonymous.
func Identity(c *gin.Context) models.Identity {
	if u, ok := CurrentUser(c); ok {
		return u.Identity()
	}
	return models.Identity{}
}

// AuthRequired ensures a user is logged in.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			AbortWithError(c, apperr.Unauthenticated("login required"))
			return
		}
		c.Next()
	}
}

// RoleRequired admits only users holding one of roles.
func RoleRequired(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			AbortWithError(c, apperr.Unauthenticated("login required"))
			return
		}
		if !u.Identity().HasRole(roles...) {
			AbortWithError(c, apperr.Forbidden("requires role %v", roles))
			return
		}
		c.Next()
	}
}
