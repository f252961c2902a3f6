package handlers

import (
	"log/slog"
	"net/http"

	"pressroom/internal/middleware"
	"pressroom/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	users         *services.Users
	notifications *services.Notifications
	log           *slog.Logger
}

func NewAuthHandler(users *services.Users, notifications *services.Notifications, log *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, notifications: notifications, log: log}
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req signupRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.Register(c.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.startSession(c, u.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.log.Info("login failed", "err", err)
		respondError(c, err)
		return
	}
	if err := h.startSession(c, u.ID); err != nil {
		respondError(c, err)
		return
	}
	ok(c, u)
}

func (h *AuthHandler) startSession(c *gin.Context, id uint) error {
	session := sessions.Default(c)
	session.Set(middleware.SessionUserKey, id)
	return session.Save()
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me returns the current user with the unread notification count.
func (h *AuthHandler) Me(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	unread, err := h.notifications.UnreadCount(c.Request.Context(), u.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"user": u, "unread_count": unread})
}
