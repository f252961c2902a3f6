package handlers

import (
	"pressroom/internal/middleware"
	"pressroom/internal/models"
	"pressroom/internal/services"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	users *services.Users
}

func NewAdminHandler(users *services.Users) *AdminHandler {
	return &AdminHandler{users: users}
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *AdminHandler) SetRole(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req roleRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.SetRole(c.Request.Context(), id, models.Role(req.Role), middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, u)
}

func (h *AdminHandler) Block(c *gin.Context) {
	h.setBlocked(c, true)
}

func (h *AdminHandler) Unblock(c *gin.Context) {
	h.setBlocked(c, false)
}

func (h *AdminHandler) setBlocked(c *gin.Context, blocked bool) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	u, err := h.users.SetBlocked(c.Request.Context(), id, blocked, middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, u)
}
