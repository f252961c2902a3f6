package handlers

import (
	"pressroom/internal/middleware"
	"pressroom/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users    *services.Users
	follows  *services.Follows
	comments *services.Comments
}

func NewUserHandler(users *services.Users, follows *services.Follows, comments *services.Comments) *UserHandler {
	return &UserHandler{users: users, follows: follows, comments: comments}
}

func (h *UserHandler) Profile(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	ctx := c.Request.Context()
	u, err := h.users.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	following := false
	if me := middleware.Identity(c); me.UserID != 0 && me.UserID != id {
		if following, err = h.follows.IsFollowing(ctx, me.UserID, id); err != nil {
			respondError(c, err)
			return
		}
	}
	ok(c, gin.H{"user": u, "followed_by_me": following})
}

func (h *UserHandler) Comments(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	page, err := h.comments.ListByUser(c.Request.Context(), id, pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, services.MapPage(page, commentView))
}

func (h *UserHandler) Followers(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	page, err := h.follows.Followers(c.Request.Context(), id, pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, page)
}

func (h *UserHandler) Following(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	page, err := h.follows.Following(c.Request.Context(), id, pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, page)
}

func (h *UserHandler) Follow(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	state, err := h.follows.Toggle(c.Request.Context(), id, middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"state": state})
}
