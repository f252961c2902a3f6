package handlers

import (
	"pressroom/internal/middleware"
	"pressroom/internal/services"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	comments *services.Comments
	likes    *services.Likes
	cache    *ArticleCache
}

func NewCommentHandler(comments *services.Comments, likes *services.Likes, cache *ArticleCache) *CommentHandler {
	return &CommentHandler{comments: comments, likes: likes, cache: cache}
}

func (h *CommentHandler) Update(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req commentRequest
	if !bindJSON(c, &req) {
		return
	}
	cm, err := h.comments.Edit(c.Request.Context(), id, req.Body, middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, commentView(*cm))
}

func (h *CommentHandler) Delete(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	articleID, err := h.comments.Remove(c.Request.Context(), id, middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	h.cache.Invalidate(articleID)
	ok(c, gin.H{"id": id, "deleted": true})
}

func (h *CommentHandler) Like(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	state, err := h.likes.Toggle(c.Request.Context(), services.TargetComment, id, middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"state": state})
}

func (h *CommentHandler) Pin(c *gin.Context) {
	h.setPinned(c, true)
}

func (h *CommentHandler) Unpin(c *gin.Context) {
	h.setPinned(c, false)
}

func (h *CommentHandler) setPinned(c *gin.Context, pinned bool) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	ctx := c.Request.Context()
	var err error
	if pinned {
		err = h.comments.Pin(ctx, id)
	} else {
		err = h.comments.Unpin(ctx, id)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"id": id, "pinned": pinned})
}
