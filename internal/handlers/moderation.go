package handlers

import (
	"pressroom/internal/middleware"
	"pressroom/internal/models"
	"pressroom/internal/services"

	"github.com/gin-gonic/gin"
)

type ModerationHandler struct {
	lifecycle *services.Lifecycle
	counters  *services.Counters
	cache     *ArticleCache
}

func NewModerationHandler(lifecycle *services.Lifecycle, counters *services.Counters, cache *ArticleCache) *ModerationHandler {
	return &ModerationHandler{lifecycle: lifecycle, counters: counters, cache: cache}
}

// Queue lists articles in one lifecycle state.
func (h *ModerationHandler) Queue(state models.ContentState) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := h.lifecycle.ListByState(c.Request.Context(), state, pageRequest(c))
		if err != nil {
			respondError(c, err)
			return
		}
		ok(c, services.MapPage(page, articleSummary))
	}
}

func (h *ModerationHandler) Approve(c *gin.Context) {
	h.decide(c, services.Approve)
}

func (h *ModerationHandler) Reject(c *gin.Context) {
	h.decide(c, services.Reject)
}

func (h *ModerationHandler) decide(c *gin.Context, d services.Decision) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	a, err := h.lifecycle.Moderate(c.Request.Context(), id, d, middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	h.cache.Invalidate(id)
	ok(c, articleSummary(*a))
}

func (h *ModerationHandler) DecidedBy(c *gin.Context) {
	id, valid := pathID(c, "moderatorId")
	if !valid {
		return
	}
	page, err := h.lifecycle.ListDecidedBy(c.Request.Context(), id, pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, services.MapPage(page, articleSummary))
}

func (h *ModerationHandler) ReconcileArticle(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	n, err := h.counters.ReconcileArticle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.cache.Invalidate(id)
	ok(c, gin.H{"id": id, "fixed": n})
}
