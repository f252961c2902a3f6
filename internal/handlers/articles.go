package handlers

import (
	"log/slog"
	"net/http"

	"pressroom/internal/apperr"
	"pressroom/internal/middleware"
	"pressroom/internal/models"
	"pressroom/internal/services"

	"github.com/gin-gonic/gin"
)

type ArticleHandler struct {
	lifecycle  *services.Lifecycle
	likes      *services.Likes
	comments   *services.Comments
	reconciler *services.Reconciler
	cache      *ArticleCache
	log        *slog.Logger
}

func NewArticleHandler(lifecycle *services.Lifecycle, likes *services.Likes, comments *services.Comments, reconciler *services.Reconciler, cache *ArticleCache, log *slog.Logger) *ArticleHandler {
	return &ArticleHandler{lifecycle: lifecycle, likes: likes, comments: comments, reconciler: reconciler, cache: cache, log: log}
}

type submitRequest struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Hashtags []string `json:"hashtags"`
}

type editRequest struct {
	Title *string `json:"title"`
	Body  *string `json:"body"`
}

// summaries converts a page of articles and flags the ones the viewer likes.
func (h *ArticleHandler) summaries(c *gin.Context, page services.Page[models.Content]) (services.Page[ArticleView], error) {
	out := services.MapPage(page, articleSummary)
	viewer := middleware.Identity(c)
	if viewer.UserID == 0 || len(out.Items) == 0 {
		return out, nil
	}
	ids := make([]uint, len(out.Items))
	for i, it := range out.Items {
		ids[i] = it.ID
	}
	liked, err := h.likes.LikedSet(c.Request.Context(), services.TargetArticle, viewer.UserID, ids)
	if err != nil {
		return out, err
	}
	for i := range out.Items {
		out.Items[i].LikedByMe = liked[out.Items[i].ID]
	}
	return out, nil
}

func (h *ArticleHandler) respondPage(c *gin.Context, page services.Page[models.Content], err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	views, err := h.summaries(c, page)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, views)
}

func (h *ArticleHandler) List(c *gin.Context) {
	page, err := h.lifecycle.ListPublished(c.Request.Context(), pageRequest(c))
	h.respondPage(c, page, err)
}

func (h *ArticleHandler) ListByTag(c *gin.Context) {
	page, err := h.lifecycle.ListByHashtag(c.Request.Context(), c.Param("name"), pageRequest(c))
	h.respondPage(c, page, err)
}

func (h *ArticleHandler) ListByAuthor(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	page, err := h.lifecycle.ListByAuthor(c.Request.Context(), id, pageRequest(c))
	h.respondPage(c, page, err)
}

// MySubmissions lists the caller's pending and rejected articles.
func (h *ArticleHandler) MySubmissions(c *gin.Context) {
	me := middleware.Identity(c)
	page, err := h.lifecycle.ListByAuthor(c.Request.Context(), me.UserID, pageRequest(c), models.StatePending, models.StateRejected)
	h.respondPage(c, page, err)
}

func (h *ArticleHandler) Detail(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	ctx := c.Request.Context()
	viewer := middleware.Identity(c)

	view, cached := h.cache.get(id)
	if !cached {
		gen := h.cache.generation(id)
		a, err := h.lifecycle.GetForViewer(ctx, id, viewer)
		if err != nil {
			respondError(c, err)
			return
		}
		view = articleDetail(*a)
		if a.Live() {
			h.cache.put(view, gen)
		}
	}

	if viewer.UserID != 0 && view.Live() {
		liked, err := h.likes.LikedSet(ctx, services.TargetArticle, viewer.UserID, []uint{id})
		if err != nil {
			respondError(c, err)
			return
		}
		view.LikedByMe = liked[id]
	}
	ok(c, view)
}

func (h *ArticleHandler) Create(c *gin.Context) {
	var req submitRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.lifecycle.Submit(c.Request.Context(), middleware.Identity(c), services.SubmitInput{
		Title:    req.Title,
		Body:     req.Body,
		Hashtags: req.Hashtags,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, articleDetail(*a))
}

func (h *ArticleHandler) Update(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req editRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.lifecycle.Edit(c.Request.Context(), id, services.EditInput{Title: req.Title, Body: req.Body}, middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	h.cache.Invalidate(id)
	ok(c, articleDetail(*a))
}

func (h *ArticleHandler) Delete(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	a, err := h.lifecycle.Delete(c.Request.Context(), id, middleware.Identity(c))
	h.cache.Invalidate(id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, articleSummary(*a))
}

func (h *ArticleHandler) Like(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	ctx := c.Request.Context()
	state, err := h.likes.Toggle(ctx, services.TargetArticle, id, middleware.Identity(c))
	h.cache.Invalidate(id)
	if err != nil {
		// A toggle that lost twice may have left the counter suspect.
		if k := apperr.KindOf(err); k == apperr.KindConflict || k == apperr.KindTransient {
			h.reconciler.Schedule(id)
		}
		respondError(c, err)
		return
	}

	a, err := h.lifecycle.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"state": state, "like_count": a.LikeCount})
}

func (h *ArticleHandler) ListComments(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	ctx := c.Request.Context()
	page, err := h.comments.ListForArticle(ctx, id, pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	out := services.MapPage(page, commentView)

	if viewer := middleware.Identity(c); viewer.UserID != 0 && len(out.Items) > 0 {
		ids := make([]uint, len(out.Items))
		for i, it := range out.Items {
			ids[i] = it.ID
		}
		liked, err := h.likes.LikedSet(ctx, services.TargetComment, viewer.UserID, ids)
		if err != nil {
			respondError(c, err)
			return
		}
		for i := range out.Items {
			out.Items[i].LikedByMe = liked[out.Items[i].ID]
		}
	}
	ok(c, out)
}

type commentRequest struct {
	Body string `json:"body"`
}

func (h *ArticleHandler) AddComment(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req commentRequest
	if !bindJSON(c, &req) {
		return
	}
	cm, err := h.comments.Add(c.Request.Context(), id, req.Body, middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	h.cache.Invalidate(id)
	c.JSON(http.StatusCreated, commentView(*cm))
}

func (h *ArticleHandler) Pin(c *gin.Context) {
	h.setPinned(c, true)
}

func (h *ArticleHandler) Unpin(c *gin.Context) {
	h.setPinned(c, false)
}

func (h *ArticleHandler) setPinned(c *gin.Context, pinned bool) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var err error
	if pinned {
		err = h.lifecycle.Pin(c.Request.Context(), id)
	} else {
		err = h.lifecycle.Unpin(c.Request.Context(), id)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	h.cache.Invalidate(id)
	ok(c, gin.H{"id": id, "pinned": pinned})
}
