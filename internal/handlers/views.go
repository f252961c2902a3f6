package handlers

import (
	"fmt"
	"sync"
	"time"

	"pressroom/internal/models"
	"pressroom/internal/utils"
)

// ArticleView is an article as served to clients.
type ArticleView struct {
	models.Content
	HTML      string `json:"html,omitempty"`
	LikedByMe bool   `json:"liked_by_me"`
}

type CommentView struct {
	models.Comment
	HTML      string `json:"html"`
	LikedByMe bool   `json:"liked_by_me"`
}

func articleDetail(c models.Content) ArticleView {
	return ArticleView{Content: c, HTML: utils.RenderArticle(c.Body)}
}

func articleSummary(c models.Content) ArticleView {
	return ArticleView{Content: c}
}

func commentView(c models.Comment) CommentView {
	return CommentView{Comment: c, HTML: utils.RenderComment(c.Body)}
}

// cacheStripes is the number of invalidation generations tracked. Ids
// sharing a stripe only cost each other cache fills.
const cacheStripes = 256

// ArticleCache holds rendered detail views of published articles. A fill
// records the generation of the article's stripe before loading and is
// dropped if an invalidation happened in between.
type ArticleCache struct {
	views *utils.Cache[ArticleView]

	mu   sync.Mutex
	gens [cacheStripes]uint64
}

func NewArticleCache(size int, ttl time.Duration) (*ArticleCache, error) {
	v, err := utils.NewCache[ArticleView](size, ttl)
	if err != nil {
		return nil, err
	}
	return &ArticleCache{views: v}, nil
}

func articleKey(id uint) string {
	return fmt.Sprintf("article:%d", id)
}

func (a *ArticleCache) get(id uint) (ArticleView, bool) {
	return a.views.Get(articleKey(id))
}

// generation is read before loading a view that will be passed to put.
func (a *ArticleCache) generation(id uint) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gens[id%cacheStripes]
}

func (a *ArticleCache) put(v ArticleView, gen uint64) {
	v.LikedByMe = false
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gens[v.ID%cacheStripes] != gen {
		return
	}
	a.views.Set(articleKey(v.ID), v)
}

// Invalidate drops the cached view after any mutation of the article.
func (a *ArticleCache) Invalidate(id uint) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gens[id%cacheStripes]++
	a.views.Delete(articleKey(id))
}
