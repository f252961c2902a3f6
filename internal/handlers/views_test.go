package handlers

import (
	"testing"
	"time"

	"pressroom/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveView(id uint, likes int) ArticleView {
	return ArticleView{Content: models.Content{ID: id, State: models.StatePublished, LikeCount: likes}}
}

func TestArticleCacheFill(t *testing.T) {
	c, err := NewArticleCache(8, time.Minute)
	require.NoError(t, err)

	v := liveView(1, 3)
	v.LikedByMe = true
	c.put(v, c.generation(1))

	got, ok := c.get(1)
	require.True(t, ok)
	assert.Equal(t, 3, got.LikeCount)
	assert.False(t, got.LikedByMe)

	c.Invalidate(1)
	_, ok = c.get(1)
	assert.False(t, ok)
}

func TestArticleCacheDropsFillAfterInvalidate(t *testing.T) {
	c, err := NewArticleCache(8, time.Minute)
	require.NoError(t, err)

	// A like lands between loading the view and storing it.
	gen := c.generation(1)
	stale := liveView(1, 0)
	c.Invalidate(1)
	c.put(stale, gen)

	_, ok := c.get(1)
	assert.False(t, ok)

	c.put(liveView(1, 1), c.generation(1))
	got, ok := c.get(1)
	require.True(t, ok)
	assert.Equal(t, 1, got.LikeCount)
}

func TestArticleCacheInvalidateIsPerStripe(t *testing.T) {
	c, err := NewArticleCache(8, time.Minute)
	require.NoError(t, err)

	gen := c.generation(2)
	c.Invalidate(3)
	c.put(liveView(2, 5), gen)

	_, ok := c.get(2)
	assert.True(t, ok)
}
