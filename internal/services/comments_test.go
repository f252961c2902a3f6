package services

import (
	"context"
	"testing"

	"pressroom/internal/apperr"
	"pressroom/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddComment(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	ctx := context.Background()
	a := f.publish(t, f.author, "T")

	c, err := f.comments.Add(ctx, a.ID, "  first! ", f.reader.Identity())
	require.NoError(t, err)
	assert.Equal(t, "first!", c.Body)
	assert.Equal(t, "reader", c.User.Username)

	assert.Equal(t, 1, f.content(t, a.ID).CommentCount)
	assert.Equal(t, 1, f.user(t, f.reader.ID).CommentCount)
	assert.EqualValues(t, 1, f.count(t, &models.Notification{}, "user_id = ? AND type = ?", f.author.ID, models.NotificationCommentArticle))

	// Commenting on your own article does not notify you.
	_, err = f.comments.Add(ctx, a.ID, "thanks", f.author.Identity())
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.count(t, &models.Notification{}, "user_id = ? AND type = ?", f.author.ID, models.NotificationCommentArticle))
}

func TestAddCommentErrors(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	ctx := context.Background()
	a := f.publish(t, f.author, "T")
	pending := f.submit(t, f.author, "P")

	_, err := f.comments.Add(ctx, a.ID, " ", f.reader.Identity())
	requireKind(t, err, apperr.KindValidation)
	_, err = f.comments.Add(ctx, pending.ID, "hi", f.reader.Identity())
	requireKind(t, err, apperr.KindNotFound)
	_, err = f.comments.Add(ctx, a.ID, "hi", models.Identity{})
	requireKind(t, err, apperr.KindAuthentication)

	assert.Equal(t, 0, f.content(t, a.ID).CommentCount)
	assert.Equal(t, 0, f.user(t, f.reader.ID).CommentCount)
}

func TestEditComment(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	ctx := context.Background()
	a := f.publish(t, f.author, "T")
	c, err := f.comments.Add(ctx, a.ID, "tpyo", f.reader.Identity())
	require.NoError(t, err)

	_, err = f.comments.Edit(ctx, c.ID, "typo", f.mod.Identity())
	requireKind(t, err, apperr.KindAuthorization)
	_, err = f.comments.Edit(ctx, c.ID, "", f.reader.Identity())
	requireKind(t, err, apperr.KindValidation)

	c, err = f.comments.Edit(ctx, c.ID, "typo", f.reader.Identity())
	require.NoError(t, err)
	assert.Equal(t, "typo", c.Body)
	assert.True(t, c.Edited)
	assert.NotNil(t, c.EditedAt)
}

func TestRemoveComment(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	ctx := context.Background()
	a := f.publish(t, f.author, "T")
	c, err := f.comments.Add(ctx, a.ID, "spam", f.reader.Identity())
	require.NoError(t, err)
	_, err = f.likes.Toggle(ctx, TargetComment, c.ID, f.author.Identity())
	require.NoError(t, err)

	_, err = f.comments.Remove(ctx, c.ID, f.author.Identity())
	requireKind(t, err, apperr.KindAuthorization)
	articleID, err := f.comments.Remove(ctx, c.ID, f.mod.Identity())
	require.NoError(t, err)
	assert.Equal(t, a.ID, articleID)

	assert.Zero(t, f.count(t, &models.Comment{}, "id = ?", c.ID))
	assert.Zero(t, f.count(t, &models.CommentLike{}, "comment_id = ?", c.ID))
	assert.Equal(t, 0, f.content(t, a.ID).CommentCount)
	assert.Equal(t, 0, f.user(t, f.reader.ID).CommentCount)

	_, err = f.comments.Remove(ctx, c.ID, f.mod.Identity())
	requireKind(t, err, apperr.KindNotFound)
}

func TestListCommentsPinnedFirst(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	ctx := context.Background()
	a := f.publish(t, f.author, "T")
	first, err := f.comments.Add(ctx, a.ID, "one", f.reader.Identity())
	require.NoError(t, err)
	_, err = f.comments.Add(ctx, a.ID, "two", f.reader.Identity())
	require.NoError(t, err)
	require.NoError(t, f.comments.Pin(ctx, first.ID))

	page, err := f.comments.ListForArticle(ctx, a.ID, PageRequest{Page: 1, Size: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, first.ID, page.Items[0].ID)

	require.NoError(t, f.comments.Unpin(ctx, first.ID))
	page, err = f.comments.ListForArticle(ctx, a.ID, PageRequest{Page: 1, Size: 10, Sort: "id"})
	require.NoError(t, err)
	assert.Equal(t, "two", page.Items[0].Body)

	byUser, err := f.comments.ListByUser(ctx, f.reader.ID, PageRequest{Page: 1, Size: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, byUser.TotalCount)
	assert.Equal(t, 2, byUser.TotalPages)

	requireKind(t, f.comments.Pin(ctx, 9999), apperr.KindNotFound)

	articleID, err := f.comments.ArticleOf(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, articleID)
}
