package services

import (
	"context"
	"fmt"
	"math"
	"testing"

	"pressroom/internal/apperr"
	"pressroom/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginateSecondPage(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	ctx := context.Background()
	for i := 1; i <= 25; i++ {
		f.publish(t, f.author, fmt.Sprintf("a%02d", i))
	}

	page, err := f.lifecycle.ListPublished(ctx, PageRequest{Page: 2, Size: 10, Sort: "id", Direction: "asc"})
	require.NoError(t, err)

	assert.EqualValues(t, 25, page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)
	require.Len(t, page.Items, 10)
	for i, it := range page.Items {
		assert.Equal(t, fmt.Sprintf("a%02d", i+11), it.Title)
	}

	last, err := f.lifecycle.ListPublished(ctx, PageRequest{Page: 3, Size: 10, Sort: "id", Direction: "ASC"})
	require.NoError(t, err)
	assert.Len(t, last.Items, 5)

	beyond, err := f.lifecycle.ListPublished(ctx, PageRequest{Page: 4, Size: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, 3, beyond.TotalPages)
}

func TestPaginateHugePageIsEmpty(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		f.publish(t, f.author, fmt.Sprintf("a%d", i))
	}

	for _, req := range []PageRequest{
		{Page: 1e17, Size: 100},
		{Page: math.MaxInt, Size: 10},
		{Page: 2, Size: math.MaxInt},
	} {
		page, err := f.lifecycle.ListPublished(ctx, req)
		require.NoError(t, err)
		assert.Empty(t, page.Items, "%+v", req)
		assert.NotNil(t, page.Items)
		assert.EqualValues(t, 3, page.TotalCount)
		assert.Equal(t, req.Page, page.CurrentPage)
	}

	page, err := f.lifecycle.ListPublished(ctx, PageRequest{Page: 1, Size: math.MaxInt})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, 1, page.TotalPages)
}

func TestPaginateDefaultsNewestFirst(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	for i := 1; i <= 3; i++ {
		f.publish(t, f.author, fmt.Sprintf("a%d", i))
	}
	page, err := f.lifecycle.ListPublished(context.Background(), PageRequest{Page: 1, Size: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "a3", page.Items[0].Title)
}

func TestPaginateValidation(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	ctx := context.Background()

	for _, req := range []PageRequest{
		{Page: 0, Size: 10},
		{Page: 1, Size: 0},
		{Page: -1, Size: 10},
		{Page: 1, Size: 10, Direction: "sideways"},
		{Page: 1, Size: 10, Sort: "password"},
		{Page: 1, Size: 10, Sort: "id; DROP TABLE users"},
	} {
		_, err := f.lifecycle.ListPublished(ctx, req)
		requireKind(t, err, apperr.KindValidation)
	}
}

func TestPaginateEmpty(t *testing.T) {
	f := newFixture(t, LifecycleOptions{})
	page, err := f.lifecycle.ListByState(context.Background(), models.StateDeleted, PageRequest{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount)
	assert.Zero(t, page.TotalPages)
	assert.NotNil(t, page.Items)
}

func TestTotalPages(t *testing.T) {
	for _, tc := range []struct {
		total int64
		size  int
		want  int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
		{5, 0, 0},
	} {
		assert.Equal(t, tc.want, TotalPages(tc.total, tc.size), "%d/%d", tc.total, tc.size)
	}
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"asc": Asc, "ASC": Asc, "Desc": Desc, " desc ": Desc} {
		d, err := ParseDirection(in)
		require.NoError(t, err)
		assert.Equal(t, want, d)
	}
	_, err := ParseDirection("up")
	requireKind(t, err, apperr.KindValidation)
}

func TestMapPage(t *testing.T) {
	p := Page[int]{Items: []int{1, 2}, TotalCount: 12, TotalPages: 6, CurrentPage: 1, PageSize: 2}
	out := MapPage(p, func(i int) string { return fmt.Sprint(i * 10) })
	assert.Equal(t, []string{"10", "20"}, out.Items)
	assert.EqualValues(t, 12, out.TotalCount)
	assert.Equal(t, 6, out.TotalPages)
}
