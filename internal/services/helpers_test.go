package services

import (
	"context"
	"testing"

	"pressroom/internal/apperr"
	"pressroom/internal/db/dbtest"
	"pressroom/internal/logging"
	"pressroom/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db            *gorm.DB
	lifecycle     *Lifecycle
	likes         *Likes
	comments      *Comments
	follows       *Follows
	users         *Users
	notifications *Notifications
	counters      *Counters

	author *models.User
	reader *models.User
	mod    *models.User
	admin  *models.User
}

func newFixture(t *testing.T, opts LifecycleOptions) *fixture {
	t.Helper()
	database := dbtest.Open(t)
	log := logging.Discard()
	return &fixture{
		db:            database,
		lifecycle:     NewLifecycle(database, log, opts),
		likes:         NewLikes(database, log),
		comments:      NewComments(database, log),
		follows:       NewFollows(database, log),
		users:         NewUsers(database, log),
		notifications: NewNotifications(database),
		counters:      NewCounters(database),
		author:        dbtest.CreateUser(t, database, "author", models.RoleUser),
		reader:        dbtest.CreateUser(t, database, "reader", models.RoleUser),
		mod:           dbtest.CreateUser(t, database, "mod", models.RoleModerator),
		admin:         dbtest.CreateUser(t, database, "admin", models.RoleAdmin),
	}
}

func (f *fixture) submit(t *testing.T, u *models.User, title string) *models.Content {
	t.Helper()
	c, err := f.lifecycle.Submit(context.Background(), u.Identity(), SubmitInput{Title: title, Body: "body of " + title})
	require.NoError(t, err)
	return c
}

func (f *fixture) publish(t *testing.T, u *models.User, title string) *models.Content {
	t.Helper()
	c := f.submit(t, u, title)
	c, err := f.lifecycle.Moderate(context.Background(), c.ID, Approve, f.mod.Identity())
	require.NoError(t, err)
	return c
}

// content reads a row in any state, bypassing the service.
func (f *fixture) content(t *testing.T, id uint) *models.Content {
	t.Helper()
	var c models.Content
	require.NoError(t, f.db.First(&c, id).Error)
	return &c
}

func (f *fixture) user(t *testing.T, id uint) *models.User {
	t.Helper()
	var u models.User
	require.NoError(t, f.db.First(&u, id).Error)
	return &u
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apperr.KindOf(err), "error: %v", err)
}
