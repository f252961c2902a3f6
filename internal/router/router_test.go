package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pressroom/internal/config"
	"pressroom/internal/db/dbtest"
	"pressroom/internal/handlers"
	"pressroom/internal/logging"
	"pressroom/internal/middleware"
	"pressroom/internal/models"
	"pressroom/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	*httptest.Server
	db *gorm.DB
}

func newTestServer(t *testing.T, submitPerMin int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database := dbtest.Open(t)
	log := logging.Discard()
	cache, err := handlers.NewArticleCache(16, time.Minute)
	require.NoError(t, err)
	counters := services.NewCounters(database)

	r := gin.New()
	RegisterRoutes(r, Deps{
		Config:        config.Config{SessionSecret: "test-secret", CORSOrigin: "*"},
		DB:            database,
		Log:           log,
		Lifecycle:     services.NewLifecycle(database, log, services.LifecycleOptions{}),
		Likes:         services.NewLikes(database, log),
		Comments:      services.NewComments(database, log),
		Follows:       services.NewFollows(database, log),
		Users:         services.NewUsers(database, log),
		Notifications: services.NewNotifications(database),
		Counters:      counters,
		Reconciler:    services.NewReconciler(counters, log, 0),
		Cache:         cache,
		SubmitLimiter: middleware.PerMinute(submitPerMin),
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, db: database}
}

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func (s *testServer) client(t *testing.T) *client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: s.URL, http: &http.Client{Jar: jar}}
}

func (c *client) do(method, path string, body any) (*http.Response, map[string]any) {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

// signup registers and logs in a new user through the API.
func (c *client) signup(name string) uint {
	c.t.Helper()
	resp, body := c.do(http.MethodPost, "/signup", map[string]string{
		"username": name,
		"email":    name + "@example.com",
		"password": "correct horse",
	})
	require.Equal(c.t, http.StatusCreated, resp.StatusCode, body)
	return uint(body["id"].(float64))
}

func (s *testServer) setRole(t *testing.T, id uint, role models.Role) {
	require.NoError(t, s.db.Model(&models.User{}).Where("id = ?", id).Update("role", role).Error)
}

func TestHealthzAndMetrics(t *testing.T) {
	s := newTestServer(t, 10)
	c := s.client(t)

	resp, body := c.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, err := http.Get(s.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "pressroom_http_request_duration_seconds")
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t, 10)
	req, _ := http.NewRequest(http.MethodGet, s.URL+"/healthz", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(middleware.RequestIDHeader))
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, 10)
	c := s.client(t)

	resp, body := c.do(http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthenticated", body["error"])

	id := c.signup("alice")
	resp, body = c.do(http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := body["user"].(map[string]any)
	assert.Equal(t, float64(id), user["id"])
	assert.Equal(t, float64(0), body["unread_count"])

	resp, _ = c.do(http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = c.do(http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = c.do(http.MethodPost, "/login", map[string]string{"email": "alice@example.com", "password": "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, body)
	resp, _ = c.do(http.MethodPost, "/login", map[string]string{"email": "alice@example.com", "password": "correct horse"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = c.do(http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDuplicateSignupConflicts(t *testing.T) {
	s := newTestServer(t, 10)
	s.client(t).signup("bob")

	resp, body := s.client(t).do(http.MethodPost, "/signup", map[string]string{
		"email":    "BOB@example.com",
		"password": "another pass",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", body["error"])
}

func TestPublishLikeCommentOverHTTP(t *testing.T) {
	s := newTestServer(t, 10)
	author, reader, mod, anon := s.client(t), s.client(t), s.client(t), s.client(t)
	author.signup("author")
	reader.signup("reader")
	s.setRole(t, mod.signup("mod"), models.RoleModerator)

	resp, body := author.do(http.MethodPost, "/articles", map[string]any{
		"title":    "Hello",
		"body":     "**bold** claim",
		"hashtags": []string{"#Go", "news"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "PENDING", body["state"])
	path := fmt.Sprintf("/articles/%d", int(body["id"].(float64)))

	// Pending articles are visible to their author only.
	resp, _ = anon.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = author.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = reader.do(http.MethodPost, "/moderation"+path+"/approve", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "forbidden", body["error"])

	resp, body = mod.do(http.MethodPost, "/moderation"+path+"/approve", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "PUBLISHED", body["state"])

	resp, body = anon.do(http.MethodGet, "/articles", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total_count"])

	resp, body = anon.do(http.MethodGet, "/tags/go/articles", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total_count"])

	resp, body = reader.do(http.MethodPost, path+"/like", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "LIKED", body["state"])
	assert.Equal(t, float64(1), body["like_count"])

	resp, body = reader.do(http.MethodPost, path+"/comments", map[string]string{"body": "nice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	resp, body = reader.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["like_count"])
	assert.Equal(t, float64(1), body["comment_count"])
	assert.Equal(t, true, body["liked_by_me"])
	assert.Contains(t, body["html"], "<strong>bold</strong>")

	// Anonymous viewers share the cached view without the liked flag.
	resp, body = anon.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["liked_by_me"])

	resp, body = author.do(http.MethodGet, "/notifications", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["total_count"])

	resp, body = reader.do(http.MethodPost, path+"/like", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "UNLIKED", body["state"])
	assert.Equal(t, float64(0), body["like_count"])
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t, 10)
	anon, user := s.client(t), s.client(t)
	user.signup("carol")

	resp, body := anon.do(http.MethodPost, "/articles", map[string]string{"title": "t", "body": "b"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthenticated", body["error"])

	resp, body = user.do(http.MethodPost, "/articles", map[string]string{"title": "  ", "body": "b"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", body["error"])

	resp, body = user.do(http.MethodGet, "/articles/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", body["error"])

	resp, body = user.do(http.MethodGet, "/articles/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["error"])

	resp, body = user.do(http.MethodGet, "/articles?sort=password", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", body["error"])

	resp, _ = user.do(http.MethodPost, "/admin/users/1/block", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSubmitRateLimit(t *testing.T) {
	s := newTestServer(t, 1)
	c := s.client(t)
	c.signup("dave")

	resp, _ := c.do(http.MethodPost, "/articles", map[string]string{"title": "one", "body": "b"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := c.do(http.MethodPost, "/articles", map[string]string{"title": "two", "body": "b"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate_limited", body["error"])
}

func TestAdminBlocksUser(t *testing.T) {
	s := newTestServer(t, 10)
	admin, victim := s.client(t), s.client(t)
	s.setRole(t, admin.signup("root"), models.RoleAdmin)
	id := victim.signup("eve")

	resp, body := admin.do(http.MethodPost, fmt.Sprintf("/admin/users/%d/block", id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, true, body["blocked"])

	resp, body = victim.do(http.MethodPost, "/articles", map[string]string{"title": "t", "body": "b"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "forbidden", body["error"])

	resp, body = admin.do(http.MethodPost, fmt.Sprintf("/admin/users/%d/role", id), map[string]string{"role": "GOD"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
}

func TestFollowOverHTTP(t *testing.T) {
	s := newTestServer(t, 10)
	a, b := s.client(t), s.client(t)
	a.signup("frank")
	bID := b.signup("grace")

	resp, body := a.do(http.MethodPost, fmt.Sprintf("/users/%d/follow", bID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "FOLLOWING", body["state"])

	resp, body = a.do(http.MethodGet, fmt.Sprintf("/users/%d", bID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["followed_by_me"])
	assert.Equal(t, float64(1), body["user"].(map[string]any)["follower_count"])

	resp, body = b.do(http.MethodGet, fmt.Sprintf("/users/%d/followers", bID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total_count"])

	resp, body = b.do(http.MethodPost, "/notifications/read-all", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["updated"])
}
