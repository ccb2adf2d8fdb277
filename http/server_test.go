package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"conduit/crud"
	"conduit/domain"
)

const testJWTSecret = "test-secret"

// newTestServer wires a Server to real crud services backed by a fresh
// sqlite database, the same way main.go does against postgres.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "conduit_test.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		domain.User{},
		domain.Article{},
		domain.Favorite{},
		domain.Follow{},
	))
	services, err := crud.NewServices(db,
		crud.WithUser("test-pepper"),
		crud.WithArticle(),
		crud.WithFavorite(),
		crud.WithFollow(),
	)
	require.NoError(t, err)
	return NewServer(zap.NewNop(), testJWTSecret, services.User, services.Article, services.Favorite, services.Follow)
}

// do runs a request through the full middleware chain and returns the
// recorded response.
func do(t *testing.T, s *Server, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	r := httptest.NewRequest(method, target, reader)
	if token != "" {
		r.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(out))
}

// registerUser creates a user through the API and returns their token.
func registerUser(t *testing.T, s *Server, username string) string {
	t.Helper()
	payload := map[string]map[string]string{"user": {
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	}}
	w := do(t, s, "POST", "/api/users", "", payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp userResponse
	decode(t, w, &resp)
	require.NotEmpty(t, resp.User.Token)
	return resp.User.Token
}

// createArticle publishes an article through the API and returns its slug.
func createArticle(t *testing.T, s *Server, token, title string, tags ...string) string {
	t.Helper()
	payload := map[string]any{"article": map[string]any{
		"title":       title,
		"description": "about " + title,
		"body":        "body of " + title,
		"tagList":     tags,
	}}
	w := do(t, s, "POST", "/api/articles", token, payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp articleResponse
	decode(t, w, &resp)
	return resp.Article.Slug
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)
	registerUser(t, s, "jake")

	w := do(t, s, "POST", "/api/users/login", "", map[string]map[string]string{"user": {
		"email":    "jake@example.com",
		"password": "password123",
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp userResponse
	decode(t, w, &resp)
	assert.Equal(t, "jake", resp.User.Username)
	assert.NotEmpty(t, resp.User.Token)

	w = do(t, s, "POST", "/api/users/login", "", map[string]map[string]string{"user": {
		"email":    "jake@example.com",
		"password": "wrong-password",
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCurrentUser(t *testing.T) {
	s := newTestServer(t)
	token := registerUser(t, s, "jake")

	w := do(t, s, "GET", "/api/user", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp userResponse
	decode(t, w, &resp)
	assert.Equal(t, "jake", resp.User.Username)
	assert.Equal(t, token, resp.User.Token)

	// No token means no current user.
	w = do(t, s, "GET", "/api/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A garbage token is treated as anonymous, not as a server error.
	w = do(t, s, "GET", "/api/user", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateUser(t *testing.T) {
	s := newTestServer(t)
	token := registerUser(t, s, "jake")

	// Updating settings requires a token.
	w := do(t, s, "PUT", "/api/user", "", map[string]map[string]string{"user": {"bio": "nope"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, s, "PUT", "/api/user", token, map[string]map[string]string{"user": {
		"bio":      "I like dragons.",
		"password": "anotherpassword",
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp userResponse
	decode(t, w, &resp)
	assert.Equal(t, "jake", resp.User.Username)
	assert.Equal(t, "I like dragons.", resp.User.Bio)

	// The update stuck.
	w = do(t, s, "GET", "/api/user", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, "I like dragons.", resp.User.Bio)

	// And so did the new password.
	w = do(t, s, "POST", "/api/users/login", "", map[string]map[string]string{"user": {
		"email":    "jake@example.com",
		"password": "anotherpassword",
	}})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// A too-short replacement password is rejected.
	w = do(t, s, "PUT", "/api/user", token, map[string]map[string]string{"user": {"password": "short"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestArticleLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := registerUser(t, s, "jake")
	slug := createArticle(t, s, token, "How to Train Your Dragon", "dragons")

	// Anyone can read it.
	w := do(t, s, "GET", "/api/articles/"+slug, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp articleResponse
	decode(t, w, &resp)
	assert.Equal(t, "How to Train Your Dragon", resp.Article.Title)
	assert.Equal(t, "jake", resp.Article.Author.Username)
	assert.Equal(t, []string{"dragons"}, resp.Article.TagList)

	// A title edit changes the slug.
	w = do(t, s, "PUT", "/api/articles/"+slug, token, map[string]map[string]string{"article": {
		"title": "Did You Train Your Dragon?",
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &resp)
	assert.NotEqual(t, slug, resp.Article.Slug)
	newSlug := resp.Article.Slug

	// The old slug no longer resolves.
	w = do(t, s, "GET", "/api/articles/"+slug, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, "DELETE", "/api/articles/"+newSlug, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, s, "GET", "/api/articles/"+newSlug, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestArticleAuthorization(t *testing.T) {
	s := newTestServer(t)
	jake := registerUser(t, s, "jake")
	anne := registerUser(t, s, "anne")
	slug := createArticle(t, s, jake, "Protected")

	// Writing requires a token.
	w := do(t, s, "POST", "/api/articles", "", map[string]map[string]string{"article": {"title": "Nope"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Only the author may update or delete.
	w = do(t, s, "PUT", "/api/articles/"+slug, anne, map[string]map[string]string{"article": {"title": "Hijacked"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = do(t, s, "DELETE", "/api/articles/"+slug, anne, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// A missing article is reported before ownership is considered.
	w = do(t, s, "DELETE", "/api/articles/no-such-slug", anne, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListArticles(t *testing.T) {
	s := newTestServer(t)
	jake := registerUser(t, s, "jake")
	anne := registerUser(t, s, "anne")
	createArticle(t, s, jake, "Dragons", "dragons")
	createArticle(t, s, anne, "Trains", "trains")

	w := do(t, s, "GET", "/api/articles", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp articlesResponse
	decode(t, w, &resp)
	assert.Equal(t, 2, resp.ArticlesCount)
	assert.Len(t, resp.Articles, 2)

	w = do(t, s, "GET", "/api/articles?author=jake", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	require.Len(t, resp.Articles, 1)
	assert.Equal(t, "Dragons", resp.Articles[0].Title)

	w = do(t, s, "GET", "/api/articles?tag=trains", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	require.Len(t, resp.Articles, 1)
	assert.Equal(t, "Trains", resp.Articles[0].Title)

	// An empty result set is an empty array, not null.
	w = do(t, s, "GET", "/api/articles?tag=boats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"articles":[]`)

	// A non-numeric page parameter is a client error.
	w = do(t, s, "GET", "/api/articles?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Filtering by a user who doesn't exist is not a server error class.
	w = do(t, s, "GET", "/api/articles?author=nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFeed(t *testing.T) {
	s := newTestServer(t)
	jake := registerUser(t, s, "jake")
	anne := registerUser(t, s, "anne")
	createArticle(t, s, jake, "From Jake")
	createArticle(t, s, anne, "From Anne")

	// The feed requires auth.
	w := do(t, s, "GET", "/api/articles/feed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Before following anyone the feed is empty.
	w = do(t, s, "GET", "/api/articles/feed", anne, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp articlesResponse
	decode(t, w, &resp)
	assert.Zero(t, resp.ArticlesCount)

	w = do(t, s, "POST", "/api/profiles/jake/follow", anne, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, s, "GET", "/api/articles/feed", anne, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	require.Equal(t, 1, resp.ArticlesCount)
	assert.Equal(t, "From Jake", resp.Articles[0].Title)
	_ = jake
}

func TestFavoriteRoutes(t *testing.T) {
	s := newTestServer(t)
	jake := registerUser(t, s, "jake")
	anne := registerUser(t, s, "anne")
	slug := createArticle(t, s, jake, "Favored")

	w := do(t, s, "POST", fmt.Sprintf("/api/articles/%s/favorite", slug), anne, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp articleResponse
	decode(t, w, &resp)
	assert.True(t, resp.Article.Favorited)
	assert.Equal(t, 1, resp.Article.FavoritesCount)

	// The flag is viewer-scoped; jake hasn't favorited his own article.
	w = do(t, s, "GET", "/api/articles/"+slug, jake, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.False(t, resp.Article.Favorited)
	assert.Equal(t, 1, resp.Article.FavoritesCount)

	w = do(t, s, "DELETE", fmt.Sprintf("/api/articles/%s/favorite", slug), anne, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.False(t, resp.Article.Favorited)
	assert.Zero(t, resp.Article.FavoritesCount)

	// Unfavoriting something that was never favorited is a 404.
	w = do(t, s, "DELETE", fmt.Sprintf("/api/articles/%s/favorite", slug), anne, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Favoriting requires auth.
	w = do(t, s, "POST", fmt.Sprintf("/api/articles/%s/favorite", slug), "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfileRoutes(t *testing.T) {
	s := newTestServer(t)
	registerUser(t, s, "jake")
	anne := registerUser(t, s, "anne")

	w := do(t, s, "GET", "/api/profiles/jake", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp profileResponse
	decode(t, w, &resp)
	assert.Equal(t, "jake", resp.Profile.Username)
	assert.False(t, resp.Profile.Following)

	w = do(t, s, "POST", "/api/profiles/jake/follow", anne, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &resp)
	assert.True(t, resp.Profile.Following)

	w = do(t, s, "GET", "/api/profiles/jake", anne, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.True(t, resp.Profile.Following)

	w = do(t, s, "DELETE", "/api/profiles/jake/follow", anne, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.False(t, resp.Profile.Following)

	// Following yourself is a client error.
	w = do(t, s, "POST", "/api/profiles/anne/follow", anne, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, "GET", "/api/profiles/nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
