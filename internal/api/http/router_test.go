package http

import (
	"bytes"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/blog-api/internal/api/http/handlers"
	"github.com/spec-kit/blog-api/internal/auth"
	"github.com/spec-kit/blog-api/internal/config"
	"github.com/spec-kit/blog-api/internal/observability"
	"github.com/spec-kit/blog-api/internal/repository"
	"github.com/spec-kit/blog-api/internal/service"
	apperrors "github.com/spec-kit/blog-api/pkg/util/errorutil"
)

var (
	keysOnce sync.Once
	testKeys *auth.KeyPair
	keysErr  error
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	keysOnce.Do(func() {
		testKeys, keysErr = auth.GenerateKeyPair(2048)
	})
	require.NoError(t, keysErr)

	store := repository.NewMemoryStore()
	metrics := observability.NewMetrics()
	tokens := auth.NewTokenCodec(testKeys, auth.DefaultIssuer, nil)
	blacklist := auth.NewBlacklist(metrics)

	authService := service.NewAuthService(config.AuthConfig{
		AccessTokenTTLSeconds:  3600,
		RefreshTokenTTLSeconds: 86400,
		BcryptCost:             4,
	}, service.AuthDependencies{
		Accounts:  store.Accounts(),
		Tokens:    tokens,
		Blacklist: blacklist,
		Metrics:   metrics,
	})
	posts := service.NewPostService(store.Posts(), nil, nil, nil)
	comments := service.NewCommentService(store.Comments(), posts, nil, nil, nil)

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:   handlers.NewHealthHandler("blog-api", "test", nil),
		Users:    handlers.NewUsersHandler(authService),
		Posts:    handlers.NewPostsHandler(posts, comments),
		Comments: handlers.NewCommentsHandler(comments),
		Gate:     auth.NewGate(tokens, blacklist, store.Accounts(), metrics, nil),
		Metrics:  metrics,
	})
	return app
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func call(t *testing.T, app *fiber.App, method, path string, body any, token string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &env))
	}
	return resp.StatusCode, env
}

type tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func registerAndLogin(t *testing.T, app *fiber.App) tokens {
	t.Helper()
	status, _ := call(t, app, nethttp.MethodPost, "/api/users/new",
		map[string]string{"username": "alice", "email": "a@x.com", "password": "secret123"}, "")
	require.Equal(t, nethttp.StatusCreated, status)

	status, env := call(t, app, nethttp.MethodPost, "/api/users/login",
		map[string]string{"email": "a@x.com", "password": "secret123"}, "")
	require.Equal(t, nethttp.StatusOK, status)

	var pair tokens
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	return pair
}

func TestSessionLifecycle(t *testing.T) {
	app := newTestApp(t)
	pair := registerAndLogin(t, app)
	assert.EqualValues(t, 3600, pair.ExpiresIn)

	newPost := map[string]string{"title": "Hello", "content": "World"}

	status, env := call(t, app, nethttp.MethodPost, "/api/posts/new", newPost, pair.AccessToken)
	require.Equal(t, nethttp.StatusCreated, status)
	var post struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &post))

	status, _ = call(t, app, nethttp.MethodGet, "/api/users/me", nil, pair.AccessToken)
	assert.Equal(t, nethttp.StatusOK, status)

	status, env = call(t, app, nethttp.MethodPost, "/api/users/logout", map[string]string{"email": "a@x.com"}, "")
	require.Equal(t, nethttp.StatusOK, status)

	status, env = call(t, app, nethttp.MethodPost, "/api/posts/new", newPost, pair.AccessToken)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperrors.CodeUnauthenticated, env.Error.Code)

	status, env = call(t, app, nethttp.MethodPost, "/api/users/refresh-token",
		map[string]string{"refreshToken": pair.RefreshToken}, "")
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperrors.CodeInvalidRefreshToken, env.Error.Code)

	status, _ = call(t, app, nethttp.MethodPost, "/api/users/logout", map[string]string{"email": "a@x.com"}, "")
	assert.Equal(t, nethttp.StatusOK, status)

	status, _ = call(t, app, nethttp.MethodGet, "/api/posts/"+post.ID, nil, "")
	assert.Equal(t, nethttp.StatusOK, status)
}

func TestRefreshEndpoint(t *testing.T) {
	app := newTestApp(t)
	pair := registerAndLogin(t, app)

	status, env := call(t, app, nethttp.MethodPost, "/api/users/refresh-token",
		map[string]string{"refreshToken": pair.AccessToken}, "")
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperrors.CodeInvalidRefreshToken, env.Error.Code)

	status, env = call(t, app, nethttp.MethodPost, "/api/users/refresh-token",
		map[string]string{"refreshToken": pair.RefreshToken}, "")
	require.Equal(t, nethttp.StatusOK, status)

	var refreshed tokens
	require.NoError(t, json.Unmarshal(env.Data, &refreshed))
	assert.Equal(t, pair.RefreshToken, refreshed.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, refreshed.AccessToken)

	status, _ = call(t, app, nethttp.MethodGet, "/api/users/me", nil, refreshed.AccessToken)
	assert.Equal(t, nethttp.StatusOK, status)

	status, _ = call(t, app, nethttp.MethodGet, "/api/users/me", nil, pair.RefreshToken)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
}

func TestLoginErrors(t *testing.T) {
	app := newTestApp(t)
	registerAndLogin(t, app)

	tests := []struct {
		name   string
		body   map[string]string
		status int
		code   string
	}{
		{name: "wrong password", body: map[string]string{"email": "a@x.com", "password": "nope-nope"},
			status: nethttp.StatusUnauthorized, code: apperrors.CodeInvalidCredentials},
		{name: "unknown email", body: map[string]string{"email": "b@x.com", "password": "secret123"},
			status: nethttp.StatusUnauthorized, code: apperrors.CodeInvalidCredentials},
		{name: "missing password", body: map[string]string{"email": "a@x.com"},
			status: nethttp.StatusBadRequest, code: apperrors.CodeInvalidRequestData},
		{name: "malformed email", body: map[string]string{"email": "a@", "password": "secret123"},
			status: nethttp.StatusBadRequest, code: apperrors.CodeInvalidRequestData},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, env := call(t, app, nethttp.MethodPost, "/api/users/login", tc.body, "")
			assert.Equal(t, tc.status, status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestRegisterDuplicateAndLogoutUnknown(t *testing.T) {
	app := newTestApp(t)
	registerAndLogin(t, app)

	status, env := call(t, app, nethttp.MethodPost, "/api/users/new",
		map[string]string{"username": "alice", "email": "A@X.com", "password": "secret123"}, "")
	assert.Equal(t, nethttp.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperrors.CodeAccountAlreadyExists, env.Error.Code)

	status, env = call(t, app, nethttp.MethodPost, "/api/users/logout", map[string]string{"email": "ghost@x.com"}, "")
	assert.Equal(t, nethttp.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperrors.CodeAccountNotFound, env.Error.Code)
}

func TestGetUserByID(t *testing.T) {
	app := newTestApp(t)
	pair := registerAndLogin(t, app)

	status, env := call(t, app, nethttp.MethodGet, "/api/users/me", nil, pair.AccessToken)
	require.Equal(t, nethttp.StatusOK, status)
	var me struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	require.NotEmpty(t, me.ID)

	status, env = call(t, app, nethttp.MethodGet, "/api/users/"+me.ID, nil, pair.AccessToken)
	require.Equal(t, nethttp.StatusOK, status)
	var got map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, me.ID, got["id"])
	assert.Equal(t, "a@x.com", got["email"])
	assert.NotContains(t, got, "passwordHash")
	assert.NotContains(t, got, "refreshToken")

	for _, id := range []string{"0b5f9a3c-6d2e-4c1a-9f4e-2a7b8c9d0e1f", "not-a-uuid"} {
		status, env = call(t, app, nethttp.MethodGet, "/api/users/"+id, nil, pair.AccessToken)
		assert.Equal(t, nethttp.StatusNotFound, status, id)
		require.NotNil(t, env.Error)
		assert.Equal(t, apperrors.CodeNotFound, env.Error.Code)
	}

	status, _ = call(t, app, nethttp.MethodGet, "/api/users/"+me.ID, nil, "")
	assert.Equal(t, nethttp.StatusUnauthorized, status)
}

func TestRegisterRejectsPasswordOverByteLimit(t *testing.T) {
	app := newTestApp(t)

	status, env := call(t, app, nethttp.MethodPost, "/api/users/new",
		map[string]string{"username": "alice", "email": "a@x.com", "password": strings.Repeat("é", 40)}, "")
	assert.Equal(t, nethttp.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperrors.CodeInvalidRequestData, env.Error.Code)
	assert.Contains(t, env.Error.Details, "password")
}

func TestContentRoutes(t *testing.T) {
	app := newTestApp(t)
	pair := registerAndLogin(t, app)

	status, env := call(t, app, nethttp.MethodPost, "/api/posts/new",
		map[string]string{"title": "Hello", "content": "World"}, pair.AccessToken)
	require.Equal(t, nethttp.StatusCreated, status)
	var post struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &post))

	status, env = call(t, app, nethttp.MethodPost, "/api/comments/new",
		map[string]string{"postId": post.ID, "content": "first!"}, pair.AccessToken)
	require.Equal(t, nethttp.StatusCreated, status)

	status, _ = call(t, app, nethttp.MethodPost, "/api/comments/new",
		map[string]string{"postId": post.ID, "content": "anon"}, "")
	assert.Equal(t, nethttp.StatusUnauthorized, status)

	status, env = call(t, app, nethttp.MethodGet, "/api/posts/"+post.ID+"/comments", nil, "")
	require.Equal(t, nethttp.StatusOK, status)
	var comments []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &comments))
	assert.Len(t, comments, 1)

	status, env = call(t, app, nethttp.MethodGet, "/api/posts?page=0&size=10", nil, "")
	require.Equal(t, nethttp.StatusOK, status)
	var page struct {
		Items []map[string]any `json:"items"`
		Total int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 1, page.Total)

	status, _ = call(t, app, nethttp.MethodDelete, "/api/posts/"+post.ID, nil, pair.AccessToken)
	assert.Equal(t, nethttp.StatusNoContent, status)

	status, env = call(t, app, nethttp.MethodGet, "/api/posts/"+post.ID, nil, "")
	assert.Equal(t, nethttp.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperrors.CodeNotFound, env.Error.Code)
}

func TestMetricsAndUnknownRoute(t *testing.T) {
	app := newTestApp(t)
	registerAndLogin(t, app)

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `blog_tokens_issued_total{type="access"} 1`)
	assert.Contains(t, string(body), `blog_logins_total{outcome="success"} 1`)

	status, env := call(t, app, nethttp.MethodGet, "/nope", nil, "")
	assert.Equal(t, nethttp.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestResponsesCarryRequestID(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/api/posts", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
