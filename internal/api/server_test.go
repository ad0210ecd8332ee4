package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platebook/platebook-server/internal/auth"
	"github.com/platebook/platebook-server/internal/media/images"
	"github.com/platebook/platebook-server/internal/service"
	"github.com/platebook/platebook-server/internal/store"
)

// testServer wraps the API server and its humatest client.
type testServer struct {
	*Server
	api humatest.TestAPI
}

// testEnvelope mirrors the wire envelope for decoding in tests.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// setupTestServer creates a fully wired server backed by temp dirs.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	st, err := store.New(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	imageStorage, err := images.NewStorage(t.TempDir())
	require.NoError(t, err)

	tokenService, err := auth.NewTokenService(strings.Repeat("ab", 32), 24*time.Hour)
	require.NoError(t, err)

	services := &Services{
		Auth:       service.NewAuthService(st, tokenService, imageStorage, logger),
		Recipe:     service.NewRecipeService(st, imageStorage, logger),
		Tag:        service.NewTagService(st, logger),
		Ingredient: service.NewIngredientService(st, logger),
	}

	s := NewServer(st, services, imageStorage, logger)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.api),
	}
}

// decodeEnvelope unmarshals a humatest response body into a typed envelope.
func decodeEnvelope[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()

	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &env))
	assert.Equal(t, EnvelopeVersion, env.Version)
	return env
}

// createTestUser registers a user and returns a bearer token.
func (ts *testServer) createTestUser(t *testing.T, email string) string {
	t.Helper()

	resp := ts.api.Post("/api/v1/users", map[string]any{
		"email":    email,
		"password": "password123",
		"name":     "Test User",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = ts.api.Post("/api/v1/users/token", map[string]any{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope[TokenResponse](t, resp.Body.Bytes())
	require.True(t, env.Success)
	require.NotEmpty(t, env.Data.Token)

	return env.Data.Token
}

// authHeader formats a bearer Authorization header for humatest calls.
func authHeader(token string) string {
	return "Authorization: Bearer " + token
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope[HealthResponse](t, resp.Body.Bytes())
	assert.True(t, env.Success)
	assert.Equal(t, "healthy", env.Data.Status)
	assert.Equal(t, "healthy", env.Data.Components["database"].Status)
	assert.Equal(t, "healthy", env.Data.Components["uploads"].Status)
}

func TestProtectedRoutes_RequireAuth(t *testing.T) {
	ts := setupTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/users/me"},
		{http.MethodGet, "/api/v1/recipes"},
		{http.MethodGet, "/api/v1/tags"},
		{http.MethodGet, "/api/v1/ingredients"},
	}

	for _, p := range paths {
		resp := ts.api.Do(p.method, p.path)
		assert.Equal(t, http.StatusUnauthorized, resp.Code, "%s %s", p.method, p.path)
	}
}

func TestInvalidToken_IsRejected(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/users/me", "Authorization: Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.api.Get("/api/v1/users/me", "Authorization: Basic abc")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
