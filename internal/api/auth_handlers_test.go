package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_CreatesUser(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/users", map[string]any{
		"email":    "cook@example.com",
		"password": "password123",
		"name":     "Cook",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	env := decodeEnvelope[UserResponse](t, resp.Body.Bytes())
	assert.True(t, env.Success)
	assert.True(t, strings.HasPrefix(env.Data.ID, "user-"))
	assert.Equal(t, "cook@example.com", env.Data.Email)
	assert.Equal(t, "Cook", env.Data.Name)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ts := setupTestServer(t)
	ts.createTestUser(t, "dup@example.com")

	resp := ts.api.Post("/api/v1/users", map[string]any{
		"email":    "dup@example.com",
		"password": "password123",
		"name":     "Other",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	env := decodeEnvelope[struct{}](t, resp.Body.Bytes())
	assert.False(t, env.Success)
	assert.Equal(t, "VALIDATION", env.Code)
}

func TestRegister_ShortPassword(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/users", map[string]any{
		"email":    "short@example.com",
		"password": "1234",
		"name":     "Short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestIssueToken_BadCredentials(t *testing.T) {
	ts := setupTestServer(t)
	ts.createTestUser(t, "login@example.com")

	// Wrong password and unknown email get the same answer.
	for _, body := range []map[string]any{
		{"email": "login@example.com", "password": "wrong-password"},
		{"email": "nobody@example.com", "password": "password123"},
	} {
		resp := ts.api.Post("/api/v1/users/token", body)
		require.Equal(t, http.StatusBadRequest, resp.Code)

		env := decodeEnvelope[struct{}](t, resp.Body.Bytes())
		assert.False(t, env.Success)
		assert.Equal(t, "invalid email or password", env.Message)
	}
}

func TestIssueToken_RateLimited(t *testing.T) {
	ts := setupTestServer(t)

	// Fresh limiter allows a burst of 20 per client IP, then rejects.
	var lastCode int
	for i := 0; i < 25; i++ {
		resp := ts.api.Post("/api/v1/users/token", map[string]any{
			"email":    "burst@example.com",
			"password": "password123",
		})
		lastCode = resp.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}

func TestGetCurrentUser(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.createTestUser(t, "me@example.com")

	resp := ts.api.Get("/api/v1/users/me", authHeader(token))
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope[UserResponse](t, resp.Body.Bytes())
	assert.True(t, env.Success)
	assert.Equal(t, "me@example.com", env.Data.Email)
	assert.False(t, env.Data.LastLoginAt.IsZero())
}

func TestUpdateCurrentUser(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.createTestUser(t, "old@example.com")

	resp := ts.api.Patch("/api/v1/users/me", authHeader(token), map[string]any{
		"name":  "Renamed",
		"email": "new@example.com",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope[UserResponse](t, resp.Body.Bytes())
	assert.Equal(t, "Renamed", env.Data.Name)
	assert.Equal(t, "new@example.com", env.Data.Email)

	// The new email works for token issuance.
	resp = ts.api.Post("/api/v1/users/token", map[string]any{
		"email":    "new@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestUpdateCurrentUser_EmailConflict(t *testing.T) {
	ts := setupTestServer(t)
	ts.createTestUser(t, "taken@example.com")
	token := ts.createTestUser(t, "mover@example.com")

	resp := ts.api.Patch("/api/v1/users/me", authHeader(token), map[string]any{
		"email": "taken@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestDeleteCurrentUser(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.createTestUser(t, "gone@example.com")

	resp := ts.api.Delete("/api/v1/users/me", authHeader(token))
	require.Equal(t, http.StatusOK, resp.Code)

	// Token no longer resolves to a user.
	resp = ts.api.Get("/api/v1/users/me", authHeader(token))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	// Email is freed for a new account.
	resp = ts.api.Post("/api/v1/users", map[string]any{
		"email":    "gone@example.com",
		"password": "password123",
		"name":     "Again",
	})
	assert.Equal(t, http.StatusCreated, resp.Code)
}
