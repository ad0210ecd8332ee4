package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platebook/platebook-server/internal/http/response"
)

// Minimal valid 1x1 JPEG.
var testJPEG = []byte{
	0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46, 0x00, 0x01,
	0x01, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0xFF, 0xDB, 0x00, 0x43,
	0x00, 0x08, 0x06, 0x06, 0x07, 0x06, 0x05, 0x08, 0x07, 0x07, 0x07, 0x09,
	0x09, 0x08, 0x0A, 0x0C, 0x14, 0x0D, 0x0C, 0x0B, 0x0B, 0x0C, 0x19, 0x12,
	0x13, 0x0F, 0x14, 0x1D, 0x1A, 0x1F, 0x1E, 0x1D, 0x1A, 0x1C, 0x1C, 0x20,
	0x24, 0x2E, 0x27, 0x20, 0x22, 0x2C, 0x23, 0x1C, 0x1C, 0x28, 0x37, 0x29,
	0x2C, 0x30, 0x31, 0x34, 0x34, 0x34, 0x1F, 0x27, 0x39, 0x3D, 0x38, 0x32,
	0x3C, 0x2E, 0x33, 0x34, 0x32, 0xFF, 0xC0, 0x00, 0x0B, 0x08, 0x00, 0x01,
	0x00, 0x01, 0x01, 0x01, 0x11, 0x00, 0xFF, 0xC4, 0x00, 0x1F, 0x00, 0x00,
	0x01, 0x05, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
	0x09, 0x0A, 0x0B, 0xFF, 0xC4, 0x00, 0xB5, 0x10, 0x00, 0x02, 0x01, 0x03,
	0x03, 0x02, 0x04, 0x03, 0x05, 0x05, 0x04, 0x04, 0x00, 0x00, 0x01, 0x7D,
	0x01, 0x02, 0x03, 0x00, 0x04, 0x11, 0x05, 0x12, 0x21, 0x31, 0x41, 0x06,
	0x13, 0x51, 0x61, 0x07, 0x22, 0x71, 0x14, 0x32, 0x81, 0x91, 0xA1, 0x08,
	0x23, 0x42, 0xB1, 0xC1, 0x15, 0x52, 0xD1, 0xF0, 0x24, 0x33, 0x62, 0x72,
	0x82, 0xFF, 0xDA, 0x00, 0x08, 0x01, 0x01, 0x00, 0x00, 0x3F, 0x00, 0xFB,
	0xD5, 0xDB, 0x20, 0xFF, 0xD9,
}

// Minimal valid 1x1 transparent PNG.
var testPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, 0x89, 0x00, 0x00, 0x00,
	0x0A, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4E, 0x44, 0xAE, 0x42, 0x60, 0x82,
}

// uploadImage performs a multipart upload against the raw router.
func (ts *testServer) uploadImage(t *testing.T, token, recipeID, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recipes/"+recipeID+"/image", &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()

	ts.ServeHTTP(w, req)
	return w
}

func TestUploadRecipeImage_Success(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.createTestUser(t, "chef@example.com")
	recipe := ts.createTestRecipe(t, token, "Photogenic", nil)

	w := ts.uploadImage(t, token, recipe.ID, "dish.jpg", testJPEG)
	require.Equal(t, http.StatusOK, w.Code)

	var result response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)

	data, ok := result.Data.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, data["image_url"], recipe.ID)

	// The detail view now links to the image.
	resp := ts.api.Get("/api/v1/recipes/"+recipe.ID, authHeader(token))
	require.Equal(t, http.StatusOK, resp.Code)
	detail := decodeEnvelope[RecipeResponse](t, resp.Body.Bytes())
	assert.Equal(t, recipeImagePath(recipe.ID), detail.Data.ImageURL)
}

func TestUploadRecipeImage_RejectsNonImage(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.createTestUser(t, "chef@example.com")
	recipe := ts.createTestRecipe(t, token, "Not A Photo", nil)

	w := ts.uploadImage(t, token, recipe.ID, "fake.jpg", []byte("this is not an image file, just plain text"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var result response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.Success)
}

func TestUploadRecipeImage_Unauthorized(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.createTestUser(t, "chef@example.com")
	recipe := ts.createTestRecipe(t, token, "Locked", nil)

	w := ts.uploadImage(t, "", recipe.ID, "dish.png", testPNG)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUploadRecipeImage_OtherUsersRecipeIsNotFound(t *testing.T) {
	ts := setupTestServer(t)
	owner := ts.createTestUser(t, "owner@example.com")
	other := ts.createTestUser(t, "other@example.com")
	recipe := ts.createTestRecipe(t, owner, "Private Dish", nil)

	w := ts.uploadImage(t, other, recipe.ID, "dish.jpg", testJPEG)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRecipeImage_RoundTrip(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.createTestUser(t, "chef@example.com")
	recipe := ts.createTestRecipe(t, token, "Servable", nil)

	w := ts.uploadImage(t, token, recipe.ID, "dish.png", testPNG)
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recipes/"+recipe.ID+"/image", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, CacheOneDayPrivate, rec.Header().Get("Cache-Control"))
	assert.Equal(t, testPNG, rec.Body.Bytes())
}

func TestGetRecipeImage_NoImage(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.createTestUser(t, "chef@example.com")
	recipe := ts.createTestRecipe(t, token, "Plain", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recipes/"+recipe.ID+"/image", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
