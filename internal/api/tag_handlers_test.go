package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTags_AssignedOnly(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.createTestUser(t, "chef@example.com")

	recipe := ts.createTestRecipe(t, token, "Curry", map[string]any{
		"tags": []map[string]any{{"name": "dinner"}},
	})

	// Detach the tag so it exists but is unassigned.
	orphan := ts.createTestRecipe(t, token, "Toast", map[string]any{
		"tags": []map[string]any{{"name": "breakfast"}},
	})
	resp := ts.api.Delete("/api/v1/recipes/"+orphan.ID, authHeader(token))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/tags", authHeader(token))
	require.Equal(t, http.StatusOK, resp.Code)
	env := decodeEnvelope[ListTagsResponse](t, resp.Body.Bytes())
	assert.Len(t, env.Data.Tags, 2)

	resp = ts.api.Get("/api/v1/tags?assigned_only=1", authHeader(token))
	require.Equal(t, http.StatusOK, resp.Code)
	env = decodeEnvelope[ListTagsResponse](t, resp.Body.Bytes())
	require.Len(t, env.Data.Tags, 1)
	assert.Equal(t, "dinner", env.Data.Tags[0].Name)
	assert.Equal(t, tagIDByName(recipe, "dinner"), env.Data.Tags[0].ID)

	resp = ts.api.Get("/api/v1/tags?assigned_only=0", authHeader(token))
	require.Equal(t, http.StatusOK, resp.Code)
	env = decodeEnvelope[ListTagsResponse](t, resp.Body.Bytes())
	assert.Len(t, env.Data.Tags, 2)
}

func TestListTags_BadAssignedOnly(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.createTestUser(t, "chef@example.com")

	resp := ts.api.Get("/api/v1/tags?assigned_only=true", authHeader(token))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdateTag(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.createTestUser(t, "chef@example.com")

	recipe := ts.createTestRecipe(t, token, "Curry", map[string]any{
		"tags": []map[string]any{{"name": "dinner"}},
	})
	tagID := tagIDByName(recipe, "dinner")

	resp := ts.api.Patch("/api/v1/tags/"+tagID, authHeader(token), map[string]any{
		"name": "supper",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope[TagResponse](t, resp.Body.Bytes())
	assert.Equal(t, "supper", env.Data.Name)

	// The rename is visible through the recipe detail.
	resp = ts.api.Get("/api/v1/recipes/"+recipe.ID, authHeader(token))
	require.Equal(t, http.StatusOK, resp.Code)
	detail := decodeEnvelope[RecipeResponse](t, resp.Body.Bytes())
	require.Len(t, detail.Data.Tags, 1)
	assert.Equal(t, "supper", detail.Data.Tags[0].Name)
}

func TestUpdateTag_NameConflict(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.createTestUser(t, "chef@example.com")

	recipe := ts.createTestRecipe(t, token, "Curry", map[string]any{
		"tags": []map[string]any{{"name": "dinner"}, {"name": "spicy"}},
	})

	resp := ts.api.Patch("/api/v1/tags/"+tagIDByName(recipe, "spicy"), authHeader(token), map[string]any{
		"name": "dinner",
	})
	require.Equal(t, http.StatusConflict, resp.Code)

	env := decodeEnvelope[struct{}](t, resp.Body.Bytes())
	assert.Equal(t, "ALREADY_EXISTS", env.Code)
}

func TestTag_OtherUsersTagIsNotFound(t *testing.T) {
	ts := setupTestServer(t)
	owner := ts.createTestUser(t, "owner@example.com")
	other := ts.createTestUser(t, "other@example.com")

	recipe := ts.createTestRecipe(t, owner, "Curry", map[string]any{
		"tags": []map[string]any{{"name": "dinner"}},
	})
	tagID := tagIDByName(recipe, "dinner")

	resp := ts.api.Patch("/api/v1/tags/"+tagID, authHeader(other), map[string]any{
		"name": "stolen",
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Delete("/api/v1/tags/"+tagID, authHeader(other))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDeleteTag_DetachesFromRecipes(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.createTestUser(t, "chef@example.com")

	recipe := ts.createTestRecipe(t, token, "Curry", map[string]any{
		"tags": []map[string]any{{"name": "dinner"}},
	})
	tagID := tagIDByName(recipe, "dinner")

	resp := ts.api.Delete("/api/v1/tags/"+tagID, authHeader(token))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/recipes/"+recipe.ID, authHeader(token))
	require.Equal(t, http.StatusOK, resp.Code)
	detail := decodeEnvelope[RecipeResponse](t, resp.Body.Bytes())
	assert.Empty(t, detail.Data.Tags)
}
