package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platebook/platebook-server/internal/store"
)

func TestCreateRecipe_And_Get(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	r := newTestRecipe(t, "user-1", "Carbonara")
	r.Description = "Roman classic"
	r.Link = "https://example.com/carbonara"
	require.NoError(t, s.CreateRecipe(ctx, r))

	got, err := s.GetRecipe(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Carbonara", got.Title)
	assert.Equal(t, "12.50", got.Price)
	assert.Equal(t, "user-1", got.UserID)
}

func TestGetRecipeForOwner(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	r := newTestRecipe(t, "user-a", "Private Dish")
	require.NoError(t, s.CreateRecipe(ctx, r))

	// Another user sees a 404-shaped error, not a permission error.
	_, err := s.GetRecipeForOwner(ctx, "user-b", r.ID)
	assert.ErrorIs(t, err, store.ErrRecipeNotFound)

	got, err := s.GetRecipeForOwner(ctx, "user-a", r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
}

func TestUpdateRecipe(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	r := newTestRecipe(t, "user-1", "Before")
	require.NoError(t, s.CreateRecipe(ctx, r))

	r.Title = "After"
	r.TimeMinutes = 45
	require.NoError(t, s.UpdateRecipe(ctx, r))

	got, err := s.GetRecipe(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Title)
	assert.Equal(t, 45, got.TimeMinutes)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt) || got.UpdatedAt.Equal(got.CreatedAt))
}

func TestUpdateRecipe_NotFound(t *testing.T) {
	s := setupTestStore(t)

	r := newTestRecipe(t, "user-1", "Ghost")
	err := s.UpdateRecipe(context.Background(), r)
	assert.ErrorIs(t, err, store.ErrRecipeNotFound)
}

func TestListRecipesByOwner_NewestFirst(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	older := newTestRecipe(t, "user-1", "Older")
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, s.CreateRecipe(ctx, older))

	newer := newTestRecipe(t, "user-1", "Newer")
	require.NoError(t, s.CreateRecipe(ctx, newer))

	other := newTestRecipe(t, "user-2", "Not Mine")
	require.NoError(t, s.CreateRecipe(ctx, other))

	recipes, err := s.ListRecipesByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	assert.Equal(t, "Newer", recipes[0].Title)
	assert.Equal(t, "Older", recipes[1].Title)
}

func TestDeleteRecipe_LinksRemoved_EntitiesSurvive(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	r := newTestRecipe(t, "user-1", "Curry")
	require.NoError(t, s.CreateRecipe(ctx, r))

	tag, _, err := s.FindOrCreateTag(ctx, "user-1", "Spicy")
	require.NoError(t, err)
	ing, _, err := s.FindOrCreateIngredient(ctx, "user-1", "Turmeric")
	require.NoError(t, err)
	require.NoError(t, s.AddTagToRecipe(ctx, r.ID, tag.ID))
	require.NoError(t, s.AddIngredientToRecipe(ctx, r.ID, ing.ID))

	require.NoError(t, s.DeleteRecipe(ctx, r.ID))

	_, err = s.GetRecipe(ctx, r.ID)
	assert.ErrorIs(t, err, store.ErrRecipeNotFound)

	// The tag and ingredient survive, but point at nothing.
	_, err = s.GetTagByID(ctx, tag.ID)
	require.NoError(t, err)
	_, err = s.GetIngredientByID(ctx, ing.ID)
	require.NoError(t, err)

	recipeIDs, err := s.GetRecipeIDsForTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.Empty(t, recipeIDs)

	recipeIDs, err = s.GetRecipeIDsForIngredient(ctx, ing.ID)
	require.NoError(t, err)
	assert.Empty(t, recipeIDs)

	recipes, err := s.ListRecipesByOwner(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, recipes)
}

func TestCreateRecipe_DuplicateID(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	r := newTestRecipe(t, "user-1", "Once")
	require.NoError(t, s.CreateRecipe(ctx, r))

	err := s.CreateRecipe(ctx, r)
	assert.ErrorIs(t, err, store.ErrRecipeExists)
}

func TestIngredientLinks_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	r := newTestRecipe(t, "user-1", "Bread")
	require.NoError(t, s.CreateRecipe(ctx, r))

	flour, created, err := s.FindOrCreateIngredient(ctx, "user-1", "Flour")
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, s.AddIngredientToRecipe(ctx, r.ID, flour.ID))
	require.NoError(t, s.AddIngredientToRecipe(ctx, r.ID, flour.ID)) // idempotent

	ings, err := s.GetIngredientsForRecipe(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, ings, 1)
	assert.Equal(t, "Flour", ings[0].Name)

	require.NoError(t, s.ClearRecipeIngredients(ctx, r.ID))
	ids, err := s.GetIngredientIDsForRecipe(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestIngredient_PerUserUniqueness(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a, _, err := s.FindOrCreateIngredient(ctx, "user-a", "Salt")
	require.NoError(t, err)
	b, _, err := s.FindOrCreateIngredient(ctx, "user-b", "Salt")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	again, created, err := s.FindOrCreateIngredient(ctx, "user-a", "Salt")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, again.ID)
}
