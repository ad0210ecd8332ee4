package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platebook/platebook-server/internal/domain"
	"github.com/platebook/platebook-server/internal/id"
	"github.com/platebook/platebook-server/internal/store"
)

func newTestUser(t *testing.T, email string) *domain.User {
	t.Helper()
	u := &domain.User{
		Email:       email,
		DisplayName: "Test Cook",
	}
	u.ID = id.MustGenerate("user")
	u.InitTimestamps()
	return u
}

func TestCreateUser_And_GetByEmail(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u := newTestUser(t, "cook@example.com")
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUserByEmail(ctx, "cook@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	// Lookup is case-insensitive.
	got, err = s.GetUserByEmail(ctx, "COOK@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, newTestUser(t, "dup@example.com")))

	// Same email, different case.
	err := s.CreateUser(ctx, newTestUser(t, "DUP@example.com"))
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrEmailExists)
}

func TestGetUser_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetUser(context.Background(), "user-missing")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestUpdateUser_EmailReindex(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u := newTestUser(t, "old@example.com")
	require.NoError(t, s.CreateUser(ctx, u))

	u.Email = "new@example.com"
	require.NoError(t, s.UpdateUser(ctx, u))

	_, err := s.GetUserByEmail(ctx, "old@example.com")
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	got, err := s.GetUserByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestUpdateUser_EmailConflict(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, newTestUser(t, "taken@example.com")))

	u := newTestUser(t, "free@example.com")
	require.NoError(t, s.CreateUser(ctx, u))

	u.Email = "taken@example.com"
	err := s.UpdateUser(ctx, u)
	assert.ErrorIs(t, err, store.ErrEmailExists)
}

func TestDeleteUserCascade(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u := newTestUser(t, "owner@example.com")
	require.NoError(t, s.CreateUser(ctx, u))

	// Give the user a recipe with an image, a tag, and an ingredient.
	r := &domain.Recipe{UserID: u.ID, Title: "Soup", TimeMinutes: 10, Price: "3.50", ImageFile: "abc.jpg"}
	r.ID = id.MustGenerate("rcp")
	r.InitTimestamps()
	require.NoError(t, s.CreateRecipe(ctx, r))

	tag, _, err := s.FindOrCreateTag(ctx, u.ID, "Vegan")
	require.NoError(t, err)
	require.NoError(t, s.AddTagToRecipe(ctx, r.ID, tag.ID))

	ing, _, err := s.FindOrCreateIngredient(ctx, u.ID, "Salt")
	require.NoError(t, err)
	require.NoError(t, s.AddIngredientToRecipe(ctx, r.ID, ing.ID))

	images, err := s.DeleteUserCascade(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc.jpg"}, images)

	_, err = s.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, store.ErrUserNotFound)
	_, err = s.GetRecipe(ctx, r.ID)
	assert.ErrorIs(t, err, store.ErrRecipeNotFound)
	_, err = s.GetTagByID(ctx, tag.ID)
	assert.ErrorIs(t, err, store.ErrTagNotFound)
	_, err = s.GetIngredientByID(ctx, ing.ID)
	assert.ErrorIs(t, err, store.ErrIngredientNotFound)

	// Email is free again.
	require.NoError(t, s.CreateUser(ctx, newTestUser(t, "owner@example.com")))
}

func TestDeleteUserCascade_DoesNotTouchOtherUsers(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	victim := newTestUser(t, "victim@example.com")
	survivor := newTestUser(t, "survivor@example.com")
	require.NoError(t, s.CreateUser(ctx, victim))
	require.NoError(t, s.CreateUser(ctx, survivor))

	tag, _, err := s.FindOrCreateTag(ctx, survivor.ID, "Keeper")
	require.NoError(t, err)

	_, err = s.DeleteUserCascade(ctx, victim.ID)
	require.NoError(t, err)

	got, err := s.GetTagByID(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, "Keeper", got.Name)
}
