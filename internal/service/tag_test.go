package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/platebook/platebook-server/internal/errors"
)

func TestTagService_ListTags_AssignedOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerUser(t, "cook@example.com")

	// "dinner" gets linked to a recipe, "unused" does not.
	_, err := env.recipes.CreateRecipe(ctx, user.ID, WriteRecipeRequest{
		Title: "Stew",
		Price: "7.00",
		Tags:  []TagInput{{Name: "dinner"}},
	})
	require.NoError(t, err)

	_, created, err := env.store.FindOrCreateTag(ctx, user.ID, "unused")
	require.NoError(t, err)
	require.True(t, created)

	all, err := env.tags.ListTags(ctx, user.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Ordered by name descending.
	assert.Equal(t, "unused", all[0].Name)
	assert.Equal(t, "dinner", all[1].Name)

	assigned, err := env.tags.ListTags(ctx, user.ID, "1")
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, "dinner", assigned[0].Name)

	zero, err := env.tags.ListTags(ctx, user.ID, "0")
	require.NoError(t, err)
	assert.Len(t, zero, 2)
}

func TestTagService_ListTags_BadAssignedOnly(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerUser(t, "cook@example.com")

	for _, raw := range []string{"2", "true", "yes"} {
		_, err := env.tags.ListTags(context.Background(), user.ID, raw)
		require.Error(t, err, "assigned_only=%s", raw)
		assert.ErrorIs(t, err, domainerrors.ErrValidation)
	}
}

func TestTagService_ListTags_ScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.registerUser(t, "alice@example.com")
	bob := env.registerUser(t, "bob@example.com")

	_, _, err := env.store.FindOrCreateTag(ctx, alice.ID, "thai")
	require.NoError(t, err)

	tags, err := env.tags.ListTags(ctx, bob.ID, "")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestTagService_UpdateTag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerUser(t, "cook@example.com")

	tag, _, err := env.store.FindOrCreateTag(ctx, user.ID, "breakfast")
	require.NoError(t, err)

	renamed, err := env.tags.UpdateTag(ctx, user.ID, tag.ID, UpdateTagRequest{Name: "brunch"})
	require.NoError(t, err)
	assert.Equal(t, "brunch", renamed.Name)
	assert.Equal(t, tag.ID, renamed.ID)

	// The old name is free again.
	_, created, err := env.store.FindOrCreateTag(ctx, user.ID, "breakfast")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestTagService_UpdateTag_NameConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerUser(t, "cook@example.com")

	_, _, err := env.store.FindOrCreateTag(ctx, user.ID, "vegan")
	require.NoError(t, err)
	tag, _, err := env.store.FindOrCreateTag(ctx, user.ID, "veggie")
	require.NoError(t, err)

	_, err = env.tags.UpdateTag(ctx, user.ID, tag.ID, UpdateTagRequest{Name: "vegan"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
}

func TestTagService_UpdateTag_OtherUsersTagIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.registerUser(t, "alice@example.com")
	bob := env.registerUser(t, "bob@example.com")

	tag, _, err := env.store.FindOrCreateTag(ctx, alice.ID, "thai")
	require.NoError(t, err)

	_, err = env.tags.UpdateTag(ctx, bob.ID, tag.ID, UpdateTagRequest{Name: "stolen"})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	err = env.tags.DeleteTag(ctx, bob.ID, tag.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestTagService_DeleteTag_DetachesFromRecipes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerUser(t, "cook@example.com")

	detail, err := env.recipes.CreateRecipe(ctx, user.ID, WriteRecipeRequest{
		Title: "Stew",
		Price: "7.00",
		Tags:  []TagInput{{Name: "dinner"}},
	})
	require.NoError(t, err)
	require.Len(t, detail.Tags, 1)

	require.NoError(t, env.tags.DeleteTag(ctx, user.ID, detail.Tags[0].ID))

	// The recipe survives with the tag detached.
	got, err := env.recipes.GetRecipe(ctx, user.ID, detail.Recipe.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}
