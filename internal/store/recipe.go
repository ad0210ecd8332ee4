package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/platebook/platebook-server/internal/domain"
)

// Key prefixes for recipe storage.
// Recipes are user-owned; the owner index makes user-scoped listing cheap.
const (
	recipePrefix        = "recipe:"            // recipe:{id} → Recipe JSON
	recipeByOwnerPrefix = "idx:recipes:owner:" // idx:recipes:owner:{userID}:{recipeID} → empty
)

// Recipe errors.
var (
	ErrRecipeNotFound = errors.New("recipe not found")
	ErrRecipeExists   = errors.New("recipe already exists")
)

// CreateRecipe creates a new recipe and its owner index entry.
func (s *Store) CreateRecipe(ctx context.Context, r *domain.Recipe) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(recipePrefix + r.ID)

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return ErrRecipeExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal recipe: %w", err)
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}

		ownerKey := []byte(fmt.Sprintf("%s%s:%s", recipeByOwnerPrefix, r.UserID, r.ID))
		return txn.Set(ownerKey, []byte{})
	})
}

// GetRecipe retrieves a recipe by ID.
func (s *Store) GetRecipe(ctx context.Context, recipeID string) (*domain.Recipe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var r domain.Recipe
	key := []byte(recipePrefix + recipeID)

	if err := s.get(key, &r); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}

	return &r, nil
}

// GetRecipeForOwner retrieves a recipe by ID, returning ErrRecipeNotFound
// unless it belongs to the given user. Rows owned by other users are
// indistinguishable from missing rows.
func (s *Store) GetRecipeForOwner(ctx context.Context, userID, recipeID string) (*domain.Recipe, error) {
	r, err := s.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, ErrRecipeNotFound
	}
	return r, nil
}

// UpdateRecipe updates an existing recipe. The owner is never changed.
func (s *Store) UpdateRecipe(ctx context.Context, r *domain.Recipe) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(recipePrefix + r.ID)

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrRecipeNotFound
			}
			return err
		}

		r.Touch()

		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal recipe: %w", err)
		}
		return txn.Set(key, data)
	})
}

// DeleteRecipe removes a recipe, its owner index entry, and all of its
// tag/ingredient link rows. Tags and ingredients themselves survive.
func (s *Store) DeleteRecipe(ctx context.Context, recipeID string) error {
	r, err := s.GetRecipe(ctx, recipeID)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(recipePrefix + recipeID)
		if err := txn.Delete(key); err != nil {
			return err
		}

		ownerKey := []byte(fmt.Sprintf("%s%s:%s", recipeByOwnerPrefix, r.UserID, recipeID))
		if err := txn.Delete(ownerKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := clearRecipeLinksInTxn(txn, recipeID, recipeTagsPrefix, tagRecipesPrefix); err != nil {
			return err
		}
		return clearRecipeLinksInTxn(txn, recipeID, recipeIngredientsPrefix, ingredientRecipesPrefix)
	})
}

// ListRecipesByOwner returns all recipes owned by a user, newest first.
// Ties on creation time fall back to ID so the order is stable.
func (s *Store) ListRecipesByOwner(ctx context.Context, userID string) ([]*domain.Recipe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := fmt.Sprintf("%s%s:", recipeByOwnerPrefix, userID)
	var recipeIDs []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			key := string(it.Item().Key())
			recipeIDs = append(recipeIDs, strings.TrimPrefix(key, prefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	recipes := make([]*domain.Recipe, 0, len(recipeIDs))
	for _, recipeID := range recipeIDs {
		r, err := s.GetRecipe(ctx, recipeID)
		if err != nil {
			continue // Skip dangling index entries.
		}
		recipes = append(recipes, r)
	}

	sortRecipesNewestFirst(recipes)

	return recipes, nil
}

// sortRecipesNewestFirst orders recipes by creation time descending,
// breaking ties on ID descending for a stable order.
func sortRecipesNewestFirst(recipes []*domain.Recipe) {
	sort.Slice(recipes, func(i, j int) bool {
		if !recipes[i].CreatedAt.Equal(recipes[j].CreatedAt) {
			return recipes[i].CreatedAt.After(recipes[j].CreatedAt)
		}
		return recipes[i].ID > recipes[j].ID
	})
}

// clearRecipeLinksInTxn deletes all link rows for one relation kind of a recipe,
// both the recipe-side and the entity-side index entries.
func clearRecipeLinksInTxn(txn *badger.Txn, recipeID, recipeSidePrefix, entitySidePrefix string) error {
	prefix := []byte(fmt.Sprintf("%s%s:", recipeSidePrefix, recipeID))
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	var keysToDelete [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keyCopy := make([]byte, len(it.Item().Key()))
		copy(keyCopy, it.Item().Key())
		keysToDelete = append(keysToDelete, keyCopy)

		entityID := string(keyCopy[len(prefix):])
		reverseKey := []byte(fmt.Sprintf("%s%s:%s", entitySidePrefix, entityID, recipeID))
		keysToDelete = append(keysToDelete, reverseKey)
	}

	for _, k := range keysToDelete {
		if err := txn.Delete(k); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
	}

	return nil
}
