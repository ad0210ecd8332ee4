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
	"github.com/platebook/platebook-server/internal/id"
)

// Key prefixes for ingredient storage. Same layout as tags.
const (
	ingredientPrefix        = "ingredient:"              // ingredient:{id} → Ingredient JSON
	ingredientByOwnerPrefix = "idx:ingredients:owner:"   // idx:ingredients:owner:{userID}:{ingredientID} → empty
	ingredientByNamePrefix  = "idx:ingredients:name:"    // idx:ingredients:name:{userID}:{name} → ingredientID
	ingredientRecipesPrefix = "idx:ingredients:recipes:" // idx:ingredients:recipes:{ingredientID}:{recipeID} → empty
	recipeIngredientsPrefix = "idx:recipes:ingredients:" // idx:recipes:ingredients:{recipeID}:{ingredientID} → empty
)

// Ingredient errors.
var (
	ErrIngredientNotFound = errors.New("ingredient not found")
	ErrIngredientExists   = errors.New("ingredient already exists")
)

// CreateIngredient creates a new ingredient for a user.
// Returns ErrIngredientExists if the user already has an ingredient with this name.
func (s *Store) CreateIngredient(ctx context.Context, ing *domain.Ingredient) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		nameKey := []byte(ingredientNameKey(ing.UserID, ing.Name))
		if _, err := txn.Get(nameKey); err == nil {
			return ErrIngredientExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		data, err := json.Marshal(ing)
		if err != nil {
			return err
		}
		key := []byte(ingredientPrefix + ing.ID)
		if err := txn.Set(key, data); err != nil {
			return err
		}

		ownerKey := []byte(fmt.Sprintf("%s%s:%s", ingredientByOwnerPrefix, ing.UserID, ing.ID))
		if err := txn.Set(ownerKey, []byte{}); err != nil {
			return err
		}

		return txn.Set(nameKey, []byte(ing.ID))
	})
}

// GetIngredientByID retrieves an ingredient by ID.
func (s *Store) GetIngredientByID(ctx context.Context, ingredientID string) (*domain.Ingredient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ing domain.Ingredient
	key := []byte(ingredientPrefix + ingredientID)

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrIngredientNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &ing)
		})
	})

	if err != nil {
		return nil, err
	}

	return &ing, nil
}

// GetIngredientForOwner retrieves an ingredient by ID, returning
// ErrIngredientNotFound unless it belongs to the given user.
func (s *Store) GetIngredientForOwner(ctx context.Context, userID, ingredientID string) (*domain.Ingredient, error) {
	ing, err := s.GetIngredientByID(ctx, ingredientID)
	if err != nil {
		return nil, err
	}
	if ing.UserID != userID {
		return nil, ErrIngredientNotFound
	}
	return ing, nil
}

// GetIngredientByName retrieves a user's ingredient by exact name.
func (s *Store) GetIngredientByName(ctx context.Context, userID, name string) (*domain.Ingredient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ingredientID string
	nameKey := []byte(ingredientNameKey(userID, name))

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nameKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrIngredientNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			ingredientID = string(val)
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return s.GetIngredientByID(ctx, ingredientID)
}

// ListIngredientsByOwner returns all ingredients owned by a user, ordered by name descending.
func (s *Store) ListIngredientsByOwner(ctx context.Context, userID string) ([]*domain.Ingredient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := fmt.Sprintf("%s%s:", ingredientByOwnerPrefix, userID)
	var ingredientIDs []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			key := string(it.Item().Key())
			ingredientIDs = append(ingredientIDs, strings.TrimPrefix(key, prefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ingredients := make([]*domain.Ingredient, 0, len(ingredientIDs))
	for _, ingredientID := range ingredientIDs {
		ing, err := s.GetIngredientByID(ctx, ingredientID)
		if err != nil {
			continue // Skip dangling index entries.
		}
		ingredients = append(ingredients, ing)
	}

	sort.Slice(ingredients, func(i, j int) bool {
		if ingredients[i].Name != ingredients[j].Name {
			return ingredients[i].Name > ingredients[j].Name
		}
		return ingredients[i].ID > ingredients[j].ID
	})

	return ingredients, nil
}

// UpdateIngredient updates an existing ingredient, re-indexing the name if it changed.
// Returns ErrIngredientExists if the new name collides with another ingredient of the same user.
func (s *Store) UpdateIngredient(ctx context.Context, ing *domain.Ingredient) error {
	old, err := s.GetIngredientByID(ctx, ing.ID)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if old.Name != ing.Name {
			newNameKey := []byte(ingredientNameKey(ing.UserID, ing.Name))
			if _, err := txn.Get(newNameKey); err == nil {
				return ErrIngredientExists
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			oldNameKey := []byte(ingredientNameKey(old.UserID, old.Name))
			if err := txn.Delete(oldNameKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Set(newNameKey, []byte(ing.ID)); err != nil {
				return err
			}
		}

		ing.Touch()

		data, err := json.Marshal(ing)
		if err != nil {
			return err
		}
		return txn.Set([]byte(ingredientPrefix+ing.ID), data)
	})
}

// DeleteIngredient hard-deletes an ingredient, its indexes, and its recipe link rows.
// Recipes keep their other ingredients.
func (s *Store) DeleteIngredient(ctx context.Context, ingredientID string) error {
	ing, err := s.GetIngredientByID(ctx, ingredientID)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(ingredientPrefix + ingredientID)
		if err := txn.Delete(key); err != nil {
			return err
		}

		ownerKey := []byte(fmt.Sprintf("%s%s:%s", ingredientByOwnerPrefix, ing.UserID, ingredientID))
		if err := txn.Delete(ownerKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		nameKey := []byte(ingredientNameKey(ing.UserID, ing.Name))
		if err := txn.Delete(nameKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		return clearEntityLinksInTxn(txn, ingredientID, ingredientRecipesPrefix, recipeIngredientsPrefix)
	})
}

// FindOrCreateIngredient atomically finds an existing ingredient by name or creates a new one.
// Returns (ingredient, created, error) where created is true if a new ingredient was made.
func (s *Store) FindOrCreateIngredient(ctx context.Context, userID, name string) (*domain.Ingredient, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	// Try to find existing ingredient first (optimistic read).
	existing, err := s.GetIngredientByName(ctx, userID, name)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrIngredientNotFound) {
		return nil, false, err
	}

	ingredientID, err := id.Generate("ing")
	if err != nil {
		return nil, false, err
	}

	ing := &domain.Ingredient{
		UserID: userID,
		Name:   name,
	}
	ing.ID = ingredientID
	ing.InitTimestamps()

	if err := s.CreateIngredient(ctx, ing); err != nil {
		if errors.Is(err, ErrIngredientExists) {
			// Race condition: another goroutine created it.
			existing, err := s.GetIngredientByName(ctx, userID, name)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	return ing, true, nil
}

// AddIngredientToRecipe links an ingredient to a recipe. Idempotent.
func (s *Store) AddIngredientToRecipe(ctx context.Context, recipeID, ingredientID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		irKey := []byte(fmt.Sprintf("%s%s:%s", ingredientRecipesPrefix, ingredientID, recipeID))
		_, err := txn.Get(irKey)
		if err == nil {
			// Already exists, idempotent success.
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		// Forward index: ingredient -> recipe.
		if err := txn.Set(irKey, []byte{}); err != nil {
			return err
		}

		// Reverse index: recipe -> ingredient.
		riKey := []byte(fmt.Sprintf("%s%s:%s", recipeIngredientsPrefix, recipeID, ingredientID))
		return txn.Set(riKey, []byte{})
	})
}

// RemoveIngredientFromRecipe unlinks an ingredient from a recipe. Idempotent.
func (s *Store) RemoveIngredientFromRecipe(ctx context.Context, recipeID, ingredientID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		irKey := []byte(fmt.Sprintf("%s%s:%s", ingredientRecipesPrefix, ingredientID, recipeID))
		if err := txn.Delete(irKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		riKey := []byte(fmt.Sprintf("%s%s:%s", recipeIngredientsPrefix, recipeID, ingredientID))
		if err := txn.Delete(riKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		return nil
	})
}

// ClearRecipeIngredients removes all ingredient links from a recipe. The ingredients survive.
func (s *Store) ClearRecipeIngredients(ctx context.Context, recipeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return clearRecipeLinksInTxn(txn, recipeID, recipeIngredientsPrefix, ingredientRecipesPrefix)
	})
}

// GetIngredientIDsForRecipe returns the IDs of all ingredients linked to a recipe.
func (s *Store) GetIngredientIDsForRecipe(ctx context.Context, recipeID string) ([]string, error) {
	return s.scanLinkedIDs(ctx, recipeIngredientsPrefix, recipeID)
}

// GetRecipeIDsForIngredient returns the IDs of all recipes linked to an ingredient.
func (s *Store) GetRecipeIDsForIngredient(ctx context.Context, ingredientID string) ([]string, error) {
	return s.scanLinkedIDs(ctx, ingredientRecipesPrefix, ingredientID)
}

// GetIngredientsForRecipe returns all ingredients linked to a recipe, ordered by name descending.
func (s *Store) GetIngredientsForRecipe(ctx context.Context, recipeID string) ([]*domain.Ingredient, error) {
	ingredientIDs, err := s.GetIngredientIDsForRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	ingredients := make([]*domain.Ingredient, 0, len(ingredientIDs))
	for _, ingredientID := range ingredientIDs {
		ing, err := s.GetIngredientByID(ctx, ingredientID)
		if err != nil {
			continue // Skip dangling links.
		}
		ingredients = append(ingredients, ing)
	}

	sort.Slice(ingredients, func(i, j int) bool {
		return ingredients[i].Name > ingredients[j].Name
	})

	return ingredients, nil
}

// ingredientNameKey builds the per-user name index key for an ingredient.
func ingredientNameKey(userID, name string) string {
	return fmt.Sprintf("%s%s:%s", ingredientByNamePrefix, userID, name)
}
