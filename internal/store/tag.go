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

// Key prefixes for tag storage.
// Tags are user-owned; the name index enforces per-user name uniqueness.
const (
	tagPrefix        = "tag:"              // tag:{id} → Tag JSON
	tagByOwnerPrefix = "idx:tags:owner:"   // idx:tags:owner:{userID}:{tagID} → empty
	tagByNamePrefix  = "idx:tags:name:"    // idx:tags:name:{userID}:{name} → tagID
	tagRecipesPrefix = "idx:tags:recipes:" // idx:tags:recipes:{tagID}:{recipeID} → empty
	recipeTagsPrefix = "idx:recipes:tags:" // idx:recipes:tags:{recipeID}:{tagID} → empty
)

// Tag errors.
var (
	ErrTagNotFound = errors.New("tag not found")
	ErrTagExists   = errors.New("tag already exists")
)

// CreateTag creates a new tag for a user.
// Returns ErrTagExists if the user already has a tag with this name.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		// Per-user name uniqueness.
		nameKey := []byte(tagNameKey(t.UserID, t.Name))
		if _, err := txn.Get(nameKey); err == nil {
			return ErrTagExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		key := []byte(tagPrefix + t.ID)
		if err := txn.Set(key, data); err != nil {
			return err
		}

		ownerKey := []byte(fmt.Sprintf("%s%s:%s", tagByOwnerPrefix, t.UserID, t.ID))
		if err := txn.Set(ownerKey, []byte{}); err != nil {
			return err
		}

		return txn.Set(nameKey, []byte(t.ID))
	})
}

// GetTagByID retrieves a tag by ID.
func (s *Store) GetTagByID(ctx context.Context, tagID string) (*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var t domain.Tag
	key := []byte(tagPrefix + tagID)

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTagNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &t)
		})
	})

	if err != nil {
		return nil, err
	}

	return &t, nil
}

// GetTagForOwner retrieves a tag by ID, returning ErrTagNotFound unless
// it belongs to the given user.
func (s *Store) GetTagForOwner(ctx context.Context, userID, tagID string) (*domain.Tag, error) {
	t, err := s.GetTagByID(ctx, tagID)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, ErrTagNotFound
	}
	return t, nil
}

// GetTagByName retrieves a user's tag by exact name.
func (s *Store) GetTagByName(ctx context.Context, userID, name string) (*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var tagID string
	nameKey := []byte(tagNameKey(userID, name))

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nameKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTagNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			tagID = string(val)
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return s.GetTagByID(ctx, tagID)
}

// ListTagsByOwner returns all tags owned by a user, ordered by name descending.
func (s *Store) ListTagsByOwner(ctx context.Context, userID string) ([]*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := fmt.Sprintf("%s%s:", tagByOwnerPrefix, userID)
	var tagIDs []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			key := string(it.Item().Key())
			tagIDs = append(tagIDs, strings.TrimPrefix(key, prefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tags := make([]*domain.Tag, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		t, err := s.GetTagByID(ctx, tagID)
		if err != nil {
			continue // Skip dangling index entries.
		}
		tags = append(tags, t)
	}

	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Name != tags[j].Name {
			return tags[i].Name > tags[j].Name
		}
		return tags[i].ID > tags[j].ID
	})

	return tags, nil
}

// UpdateTag updates an existing tag, re-indexing the name if it changed.
// Returns ErrTagExists if the new name collides with another tag of the same user.
func (s *Store) UpdateTag(ctx context.Context, t *domain.Tag) error {
	old, err := s.GetTagByID(ctx, t.ID)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if old.Name != t.Name {
			newNameKey := []byte(tagNameKey(t.UserID, t.Name))
			if _, err := txn.Get(newNameKey); err == nil {
				return ErrTagExists
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			oldNameKey := []byte(tagNameKey(old.UserID, old.Name))
			if err := txn.Delete(oldNameKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Set(newNameKey, []byte(t.ID)); err != nil {
				return err
			}
		}

		t.Touch()

		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		return txn.Set([]byte(tagPrefix+t.ID), data)
	})
}

// DeleteTag hard-deletes a tag, its indexes, and its recipe link rows.
// Recipes keep their other tags.
func (s *Store) DeleteTag(ctx context.Context, tagID string) error {
	t, err := s.GetTagByID(ctx, tagID)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(tagPrefix + tagID)
		if err := txn.Delete(key); err != nil {
			return err
		}

		ownerKey := []byte(fmt.Sprintf("%s%s:%s", tagByOwnerPrefix, t.UserID, tagID))
		if err := txn.Delete(ownerKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		nameKey := []byte(tagNameKey(t.UserID, t.Name))
		if err := txn.Delete(nameKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		return clearEntityLinksInTxn(txn, tagID, tagRecipesPrefix, recipeTagsPrefix)
	})
}

// FindOrCreateTag atomically finds an existing tag by name or creates a new one.
// Returns (tag, created, error) where created is true if a new tag was made.
func (s *Store) FindOrCreateTag(ctx context.Context, userID, name string) (*domain.Tag, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	// Try to find existing tag first (optimistic read).
	existing, err := s.GetTagByName(ctx, userID, name)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrTagNotFound) {
		return nil, false, err
	}

	// Tag doesn't exist, create it.
	tagID, err := id.Generate("tag")
	if err != nil {
		return nil, false, err
	}

	t := &domain.Tag{
		UserID: userID,
		Name:   name,
	}
	t.ID = tagID
	t.InitTimestamps()

	if err := s.CreateTag(ctx, t); err != nil {
		if errors.Is(err, ErrTagExists) {
			// Race condition: another goroutine created it.
			existing, err := s.GetTagByName(ctx, userID, name)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	return t, true, nil
}

// AddTagToRecipe links a tag to a recipe. Idempotent.
func (s *Store) AddTagToRecipe(ctx context.Context, recipeID, tagID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		// Check if relationship already exists.
		trKey := []byte(fmt.Sprintf("%s%s:%s", tagRecipesPrefix, tagID, recipeID))
		_, err := txn.Get(trKey)
		if err == nil {
			// Already exists, idempotent success.
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		// Forward index: tag -> recipe.
		if err := txn.Set(trKey, []byte{}); err != nil {
			return err
		}

		// Reverse index: recipe -> tag.
		rtKey := []byte(fmt.Sprintf("%s%s:%s", recipeTagsPrefix, recipeID, tagID))
		return txn.Set(rtKey, []byte{})
	})
}

// RemoveTagFromRecipe unlinks a tag from a recipe. Idempotent.
func (s *Store) RemoveTagFromRecipe(ctx context.Context, recipeID, tagID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		trKey := []byte(fmt.Sprintf("%s%s:%s", tagRecipesPrefix, tagID, recipeID))
		if err := txn.Delete(trKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		rtKey := []byte(fmt.Sprintf("%s%s:%s", recipeTagsPrefix, recipeID, tagID))
		if err := txn.Delete(rtKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		return nil
	})
}

// ClearRecipeTags removes all tag links from a recipe. The tags survive.
func (s *Store) ClearRecipeTags(ctx context.Context, recipeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return clearRecipeLinksInTxn(txn, recipeID, recipeTagsPrefix, tagRecipesPrefix)
	})
}

// GetTagIDsForRecipe returns the IDs of all tags linked to a recipe.
func (s *Store) GetTagIDsForRecipe(ctx context.Context, recipeID string) ([]string, error) {
	return s.scanLinkedIDs(ctx, recipeTagsPrefix, recipeID)
}

// GetRecipeIDsForTag returns the IDs of all recipes linked to a tag.
func (s *Store) GetRecipeIDsForTag(ctx context.Context, tagID string) ([]string, error) {
	return s.scanLinkedIDs(ctx, tagRecipesPrefix, tagID)
}

// GetTagsForRecipe returns all tags linked to a recipe, ordered by name descending.
func (s *Store) GetTagsForRecipe(ctx context.Context, recipeID string) ([]*domain.Tag, error) {
	tagIDs, err := s.GetTagIDsForRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	tags := make([]*domain.Tag, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		t, err := s.GetTagByID(ctx, tagID)
		if err != nil {
			continue // Skip dangling links.
		}
		tags = append(tags, t)
	}

	sort.Slice(tags, func(i, j int) bool {
		return tags[i].Name > tags[j].Name
	})

	return tags, nil
}

// tagNameKey builds the per-user name index key for a tag.
func tagNameKey(userID, name string) string {
	return fmt.Sprintf("%s%s:%s", tagByNamePrefix, userID, name)
}

// scanLinkedIDs returns the trailing IDs of all link rows under {prefix}{ownID}:.
func (s *Store) scanLinkedIDs(ctx context.Context, linkPrefix, ownID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := fmt.Sprintf("%s%s:", linkPrefix, ownID)
	var ids []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			key := string(it.Item().Key())
			ids = append(ids, strings.TrimPrefix(key, prefix))
		}
		return nil
	})

	return ids, err
}

// clearEntityLinksInTxn deletes all link rows for one tag/ingredient,
// both the entity-side and the recipe-side index entries.
func clearEntityLinksInTxn(txn *badger.Txn, entityID, entitySidePrefix, recipeSidePrefix string) error {
	prefix := []byte(fmt.Sprintf("%s%s:", entitySidePrefix, entityID))
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

		recipeID := string(keyCopy[len(prefix):])
		reverseKey := []byte(fmt.Sprintf("%s%s:%s", recipeSidePrefix, recipeID, entityID))
		keysToDelete = append(keysToDelete, reverseKey)
	}

	for _, k := range keysToDelete {
		if err := txn.Delete(k); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
	}

	return nil
}
