package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/platebook/platebook-server/internal/domain"
)

var (
	// ErrUserNotFound is returned when a user cannot be found by ID or email.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when attempting to create a user with an existing ID.
	ErrUserExists = errors.New("user already exists")
	// ErrEmailExists is returned when attempting to create a user with an email that's already in use.
	ErrEmailExists = errors.New("email already in use")
)

// CreateUser creates a new user account.
// The email index makes duplicate emails (case-insensitive) fail with ErrEmailExists.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	err := s.Users.Create(ctx, user.ID, user)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAlreadyExists) {
		// Distinguish ID collisions from email index conflicts.
		if strings.Contains(err.Error(), "index email") {
			return ErrEmailExists
		}
		return ErrUserExists
	}
	return fmt.Errorf("create user: %w", err)
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.Users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email address (case-insensitive).
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.Users.GetByIndex(ctx, "email", email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}
	return user, nil
}

// UpdateUser updates an existing user. A changed email is re-indexed;
// conflicts with another account surface as ErrEmailExists.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	user.Touch()

	err := s.Users.Update(ctx, user.ID, user)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return ErrUserNotFound
	}
	if errors.Is(err, ErrAlreadyExists) {
		return ErrEmailExists
	}
	return fmt.Errorf("update user: %w", err)
}

// DeleteUserCascade removes a user and everything the user owns:
// recipes (with their link rows), tags, and ingredients.
// Returns the image filenames of deleted recipes so the caller can
// remove the files from disk.
func (s *Store) DeleteUserCascade(ctx context.Context, userID string) ([]string, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	var imageFiles []string

	recipes, err := s.ListRecipesByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list recipes for delete: %w", err)
	}
	for _, r := range recipes {
		if r.HasImage() {
			imageFiles = append(imageFiles, r.ImageFile)
		}
		if err := s.DeleteRecipe(ctx, r.ID); err != nil && !errors.Is(err, ErrRecipeNotFound) {
			return nil, fmt.Errorf("delete recipe %s: %w", r.ID, err)
		}
	}

	tags, err := s.ListTagsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tags for delete: %w", err)
	}
	for _, t := range tags {
		if err := s.DeleteTag(ctx, t.ID); err != nil && !errors.Is(err, ErrTagNotFound) {
			return nil, fmt.Errorf("delete tag %s: %w", t.ID, err)
		}
	}

	ingredients, err := s.ListIngredientsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list ingredients for delete: %w", err)
	}
	for _, ing := range ingredients {
		if err := s.DeleteIngredient(ctx, ing.ID); err != nil && !errors.Is(err, ErrIngredientNotFound) {
			return nil, fmt.Errorf("delete ingredient %s: %w", ing.ID, err)
		}
	}

	if err := s.Users.Delete(ctx, userID); err != nil {
		return nil, fmt.Errorf("delete user: %w", err)
	}

	return imageFiles, nil
}

// normalizeEmail normalizes an email address for consistent lookups.
// Lowercases and trims whitespace.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
