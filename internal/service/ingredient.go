package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/platebook/platebook-server/internal/domain"
	domainerrors "github.com/platebook/platebook-server/internal/errors"
	"github.com/platebook/platebook-server/internal/store"
)

// IngredientService manages a user's ingredients. Like tags, ingredients
// are only ever created through recipe nesting.
type IngredientService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewIngredientService creates a new ingredient service.
func NewIngredientService(store *store.Store, logger *slog.Logger) *IngredientService {
	return &IngredientService{
		store:  store,
		logger: logger,
	}
}

// UpdateIngredientRequest contains an ingredient rename.
type UpdateIngredientRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// ListIngredients returns the acting user's ingredients, ordered by name
// descending. assignedOnlyParam is the raw assigned_only query value;
// "1" excludes ingredients with zero recipe links.
func (s *IngredientService) ListIngredients(ctx context.Context, userID, assignedOnlyParam string) ([]*domain.Ingredient, error) {
	assignedOnly, err := parseAssignedOnly(assignedOnlyParam)
	if err != nil {
		return nil, err
	}

	ingredients, err := s.store.ListIngredientsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}

	if !assignedOnly {
		return ingredients, nil
	}

	assigned := ingredients[:0]
	for _, ing := range ingredients {
		recipeIDs, err := s.store.GetRecipeIDsForIngredient(ctx, ing.ID)
		if err != nil {
			return nil, fmt.Errorf("count ingredient links: %w", err)
		}
		if len(recipeIDs) > 0 {
			assigned = append(assigned, ing)
		}
	}

	return assigned, nil
}

// UpdateIngredient renames one of the acting user's ingredients.
func (s *IngredientService) UpdateIngredient(ctx context.Context, userID, ingredientID string, req UpdateIngredientRequest) (*domain.Ingredient, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	ing, err := s.store.GetIngredientForOwner(ctx, userID, ingredientID)
	if err != nil {
		if errors.Is(err, store.ErrIngredientNotFound) {
			return nil, domainerrors.NotFound("ingredient not found")
		}
		return nil, fmt.Errorf("get ingredient: %w", err)
	}

	ing.Name = req.Name

	if err := s.store.UpdateIngredient(ctx, ing); err != nil {
		if errors.Is(err, store.ErrIngredientExists) {
			return nil, domainerrors.AlreadyExists("ingredient name already in use")
		}
		return nil, fmt.Errorf("update ingredient: %w", err)
	}

	return ing, nil
}

// DeleteIngredient removes one of the acting user's ingredients and its
// recipe links.
func (s *IngredientService) DeleteIngredient(ctx context.Context, userID, ingredientID string) error {
	if _, err := s.store.GetIngredientForOwner(ctx, userID, ingredientID); err != nil {
		if errors.Is(err, store.ErrIngredientNotFound) {
			return domainerrors.NotFound("ingredient not found")
		}
		return fmt.Errorf("get ingredient: %w", err)
	}

	if err := s.store.DeleteIngredient(ctx, ingredientID); err != nil {
		return fmt.Errorf("delete ingredient: %w", err)
	}

	s.logger.Info("Ingredient deleted", "ingredient_id", ingredientID, "user_id", userID)

	return nil
}
