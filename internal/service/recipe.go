package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/platebook/platebook-server/internal/domain"
	domainerrors "github.com/platebook/platebook-server/internal/errors"
	"github.com/platebook/platebook-server/internal/id"
	"github.com/platebook/platebook-server/internal/media/images"
	"github.com/platebook/platebook-server/internal/store"
)

// RecipeService orchestrates recipe CRUD, the embedded tag/ingredient
// synchronizer, and image attachment. Every operation takes the acting
// user's ID explicitly; nothing is ever resolved outside that user's rows.
type RecipeService struct {
	store  *store.Store
	images *images.Storage
	logger *slog.Logger
}

// NewRecipeService creates a new recipe service.
func NewRecipeService(store *store.Store, images *images.Storage, logger *slog.Logger) *RecipeService {
	return &RecipeService{
		store:  store,
		images: images,
		logger: logger,
	}
}

// TagInput is an embedded tag payload on a recipe write.
type TagInput struct {
	Name string `json:"name" validate:"required,max=50"`
}

// IngredientInput is an embedded ingredient payload on a recipe write.
type IngredientInput struct {
	Name string `json:"name" validate:"required,max=255"`
}

// WriteRecipeRequest contains the full recipe payload, used for create
// and full update. Absent tag/ingredient lists mean "no items".
type WriteRecipeRequest struct {
	Title       string            `json:"title" validate:"max=255"`
	Description string            `json:"description"`
	TimeMinutes int               `json:"time_minutes" validate:"gte=0"`
	Price       string            `json:"price" validate:"required,price"`
	Link        string            `json:"link" validate:"max=255"`
	Tags        []TagInput        `json:"tags" validate:"dive"`
	Ingredients []IngredientInput `json:"ingredients" validate:"dive"`
}

// PatchRecipeRequest contains a partial recipe update.
// Nil scalar fields are left unchanged. A nil Tags/Ingredients pointer
// leaves the links untouched; a non-nil (even empty) list clears the
// existing links and syncs the given ones.
type PatchRecipeRequest struct {
	Title       *string            `json:"title" validate:"omitempty,max=255"`
	Description *string            `json:"description"`
	TimeMinutes *int               `json:"time_minutes" validate:"omitempty,gte=0"`
	Price       *string            `json:"price" validate:"omitempty,price"`
	Link        *string            `json:"link" validate:"omitempty,max=255"`
	Tags        *[]TagInput        `json:"tags" validate:"omitempty,dive"`
	Ingredients *[]IngredientInput `json:"ingredients" validate:"omitempty,dive"`
}

// RecipeDetail is a recipe joined with its linked tags and ingredients.
type RecipeDetail struct {
	Recipe      *domain.Recipe
	Tags        []*domain.Tag
	Ingredients []*domain.Ingredient
}

// ListRecipes returns the acting user's recipes, newest first.
// tagsParam and ingredientsParam are raw comma-separated ID lists from
// the query string; within each list the semantics are a union, across
// the two lists an intersection.
func (s *RecipeService) ListRecipes(ctx context.Context, userID, tagsParam, ingredientsParam string) ([]*domain.Recipe, error) {
	tagIDs, err := parseIDList("tags", tagsParam)
	if err != nil {
		return nil, err
	}
	ingredientIDs, err := parseIDList("ingredients", ingredientsParam)
	if err != nil {
		return nil, err
	}

	// The owner listing is already sorted and deduplicated; filters only
	// narrow it down, so a recipe matching several requested tags still
	// appears once.
	recipes, err := s.store.ListRecipesByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}

	if tagIDs != nil {
		matched, err := s.recipeIDsLinkedToAny(ctx, tagIDs, s.store.GetRecipeIDsForTag)
		if err != nil {
			return nil, err
		}
		recipes = filterRecipes(recipes, matched)
	}

	if ingredientIDs != nil {
		matched, err := s.recipeIDsLinkedToAny(ctx, ingredientIDs, s.store.GetRecipeIDsForIngredient)
		if err != nil {
			return nil, err
		}
		recipes = filterRecipes(recipes, matched)
	}

	return recipes, nil
}

// GetRecipe returns a recipe with its tags and ingredients.
// Recipes owned by other users are indistinguishable from missing ones.
func (s *RecipeService) GetRecipe(ctx context.Context, userID, recipeID string) (*RecipeDetail, error) {
	recipe, err := s.store.GetRecipeForOwner(ctx, userID, recipeID)
	if err != nil {
		if errors.Is(err, store.ErrRecipeNotFound) {
			return nil, domainerrors.NotFound("recipe not found")
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}

	return s.loadDetail(ctx, recipe)
}

// CreateRecipe creates a recipe from the payload's scalar fields, then
// runs the synchronizer over the embedded tag and ingredient lists.
func (s *RecipeService) CreateRecipe(ctx context.Context, userID string, req WriteRecipeRequest) (*RecipeDetail, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	recipeID, err := id.Generate("rcp")
	if err != nil {
		return nil, fmt.Errorf("generate recipe ID: %w", err)
	}

	recipe := &domain.Recipe{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		TimeMinutes: req.TimeMinutes,
		Price:       req.Price,
		Link:        req.Link,
	}
	recipe.ID = recipeID
	recipe.InitTimestamps()

	if err := s.store.CreateRecipe(ctx, recipe); err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}

	if err := s.syncTags(ctx, userID, recipeID, req.Tags); err != nil {
		return nil, err
	}
	if err := s.syncIngredients(ctx, userID, recipeID, req.Ingredients); err != nil {
		return nil, err
	}

	s.logger.Info("Recipe created",
		"recipe_id", recipeID,
		"user_id", userID,
		"tags", len(req.Tags),
		"ingredients", len(req.Ingredients),
	)

	return s.loadDetail(ctx, recipe)
}

// ReplaceRecipe performs a full update: all scalar fields are taken from
// the payload and both link sets are cleared and re-synced from the
// given lists (an absent list ends up empty).
func (s *RecipeService) ReplaceRecipe(ctx context.Context, userID, recipeID string, req WriteRecipeRequest) (*RecipeDetail, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	recipe, err := s.store.GetRecipeForOwner(ctx, userID, recipeID)
	if err != nil {
		if errors.Is(err, store.ErrRecipeNotFound) {
			return nil, domainerrors.NotFound("recipe not found")
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}

	// The owner and image are never touched by a write payload.
	recipe.Title = req.Title
	recipe.Description = req.Description
	recipe.TimeMinutes = req.TimeMinutes
	recipe.Price = req.Price
	recipe.Link = req.Link

	if err := s.store.UpdateRecipe(ctx, recipe); err != nil {
		return nil, fmt.Errorf("update recipe: %w", err)
	}

	if err := s.resyncTags(ctx, userID, recipeID, req.Tags); err != nil {
		return nil, err
	}
	if err := s.resyncIngredients(ctx, userID, recipeID, req.Ingredients); err != nil {
		return nil, err
	}

	return s.loadDetail(ctx, recipe)
}

// PatchRecipe performs a partial update. Scalar fields overlay only when
// present; each link kind is cleared and re-synced only when its list
// key is present in the payload.
func (s *RecipeService) PatchRecipe(ctx context.Context, userID, recipeID string, req PatchRecipeRequest) (*RecipeDetail, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	recipe, err := s.store.GetRecipeForOwner(ctx, userID, recipeID)
	if err != nil {
		if errors.Is(err, store.ErrRecipeNotFound) {
			return nil, domainerrors.NotFound("recipe not found")
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}

	if req.Title != nil {
		recipe.Title = *req.Title
	}
	if req.Description != nil {
		recipe.Description = *req.Description
	}
	if req.TimeMinutes != nil {
		recipe.TimeMinutes = *req.TimeMinutes
	}
	if req.Price != nil {
		recipe.Price = *req.Price
	}
	if req.Link != nil {
		recipe.Link = *req.Link
	}

	if err := s.store.UpdateRecipe(ctx, recipe); err != nil {
		return nil, fmt.Errorf("update recipe: %w", err)
	}

	if req.Tags != nil {
		if err := s.resyncTags(ctx, userID, recipeID, *req.Tags); err != nil {
			return nil, err
		}
	}
	if req.Ingredients != nil {
		if err := s.resyncIngredients(ctx, userID, recipeID, *req.Ingredients); err != nil {
			return nil, err
		}
	}

	return s.loadDetail(ctx, recipe)
}

// DeleteRecipe removes a recipe and its link rows. Linked tags and
// ingredients survive. The image file, if any, is removed best effort.
func (s *RecipeService) DeleteRecipe(ctx context.Context, userID, recipeID string) error {
	recipe, err := s.store.GetRecipeForOwner(ctx, userID, recipeID)
	if err != nil {
		if errors.Is(err, store.ErrRecipeNotFound) {
			return domainerrors.NotFound("recipe not found")
		}
		return fmt.Errorf("get recipe: %w", err)
	}

	if err := s.store.DeleteRecipe(ctx, recipeID); err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}

	if recipe.HasImage() {
		if err := s.images.Delete(recipe.ImageFile); err != nil {
			s.logger.Warn("Failed to delete recipe image",
				"recipe_id", recipeID,
				"filename", recipe.ImageFile,
				"error", err,
			)
		}
	}

	s.logger.Info("Recipe deleted", "recipe_id", recipeID, "user_id", userID)

	return nil
}

// AttachImage validates and stores an uploaded image for a recipe,
// replacing any previous one. The stored filename is a fresh UUID with
// the upload's original extension; non-image payloads are rejected.
func (s *RecipeService) AttachImage(ctx context.Context, userID, recipeID, uploadName string, data []byte) (*domain.Recipe, error) {
	recipe, err := s.store.GetRecipeForOwner(ctx, userID, recipeID)
	if err != nil {
		if errors.Is(err, store.ErrRecipeNotFound) {
			return nil, domainerrors.NotFound("recipe not found")
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}

	mimeType := images.DetectType(data)
	if mimeType == "" {
		return nil, domainerrors.Validation("upload is not a supported image (JPEG, PNG, GIF, WebP)")
	}

	// Keep the uploader's extension; fall back to the detected type when
	// the original filename has none.
	ext := strings.TrimPrefix(path.Ext(uploadName), ".")
	if ext == "" {
		ext = images.ExtensionFor(mimeType)
	}

	filename, err := s.images.SaveNew(ext, data)
	if err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}

	previous := recipe.ImageFile
	recipe.ImageFile = filename

	if err := s.store.UpdateRecipe(ctx, recipe); err != nil {
		// Don't leave the new file orphaned.
		if delErr := s.images.Delete(filename); delErr != nil {
			s.logger.Warn("Failed to clean up image after failed update", "filename", filename, "error", delErr)
		}
		return nil, fmt.Errorf("update recipe: %w", err)
	}

	if previous != "" {
		if err := s.images.Delete(previous); err != nil {
			s.logger.Warn("Failed to delete replaced recipe image",
				"recipe_id", recipeID,
				"filename", previous,
				"error", err,
			)
		}
	}

	s.logger.Info("Recipe image attached",
		"recipe_id", recipeID,
		"filename", filename,
		"type", mimeType,
	)

	return recipe, nil
}

// GetImage returns a recipe's stored image data and its MIME type.
func (s *RecipeService) GetImage(ctx context.Context, userID, recipeID string) ([]byte, string, error) {
	recipe, err := s.store.GetRecipeForOwner(ctx, userID, recipeID)
	if err != nil {
		if errors.Is(err, store.ErrRecipeNotFound) {
			return nil, "", domainerrors.NotFound("recipe not found")
		}
		return nil, "", fmt.Errorf("get recipe: %w", err)
	}

	if !recipe.HasImage() {
		return nil, "", domainerrors.NotFound("recipe has no image")
	}

	data, err := s.images.Get(recipe.ImageFile)
	if err != nil {
		return nil, "", domainerrors.NotFound("recipe image not found").WithCause(err)
	}

	mimeType := images.DetectType(data)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return data, mimeType, nil
}

// syncTags resolves each embedded tag payload to an existing-or-new tag
// owned by the acting user and links it to the recipe.
// Duplicate names within one payload resolve to the same row, linked once.
// Existing rows are never mutated, only found and linked.
func (s *RecipeService) syncTags(ctx context.Context, userID, recipeID string, items []TagInput) error {
	for _, item := range items {
		tag, _, err := s.store.FindOrCreateTag(ctx, userID, strings.TrimSpace(item.Name))
		if err != nil {
			return fmt.Errorf("resolve tag %q: %w", item.Name, err)
		}
		if err := s.store.AddTagToRecipe(ctx, recipeID, tag.ID); err != nil {
			return fmt.Errorf("link tag %q: %w", item.Name, err)
		}
	}
	return nil
}

// syncIngredients mirrors syncTags for ingredients.
func (s *RecipeService) syncIngredients(ctx context.Context, userID, recipeID string, items []IngredientInput) error {
	for _, item := range items {
		ing, _, err := s.store.FindOrCreateIngredient(ctx, userID, strings.TrimSpace(item.Name))
		if err != nil {
			return fmt.Errorf("resolve ingredient %q: %w", item.Name, err)
		}
		if err := s.store.AddIngredientToRecipe(ctx, recipeID, ing.ID); err != nil {
			return fmt.Errorf("link ingredient %q: %w", item.Name, err)
		}
	}
	return nil
}

// resyncTags clears all tag links and syncs the given list.
// An empty list ends with no links, the documented way to detach everything.
func (s *RecipeService) resyncTags(ctx context.Context, userID, recipeID string, items []TagInput) error {
	if err := s.store.ClearRecipeTags(ctx, recipeID); err != nil {
		return fmt.Errorf("clear recipe tags: %w", err)
	}
	return s.syncTags(ctx, userID, recipeID, items)
}

// resyncIngredients mirrors resyncTags for ingredients.
func (s *RecipeService) resyncIngredients(ctx context.Context, userID, recipeID string, items []IngredientInput) error {
	if err := s.store.ClearRecipeIngredients(ctx, recipeID); err != nil {
		return fmt.Errorf("clear recipe ingredients: %w", err)
	}
	return s.syncIngredients(ctx, userID, recipeID, items)
}

// loadDetail joins a recipe with its linked tags and ingredients.
func (s *RecipeService) loadDetail(ctx context.Context, recipe *domain.Recipe) (*RecipeDetail, error) {
	tags, err := s.store.GetTagsForRecipe(ctx, recipe.ID)
	if err != nil {
		return nil, fmt.Errorf("load recipe tags: %w", err)
	}
	ingredients, err := s.store.GetIngredientsForRecipe(ctx, recipe.ID)
	if err != nil {
		return nil, fmt.Errorf("load recipe ingredients: %w", err)
	}

	return &RecipeDetail{
		Recipe:      recipe,
		Tags:        tags,
		Ingredients: ingredients,
	}, nil
}

// recipeIDsLinkedToAny returns the set of recipe IDs linked to at least
// one of the given entity IDs.
func (s *RecipeService) recipeIDsLinkedToAny(ctx context.Context, entityIDs []string, linked func(context.Context, string) ([]string, error)) (map[string]bool, error) {
	matched := make(map[string]bool)
	for _, entityID := range entityIDs {
		recipeIDs, err := linked(ctx, entityID)
		if err != nil {
			return nil, fmt.Errorf("resolve filter links: %w", err)
		}
		for _, recipeID := range recipeIDs {
			matched[recipeID] = true
		}
	}
	return matched, nil
}

// filterRecipes keeps only recipes whose ID is in the matched set,
// preserving order.
func filterRecipes(recipes []*domain.Recipe, matched map[string]bool) []*domain.Recipe {
	filtered := recipes[:0]
	for _, r := range recipes {
		if matched[r.ID] {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
