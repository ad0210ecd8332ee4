package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/platebook/platebook-server/internal/domain"
	"github.com/platebook/platebook-server/internal/service"
)

func (s *Server) registerRecipeRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listRecipes",
		Method:      http.MethodGet,
		Path:        "/api/v1/recipes",
		Summary:     "List recipes",
		Description: "Returns the current user's recipes, newest first. Optional comma-separated tag and ingredient ID filters narrow the result.",
		Tags:        []string{"Recipes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListRecipes)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createRecipe",
		Method:        http.MethodPost,
		Path:          "/api/v1/recipes",
		Summary:       "Create recipe",
		Description:   "Creates a recipe with embedded tags and ingredients",
		Tags:          []string{"Recipes"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRecipe",
		Method:      http.MethodGet,
		Path:        "/api/v1/recipes/{id}",
		Summary:     "Get recipe",
		Description: "Returns a recipe with its tags and ingredients",
		Tags:        []string{"Recipes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID: "replaceRecipe",
		Method:      http.MethodPut,
		Path:        "/api/v1/recipes/{id}",
		Summary:     "Replace recipe",
		Description: "Fully replaces a recipe. Absent tag or ingredient lists end up empty.",
		Tags:        []string{"Recipes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleReplaceRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateRecipe",
		Method:      http.MethodPatch,
		Path:        "/api/v1/recipes/{id}",
		Summary:     "Update recipe",
		Description: "Partially updates a recipe. Only provided fields change; a provided tag or ingredient list replaces the existing links.",
		Tags:        []string{"Recipes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteRecipe",
		Method:      http.MethodDelete,
		Path:        "/api/v1/recipes/{id}",
		Summary:     "Delete recipe",
		Description: "Deletes a recipe. Linked tags and ingredients survive.",
		Tags:        []string{"Recipes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteRecipe)
}

// === DTOs ===

// ListRecipesInput contains parameters for listing recipes.
type ListRecipesInput struct {
	Authorization string `header:"Authorization"`
	Tags          string `query:"tags" doc:"Comma-separated tag IDs; matching any narrows the list"`
	Ingredients   string `query:"ingredients" doc:"Comma-separated ingredient IDs; matching any narrows the list"`
}

// RecipeSummary contains recipe data in list responses.
// Detail-only fields (description, image) are omitted.
type RecipeSummary struct {
	ID          string    `json:"id" doc:"Recipe ID"`
	Title       string    `json:"title" doc:"Recipe title"`
	TimeMinutes int       `json:"time_minutes" doc:"Preparation time in minutes"`
	Price       string    `json:"price" doc:"Price as a decimal string"`
	Link        string    `json:"link,omitempty" doc:"External link"`
	CreatedAt   time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt   time.Time `json:"updated_at" doc:"Last update time"`
}

// ListRecipesResponse contains a list of recipe summaries.
type ListRecipesResponse struct {
	Recipes []RecipeSummary `json:"recipes" doc:"List of recipes"`
}

// ListRecipesOutput wraps the list recipes response for Huma.
type ListRecipesOutput struct {
	Body ListRecipesResponse
}

// EmbeddedTagRequest is a tag payload embedded in a recipe write.
type EmbeddedTagRequest struct {
	Name string `json:"name,omitempty" validate:"required,max=50" doc:"Tag name"`
}

// EmbeddedIngredientRequest is an ingredient payload embedded in a recipe write.
type EmbeddedIngredientRequest struct {
	Name string `json:"name,omitempty" validate:"required,max=255" doc:"Ingredient name"`
}

// WriteRecipeRequest is the full recipe payload for create and replace.
type WriteRecipeRequest struct {
	Title       string                      `json:"title,omitempty" validate:"max=255" doc:"Recipe title"`
	Description string                      `json:"description,omitempty" doc:"Recipe description"`
	TimeMinutes int                         `json:"time_minutes,omitempty" validate:"gte=0" doc:"Preparation time in minutes"`
	Price       string                      `json:"price,omitempty" validate:"required" doc:"Price as a decimal string (max 5 digits, 2 decimal places)"`
	Link        string                      `json:"link,omitempty" validate:"max=255" doc:"External link"`
	Tags        []EmbeddedTagRequest        `json:"tags,omitempty" doc:"Tags to link, created on demand"`
	Ingredients []EmbeddedIngredientRequest `json:"ingredients,omitempty" doc:"Ingredients to link, created on demand"`
}

// CreateRecipeInput wraps the create recipe request for Huma.
type CreateRecipeInput struct {
	Authorization string `header:"Authorization"`
	Body          WriteRecipeRequest
}

// ReplaceRecipeInput wraps the replace recipe request for Huma.
type ReplaceRecipeInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Recipe ID"`
	Body          WriteRecipeRequest
}

// PatchRecipeRequest is a partial recipe update.
// A present tags or ingredients key replaces the existing links, even
// when the list is empty; an absent key leaves them untouched.
type PatchRecipeRequest struct {
	Title       *string                      `json:"title,omitempty" doc:"Recipe title"`
	Description *string                      `json:"description,omitempty" doc:"Recipe description"`
	TimeMinutes *int                         `json:"time_minutes,omitempty" doc:"Preparation time in minutes"`
	Price       *string                      `json:"price,omitempty" doc:"Price as a decimal string"`
	Link        *string                      `json:"link,omitempty" doc:"External link"`
	Tags        *[]EmbeddedTagRequest        `json:"tags,omitempty" doc:"Replacement tag list"`
	Ingredients *[]EmbeddedIngredientRequest `json:"ingredients,omitempty" doc:"Replacement ingredient list"`
}

// PatchRecipeInput wraps the patch recipe request for Huma.
type PatchRecipeInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Recipe ID"`
	Body          PatchRecipeRequest
}

// GetRecipeInput contains parameters for getting a recipe.
type GetRecipeInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Recipe ID"`
}

// DeleteRecipeInput contains parameters for deleting a recipe.
type DeleteRecipeInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Recipe ID"`
}

// RecipeResponse contains full recipe data in API responses.
type RecipeResponse struct {
	ID          string               `json:"id" doc:"Recipe ID"`
	Title       string               `json:"title" doc:"Recipe title"`
	Description string               `json:"description,omitempty" doc:"Recipe description"`
	TimeMinutes int                  `json:"time_minutes" doc:"Preparation time in minutes"`
	Price       string               `json:"price" doc:"Price as a decimal string"`
	Link        string               `json:"link,omitempty" doc:"External link"`
	ImageURL    string               `json:"image_url,omitempty" doc:"URL of the attached image, if any"`
	Tags        []TagResponse        `json:"tags" doc:"Linked tags"`
	Ingredients []IngredientResponse `json:"ingredients" doc:"Linked ingredients"`
	CreatedAt   time.Time            `json:"created_at" doc:"Creation time"`
	UpdatedAt   time.Time            `json:"updated_at" doc:"Last update time"`
}

// RecipeOutput wraps the recipe response for Huma.
type RecipeOutput struct {
	Body RecipeResponse
}

// === Handlers ===

func (s *Server) handleListRecipes(ctx context.Context, input *ListRecipesInput) (*ListRecipesOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	recipes, err := s.services.Recipe.ListRecipes(ctx, userID, input.Tags, input.Ingredients)
	if err != nil {
		return nil, err
	}

	resp := make([]RecipeSummary, len(recipes))
	for i, r := range recipes {
		resp[i] = RecipeSummary{
			ID:          r.ID,
			Title:       r.Title,
			TimeMinutes: r.TimeMinutes,
			Price:       r.Price,
			Link:        r.Link,
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		}
	}

	return &ListRecipesOutput{Body: ListRecipesResponse{Recipes: resp}}, nil
}

func (s *Server) handleCreateRecipe(ctx context.Context, input *CreateRecipeInput) (*RecipeOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	detail, err := s.services.Recipe.CreateRecipe(ctx, userID, mapWriteRequest(input.Body))
	if err != nil {
		return nil, err
	}

	return &RecipeOutput{Body: mapRecipeResponse(detail)}, nil
}

func (s *Server) handleGetRecipe(ctx context.Context, input *GetRecipeInput) (*RecipeOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	detail, err := s.services.Recipe.GetRecipe(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	return &RecipeOutput{Body: mapRecipeResponse(detail)}, nil
}

func (s *Server) handleReplaceRecipe(ctx context.Context, input *ReplaceRecipeInput) (*RecipeOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	detail, err := s.services.Recipe.ReplaceRecipe(ctx, userID, input.ID, mapWriteRequest(input.Body))
	if err != nil {
		return nil, err
	}

	return &RecipeOutput{Body: mapRecipeResponse(detail)}, nil
}

func (s *Server) handleUpdateRecipe(ctx context.Context, input *PatchRecipeInput) (*RecipeOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	req := service.PatchRecipeRequest{
		Title:       input.Body.Title,
		Description: input.Body.Description,
		TimeMinutes: input.Body.TimeMinutes,
		Price:       input.Body.Price,
		Link:        input.Body.Link,
	}
	if input.Body.Tags != nil {
		tags := mapTagInputs(*input.Body.Tags)
		req.Tags = &tags
	}
	if input.Body.Ingredients != nil {
		ingredients := mapIngredientInputs(*input.Body.Ingredients)
		req.Ingredients = &ingredients
	}

	detail, err := s.services.Recipe.PatchRecipe(ctx, userID, input.ID, req)
	if err != nil {
		return nil, err
	}

	return &RecipeOutput{Body: mapRecipeResponse(detail)}, nil
}

func (s *Server) handleDeleteRecipe(ctx context.Context, input *DeleteRecipeInput) (*MessageOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Recipe.DeleteRecipe(ctx, userID, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Recipe deleted"}}, nil
}

// === Helpers ===

func mapWriteRequest(req WriteRecipeRequest) service.WriteRecipeRequest {
	return service.WriteRecipeRequest{
		Title:       req.Title,
		Description: req.Description,
		TimeMinutes: req.TimeMinutes,
		Price:       req.Price,
		Link:        req.Link,
		Tags:        mapTagInputs(req.Tags),
		Ingredients: mapIngredientInputs(req.Ingredients),
	}
}

func mapTagInputs(tags []EmbeddedTagRequest) []service.TagInput {
	out := make([]service.TagInput, len(tags))
	for i, t := range tags {
		out[i] = service.TagInput{Name: t.Name}
	}
	return out
}

func mapIngredientInputs(ingredients []EmbeddedIngredientRequest) []service.IngredientInput {
	out := make([]service.IngredientInput, len(ingredients))
	for i, ing := range ingredients {
		out[i] = service.IngredientInput{Name: ing.Name}
	}
	return out
}

func mapRecipeResponse(detail *service.RecipeDetail) RecipeResponse {
	r := detail.Recipe

	resp := RecipeResponse{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		TimeMinutes: r.TimeMinutes,
		Price:       r.Price,
		Link:        r.Link,
		Tags:        mapTagResponses(detail.Tags),
		Ingredients: mapIngredientResponses(detail.Ingredients),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.HasImage() {
		resp.ImageURL = recipeImagePath(r.ID)
	}

	return resp
}

func mapTagResponses(tags []*domain.Tag) []TagResponse {
	out := make([]TagResponse, len(tags))
	for i, t := range tags {
		out[i] = TagResponse{
			ID:        t.ID,
			Name:      t.Name,
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
		}
	}
	return out
}

func mapIngredientResponses(ingredients []*domain.Ingredient) []IngredientResponse {
	out := make([]IngredientResponse, len(ingredients))
	for i, ing := range ingredients {
		out[i] = IngredientResponse{
			ID:        ing.ID,
			Name:      ing.Name,
			CreatedAt: ing.CreatedAt,
			UpdatedAt: ing.UpdatedAt,
		}
	}
	return out
}

func recipeImagePath(recipeID string) string {
	return "/api/v1/recipes/" + recipeID + "/image"
}
