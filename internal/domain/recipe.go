package domain

import "time"

// Recipe represents a recipe owned by a single user.
// Tag and ingredient links are stored as separate link rows, not inline.
type Recipe struct {
	Timestamps
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	TimeMinutes int    `json:"time_minutes"`
	// Price is a decimal string (max 5 digits, 2 decimal places),
	// kept as text to avoid float rounding.
	Price     string `json:"price"`
	Link      string `json:"link,omitempty"`
	ImageFile string `json:"image_file,omitempty"` // Filename under the uploads directory
}

// HasImage returns true if an image has been uploaded for this recipe.
func (r *Recipe) HasImage() bool {
	return r.ImageFile != ""
}

// RecipeTag represents the many-to-many relationship between recipes and tags.
// Both sides are owned by the same user; the store enforces that.
type RecipeTag struct {
	RecipeID  string    `json:"recipe_id"`
	TagID     string    `json:"tag_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RecipeIngredient represents the many-to-many relationship between recipes and ingredients.
type RecipeIngredient struct {
	RecipeID     string    `json:"recipe_id"`
	IngredientID string    `json:"ingredient_id"`
	CreatedAt    time.Time `json:"created_at"`
}
