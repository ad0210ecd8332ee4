package domain

// Ingredient represents a user-owned ingredient that recipes can reference.
// Names are unique per user, not globally.
type Ingredient struct {
	Timestamps
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}
