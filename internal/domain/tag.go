package domain

// Tag represents a user-owned label for categorizing recipes.
// Names are unique per user, not globally.
type Tag struct {
	Timestamps
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}
