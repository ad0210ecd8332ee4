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

// TagService manages a user's tags. Tags are only ever created through
// recipe nesting; this service lists, renames, and deletes them.
type TagService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(store *store.Store, logger *slog.Logger) *TagService {
	return &TagService{
		store:  store,
		logger: logger,
	}
}

// UpdateTagRequest contains a tag rename.
type UpdateTagRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

// ListTags returns the acting user's tags, ordered by name descending.
// assignedOnlyParam is the raw assigned_only query value; "1" excludes
// tags with zero recipe links.
func (s *TagService) ListTags(ctx context.Context, userID, assignedOnlyParam string) ([]*domain.Tag, error) {
	assignedOnly, err := parseAssignedOnly(assignedOnlyParam)
	if err != nil {
		return nil, err
	}

	tags, err := s.store.ListTagsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	if !assignedOnly {
		return tags, nil
	}

	assigned := tags[:0]
	for _, t := range tags {
		recipeIDs, err := s.store.GetRecipeIDsForTag(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("count tag links: %w", err)
		}
		if len(recipeIDs) > 0 {
			assigned = append(assigned, t)
		}
	}

	return assigned, nil
}

// UpdateTag renames one of the acting user's tags.
// Tags owned by other users are indistinguishable from missing ones.
func (s *TagService) UpdateTag(ctx context.Context, userID, tagID string, req UpdateTagRequest) (*domain.Tag, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	tag, err := s.store.GetTagForOwner(ctx, userID, tagID)
	if err != nil {
		if errors.Is(err, store.ErrTagNotFound) {
			return nil, domainerrors.NotFound("tag not found")
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}

	tag.Name = req.Name

	if err := s.store.UpdateTag(ctx, tag); err != nil {
		if errors.Is(err, store.ErrTagExists) {
			return nil, domainerrors.AlreadyExists("tag name already in use")
		}
		return nil, fmt.Errorf("update tag: %w", err)
	}

	return tag, nil
}

// DeleteTag removes one of the acting user's tags and its recipe links.
// Linked recipes survive with the tag detached.
func (s *TagService) DeleteTag(ctx context.Context, userID, tagID string) error {
	if _, err := s.store.GetTagForOwner(ctx, userID, tagID); err != nil {
		if errors.Is(err, store.ErrTagNotFound) {
			return domainerrors.NotFound("tag not found")
		}
		return fmt.Errorf("get tag: %w", err)
	}

	if err := s.store.DeleteTag(ctx, tagID); err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}

	s.logger.Info("Tag deleted", "tag_id", tagID, "user_id", userID)

	return nil
}
