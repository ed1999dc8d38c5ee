package interfaces

import (
	"context"

	"shadowpaths-server/internal/models"

	"github.com/google/uuid"
)

// StoryRepository defines the interface for persisting story aggregates.
// The whole story document is the unit of consistency: Save rewrites the
// complete aggregate (nodes, endings, images included).
//
//go:generate mockery --name StoryRepository --output ./mocks --outpkg mocks --case=underscore
type StoryRepository interface {
	// GetByID returns the full aggregate.
	// Returns models.ErrStoryNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error)

	// Create inserts a new story, generating the ID when unset.
	Create(ctx context.Context, story *models.Story) error

	// Save rewrites the whole aggregate.
	// Returns models.ErrStoryNotFound if the row disappeared.
	Save(ctx context.Context, story *models.Story) error

	// Delete removes the story; progress entries referencing it are left in
	// place and skipped by recomputation.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns summaries matching the filter, sorted by
	// (display_order ASC, created_at DESC).
	List(ctx context.Context, filter models.StoryFilter) ([]models.StorySummary, error)

	// ListByIDs batch-loads full aggregates for recomputation ($in-style).
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Story, error)

	// Count counts stories matching the filter (trophy inputs).
	Count(ctx context.Context, filter models.StoryFilter) (int, error)

	// UpdateStatus flips the lifecycle status only.
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.StoryStatus) error

	// SetDisplayOrder persists the dense catalog order previously assigned to
	// the given stories.
	SetDisplayOrder(ctx context.Context, orderedIDs []uuid.UUID) error
}
