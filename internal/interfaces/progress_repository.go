package interfaces

import (
	"context"

	"shadowpaths-server/internal/models"

	"github.com/google/uuid"
)

// ProgressRepository defines the interface for per-(user, story) play state.
// Entries are created lazily on first visit; the discovery and unlock
// operations are conditional updates so concurrent duplicate requests cannot
// double-apply.
//
//go:generate mockery --name ProgressRepository --output ./mocks --outpkg mocks --case=underscore
type ProgressRepository interface {
	// Get returns the entry, or models.ErrNotFound when the story was never
	// started by this user.
	Get(ctx context.Context, userID, storyID uuid.UUID) (*models.ProgressEntry, error)

	// ListByUser returns every entry for the user.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ProgressEntry, error)

	// ListUserIDsByStory returns the ids of users holding progress on the
	// story (recomputation fan-out after administrative edits).
	ListUserIDsByStory(ctx context.Context, storyID uuid.UUID) ([]uuid.UUID, error)

	// VisitNode upserts the entry and moves the continue pointer. Idempotent,
	// no currency side effects.
	VisitNode(ctx context.Context, userID, storyID uuid.UUID, nodeID string) error

	// DiscoverEnding clears the continue pointer and, when the ending was not
	// previously found, appends it and updates the derived flags in the same
	// conditional statement. Reports whether this call was the first
	// discovery.
	DiscoverEnding(ctx context.Context, userID, storyID uuid.UUID, endingID string, endingType models.EndingType) (bool, error)

	// UnlockChoice performs the atomic charge-and-record cycle in one
	// transaction: append the idempotency key only if absent, deduct the cost
	// only if the balance covers it, and move the continue pointer to the
	// node. Returns AlreadyUnlocked without charging when the key existed;
	// returns *models.InsufficientFundsError (no mutation) when the balance
	// is short.
	UnlockChoice(ctx context.Context, userID, storyID uuid.UUID, nodeID, key string, cost int, kind models.CurrencyKind) (*models.UnlockOutcome, error)

	// SaveDerived writes back the recomputed per-entry derived fields.
	SaveDerived(ctx context.Context, entry *models.ProgressEntry) error

	// Reset zeroes discovery/position/unlock state in place; the entry
	// survives (administrative "clear progress").
	Reset(ctx context.Context, userID, storyID uuid.UUID) error
}
