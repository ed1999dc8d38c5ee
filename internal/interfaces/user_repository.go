package interfaces

import (
	"context"

	"shadowpaths-server/internal/models"

	"github.com/google/uuid"
)

// UserRepository defines the interface for account storage.
//
//go:generate mockery --name UserRepository --output ./mocks --outpkg mocks --case=underscore
type UserRepository interface {
	// GetByID returns the user without progress entries.
	// Returns models.ErrUserNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// List returns users whose username or email matches the search string
	// (case-insensitive substring); empty q returns everyone.
	List(ctx context.Context, q string) ([]models.User, error)

	// Create inserts a new account.
	Create(ctx context.Context, user *models.User) error

	// UpdateProfile updates the admin-editable identity fields.
	UpdateProfile(ctx context.Context, id uuid.UUID, username, email string, role models.Role, currency int) error

	// SetRole flips the role only.
	SetRole(ctx context.Context, id uuid.UUID, role models.Role) error

	// AdjustCurrency adds delta (possibly negative) to the given balance.
	// A negative delta that would push the balance below zero fails with
	// *models.InsufficientFundsError and leaves the row untouched.
	AdjustCurrency(ctx context.Context, id uuid.UUID, kind models.CurrencyKind, delta int) (int, error)

	// SaveDerived writes back the recomputed aggregate counters and ladders.
	SaveDerived(ctx context.Context, id uuid.UUID, totalEndingsFound, storiesRead int, medals, trophies map[string]models.Tier) error
}
