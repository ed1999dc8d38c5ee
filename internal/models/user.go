package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role определяет роль пользователя.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User представляет аккаунт. Credential material is an opaque reference;
// verification happens in the auth collaborator, not here.
type User struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	Username       string          `json:"username" db:"username"`
	Email          string          `json:"email" db:"email"`
	PasswordHash   string          `json:"-" db:"password_hash"`
	Role           Role            `json:"role" db:"role"`
	Currency       int             `json:"currency" db:"currency"`
	AuthorCurrency int             `json:"authorCurrency" db:"author_currency"`

	// Aggregate counters, re-derivable from progress at any time.
	TotalEndingsFound int `json:"totalEndingsFound" db:"total_endings_found"`
	StoriesRead       int `json:"storiesRead" db:"stories_read"` // repurposed: "stories completed"

	Medals   map[string]Tier `json:"medals" db:"medals"`
	Trophies map[string]Tier `json:"trophies" db:"trophies"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Balance returns the requested currency pool.
func (u *User) Balance(kind CurrencyKind) int {
	if kind == CurrencyAuthor {
		return u.AuthorCurrency
	}
	return u.Currency
}

// ProgressEntry is the per-(user, story) play state. Created lazily on the
// first visit to any node or ending of the story.
type ProgressEntry struct {
	UserID           uuid.UUID `json:"userId" db:"user_id"`
	StoryID          uuid.UUID `json:"storyId" db:"story_id"`
	EndingsFound     []string  `json:"endingsFound" db:"endings_found"` // semantically a set
	TrueEndingFound  bool      `json:"trueEndingFound" db:"true_ending_found"`
	DeathEndingCount int       `json:"deathEndingCount" db:"death_ending_count"`
	LastNodeID       string    `json:"lastNodeId" db:"last_node_id"` // "" = no resumable position
	UnlockedChoices  []string  `json:"unlockedChoices" db:"unlocked_choices"`
	UpdatedAt        time.Time `json:"updatedAt" db:"updated_at"`
}

// HasEnding reports whether the ending has already been discovered.
func (p *ProgressEntry) HasEnding(endingID string) bool {
	for _, id := range p.EndingsFound {
		if id == endingID {
			return true
		}
	}
	return false
}

// HasUnlock reports whether the composite unlock key has been purchased.
func (p *ProgressEntry) HasUnlock(key string) bool {
	for _, k := range p.UnlockedChoices {
		if k == key {
			return true
		}
	}
	return false
}

// UnlockKey builds the idempotency key that records a purchased unlock for
// the lifetime of the progress entry.
func UnlockKey(nodeID, choiceID string) string {
	return fmt.Sprintf("%s:%s", nodeID, choiceID)
}

// UnlockOutcome is what the storage layer reports after the conditional
// charge-and-append cycle.
type UnlockOutcome struct {
	AlreadyUnlocked bool
	Charged         int
	NewBalance      int
}
