package models

import (
	"errors"
	"fmt"
	"strings"
)

// Application-wide standard errors
var (
	// Common resource errors
	ErrNotFound       = errors.New("resource not found")
	ErrStoryNotFound  = errors.New("story not found")
	ErrNodeNotFound   = errors.New("node not found")
	ErrEndingNotFound = errors.New("ending not found")
	ErrChoiceNotFound = errors.New("choice not found")
	ErrUserNotFound   = errors.New("user not found")

	// Graph mutation errors
	ErrIDConflict = errors.New("identifier already belongs to another node or ending")
	ErrEmptyID    = errors.New("identifier must not be blank")

	// Access errors
	ErrUnauthorized = errors.New("unauthorized") // Authentication required or failed
	ErrForbidden    = errors.New("forbidden")    // Authenticated, but lacks permission

	// General request/server errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
)

// ValidationError carries the cumulative list of human-readable messages
// collected by the validation pass. No partial save occurs when it is
// returned.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// InsufficientFundsError surfaces both the required cost and the current
// balance so the UI can render an actionable message. No mutation occurred.
type InsufficientFundsError struct {
	Cost    int
	Balance int
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: cost %d, balance %d", e.Cost, e.Balance)
}
