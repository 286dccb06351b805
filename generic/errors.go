/*
errors.go - Centralized error types for the generic layer

PURPOSE:
  Sentinel errors shared by the leave package, the stores and the API.
  Domain packages wrap these with additional context.

ERROR CATEGORIES:
  1. Lookup errors - Missing employees, policies, leave records
  2. Input errors - Malformed periods or amounts
  3. Store errors - Constraint violations surfaced by the database

USAGE:
    if generic.IsNotFound(err) {
        writeError(w, http.StatusNotFound, "employee not found", err)
    }

SEE ALSO:
  - leave/errors.go: Engine-specific errors (no active policy, transitions)
  - store/sqlite/sqlite.go: Maps constraint violations to these errors
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPolicyNotFound is returned when a referenced policy doesn't exist.
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrEntityNotFound is returned when a referenced employee doesn't exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrLeaveNotFound is returned when a referenced leave record doesn't exist.
	ErrLeaveNotFound = errors.New("leave not found")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidAmount is returned for non-positive requested day counts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrDuplicateDefaultPolicy is returned by stores when saving a second
	// active default policy. The store's unique index enforces the invariant.
	ErrDuplicateDefaultPolicy = errors.New("another active default policy exists")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind error
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return e.Kind
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrDuplicateDefaultPolicy)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPolicyNotFound) ||
		errors.Is(err, ErrEntityNotFound) ||
		errors.Is(err, ErrLeaveNotFound)
}
