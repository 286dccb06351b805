package leave

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoActivePolicy means no policy is both active and marked default.
	// The engine refuses to produce a balance rather than guess.
	ErrNoActivePolicy = errors.New("no active default leave policy")

	// ErrInvalidTransition is returned for a status change the lifecycle
	// does not allow.
	ErrInvalidTransition = errors.New("invalid leave status transition")

	// ErrRequestRejected is returned by Submit when validation fails.
	ErrRequestRejected = errors.New("leave request rejected")
)

// InvalidTransitionError names the attempted transition.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move leave from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// RequestRejectedError carries the validation result of a refused request.
type RequestRejectedError struct {
	Result ValidationResult
}

func (e *RequestRejectedError) Error() string {
	msgs := make([]string, len(e.Result.Errors))
	for i, issue := range e.Result.Errors {
		msgs[i] = issue.Message
	}
	return "leave request rejected: " + strings.Join(msgs, "; ")
}

func (e *RequestRejectedError) Unwrap() error {
	return ErrRequestRejected
}
