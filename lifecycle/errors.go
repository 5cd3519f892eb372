/*
errors.go - Centralized error types for the lifecycle engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Guard failures are soft: every rejected mutation leaves the document
  unchanged and surfaces as an error value the caller branches on.
  Nothing in this package panics.

ERROR CATEGORIES:
  1. Store errors - missing documents or versions
  2. Lock errors - mutations against a locked payload
  3. Workflow errors - illegal state transitions, role/comment gating

USAGE:
  Callers branch with errors.Is:

    if errors.Is(err, lifecycle.ErrDocumentLocked) {
        // show "document is locked" to the user
    }

SEE ALSO:
  - versions.go: Uses the store and lock errors
  - workflow.go: Uses the transition errors
*/
package lifecycle

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDocumentNotFound is returned when the referenced document doesn't exist.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentExists is returned when inserting a document whose id is taken.
	ErrDocumentExists = errors.New("document already exists")

	// ErrDocumentLocked is returned when a mutation targets a locked payload.
	// The caller must Unlock first; the mutation did not apply.
	ErrDocumentLocked = errors.New("document is locked")

	// ErrVersionNotFound is returned when restoring a version that was never
	// recorded. The document is unchanged.
	ErrVersionNotFound = errors.New("version not found")

	// ErrIllegalTransition is returned when the transition table does not
	// define the requested direction for the current state.
	ErrIllegalTransition = errors.New("illegal state transition")

	// ErrRoleNotPermitted is returned when the actor's role may not act on
	// the document's current state.
	ErrRoleNotPermitted = errors.New("role not permitted for current state")

	// ErrCommentRequired is returned when a return is attempted without a
	// comment. Enforced at the service boundary, not inside the machine.
	ErrCommentRequired = errors.New("comment required")

	// ErrNoApproval is returned when a workflow operation targets a document
	// that does not carry an approval record.
	ErrNoApproval = errors.New("document has no approval record")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TransitionError provides details about a rejected transition.
type TransitionError struct {
	Op   string // "submit", "approve", "return"
	From Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s from %q", e.Op, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// LockedError provides details about a mutation rejected by a lock.
type LockedError struct {
	ID       DocumentID
	LockType LockType
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("document %s is locked (%s)", e.ID, e.LockType)
}

func (e *LockedError) Unwrap() error { return ErrDocumentLocked }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing document or version.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound) ||
		errors.Is(err, ErrVersionNotFound)
}

// IsConflict returns true if the error is a rejected mutation the caller can
// recover from by re-issuing a corrected request.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDocumentLocked) ||
		errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrDocumentExists)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrCommentRequired) ||
		errors.Is(err, ErrRoleNotPermitted) ||
		errors.Is(err, ErrNoApproval)
}
