package docvault

import (
	"errors"
	"fmt"
)

// Error kinds. Validation failures are routine outcomes and are returned as
// these sentinels (possibly wrapped); callers test them with errors.Is.
var (
	// ErrDocumentNotFound indicates the document does not exist
	ErrDocumentNotFound = errors.New("document not found")

	// ErrRevisionNotFound indicates the requested revision does not exist
	ErrRevisionNotFound = errors.New("revision not found")

	// ErrAlreadyCheckedOut indicates another lock already exists for the document
	ErrAlreadyCheckedOut = errors.New("document is already checked out")

	// ErrNotCheckedOut indicates the document has no active lock
	ErrNotCheckedOut = errors.New("document is not checked out")

	// ErrNotLockHolder indicates the caller does not own the document's lock
	ErrNotLockHolder = errors.New("document is checked out by another user")

	// ErrInvalidTransition indicates the workflow transition is not allowed
	// from the document's current status
	ErrInvalidTransition = errors.New("invalid workflow transition")
)

// DocumentError represents an error related to document operations
type DocumentError struct {
	ObjectID string
	Op       string
	Err      error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document operation %s failed for %s: %v", e.Op, e.ObjectID, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to content storage operations
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
