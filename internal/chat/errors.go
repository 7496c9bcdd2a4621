// Package chat defines the SeCrypt chat domain: entity types, the
// role/permission table, emoji classification, and the error taxonomy
// shared by every service. Callers should use errors.Is against the kind
// sentinels to classify failures.
package chat

import (
	"errors"
	"fmt"
)

// Kind sentinels. Every error returned by the service layer matches exactly
// one of these via errors.Is.
var (
	// ErrValidation marks a malformed or out-of-range field. Recoverable,
	// never retried.
	ErrValidation = errors.New("validation error")

	// ErrConflict marks a state conflict: duplicate owner, duplicate
	// membership, a lost reaction-insert race, or a transition the current
	// record state forbids.
	ErrConflict = errors.New("conflict")

	// ErrNotFound marks a missing conversation/content/identity reference.
	ErrNotFound = errors.New("not found")

	// ErrPermission marks an action the caller's role does not allow.
	ErrPermission = errors.New("permission denied")

	// ErrStorage marks a transaction or connection failure. Not locally
	// recoverable; the caller owns the retry policy.
	ErrStorage = errors.New("storage error")
)

// Error is the stable (kind, message, field) triple crossing the core
// boundary. The wrapped cause is available through Unwrap for logging but is
// never part of the message.
type Error struct {
	Kind    error  // one of the kind sentinels above
	Message string
	Field   string // optional field path for validation errors
	cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewValidation reports a malformed field. field may be empty for
// record-level validation failures.
func NewValidation(field, message string) *Error {
	return &Error{Kind: ErrValidation, Field: field, Message: message}
}

func NewConflict(message string) *Error {
	return &Error{Kind: ErrConflict, Message: message}
}

func NewNotFound(entity string) *Error {
	return &Error{Kind: ErrNotFound, Message: entity + " does not exist"}
}

func NewPermission(message string) *Error {
	return &Error{Kind: ErrPermission, Message: message}
}

// NewStorage wraps a storage-engine failure. The cause stays internal.
func NewStorage(cause error) *Error {
	return &Error{Kind: ErrStorage, Message: "storage failure", cause: cause}
}
