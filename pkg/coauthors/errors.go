package coauthors

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrGuestAuthorNotFound indicates no guest author matched a lookup
	ErrGuestAuthorNotFound = errors.New("guest author not found")

	// ErrUnsupportedField indicates a guest author lookup on an unknown field
	ErrUnsupportedField = errors.New("unsupported lookup field")

	// ErrPostNotCreated indicates the content store refused the guest author post
	ErrPostNotCreated = errors.New("guest author post not created")
)

// Error codes returned to API clients.
const (
	CodeMissingParam    = "rest_missing_callback_param"
	CodeNameInvalid     = "rest_createguest_nameinvalid"
	CodeEmailInvalid    = "rest_createguest_emailinvalid"
	CodeEmailRegistered = "rest_createguest_emailregistered"
	CodeEmailIsGuest    = "rest_createguest_emailisguest"
	CodeGuestNotCreated = "rest_createguest_guestnotcreated"
	CodeForbidden       = "rest_forbidden"
	CodeInternal        = "rest_internal_error"
	CodeInvalidJSON     = "rest_invalid_json"
)

// ValidationError is a client-facing rejection with a fixed code.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Validation failures of CreateGuestAuthor.
var (
	ErrNameInvalid     = &ValidationError{Code: CodeNameInvalid, Message: "Invalid guest display name."}
	ErrEmailInvalid    = &ValidationError{Code: CodeEmailInvalid, Message: "Invalid guest email address."}
	ErrEmailRegistered = &ValidationError{Code: CodeEmailRegistered, Message: "Email address is already in use with a user account."}
	ErrEmailIsGuest    = &ValidationError{Code: CodeEmailIsGuest, Message: "Email address is already in use with a guest author."}
	ErrGuestNotCreated = &ValidationError{Code: CodeGuestNotCreated, Message: "Cannot create guest author."}
)

// AuthorError represents a failed store operation
type AuthorError struct {
	Op  string
	Err error
}

func (e *AuthorError) Error() string {
	return fmt.Sprintf("author operation %s failed: %v", e.Op, e.Err)
}

func (e *AuthorError) Unwrap() error {
	return e.Err
}

// StorageError represents a failed avatar storage operation
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
