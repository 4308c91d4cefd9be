package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/tendant/coauthors/pkg/coauthors"
)

// APIError is the error body returned to REST clients.
type APIError struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Data    ErrorData `json:"data"`
}

// ErrorData carries the HTTP status and, for missing arguments, their names.
type ErrorData struct {
	Status int      `json:"status"`
	Params []string `json:"params,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Data.Status, e.Message)
}

// Render sets the response status for render.Render.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.Data.Status)
	return nil
}

// NewAPIError creates an error with the given status.
func NewAPIError(status int, code, message string) *APIError {
	return &APIError{Code: code, Message: message, Data: ErrorData{Status: status}}
}

// ErrMissingParams reports required arguments absent from the request.
func ErrMissingParams(names ...string) *APIError {
	e := NewAPIError(http.StatusBadRequest, coauthors.CodeMissingParam,
		fmt.Sprintf("Missing parameter(s): %s", strings.Join(names, ", ")))
	e.Data.Params = names
	return e
}

// ErrUnauthorized is returned when the caller has no identity.
func ErrUnauthorized() *APIError {
	return NewAPIError(http.StatusUnauthorized, coauthors.CodeForbidden, "Sorry, you are not allowed to do that.")
}

// ErrForbidden is returned when the caller lacks the required capability.
func ErrForbidden() *APIError {
	return NewAPIError(http.StatusForbidden, coauthors.CodeForbidden, "Sorry, you are not allowed to do that.")
}

// ErrInternal is returned for store failures and recovered panics.
func ErrInternal() *APIError {
	return NewAPIError(http.StatusInternalServerError, coauthors.CodeInternal, "An internal server error occurred.")
}

// ErrInvalidJSON is returned when a JSON body cannot be decoded.
func ErrInvalidJSON() *APIError {
	return NewAPIError(http.StatusBadRequest, coauthors.CodeInvalidJSON, "Invalid JSON body passed.")
}

// toAPIError maps service errors onto REST errors. Validation failures keep
// their code; anything else is an internal error.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var validationErr *coauthors.ValidationError
	if errors.As(err, &validationErr) {
		return NewAPIError(http.StatusBadRequest, validationErr.Code, validationErr.Message)
	}
	return ErrInternal()
}
