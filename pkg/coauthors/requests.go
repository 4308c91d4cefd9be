package coauthors

// Request DTOs

// SearchAuthorsRequest contains parameters for searching authors.
// Query and Exclude are expected to be sanitized by the caller.
type SearchAuthorsRequest struct {
	Query   string
	Exclude []string
}

// CreateGuestAuthorRequest contains the raw guest author fields.
// The service sanitizes both values before validating them.
type CreateGuestAuthorRequest struct {
	DisplayName string
	Email       string
}
