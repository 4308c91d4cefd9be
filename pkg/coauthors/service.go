package coauthors

import (
	"context"
)

// Service defines the guest author operations
type Service interface {
	// SearchAuthors returns users and guest authors matching the query,
	// never including a login listed in Exclude.
	SearchAuthors(ctx context.Context, req SearchAuthorsRequest) ([]*AuthorResult, error)

	// CreateGuestAuthor validates and stores a new guest author. Validation
	// failures are returned as *ValidationError.
	CreateGuestAuthor(ctx context.Context, req CreateGuestAuthorRequest) (*CreatedGuestAuthor, error)
}
