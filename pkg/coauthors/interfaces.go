package coauthors

import (
	"context"
)

// Repository is the content store guest authors live in.
type Repository interface {
	// User lookups
	UserExistsByEmail(ctx context.Context, email string) (bool, error)

	// Guest author lookups. field is one of FieldID, FieldUserEmail,
	// FieldUserLogin; returns ErrGuestAuthorNotFound when nothing matches.
	GetGuestAuthorBy(ctx context.Context, field, value string) (*GuestAuthor, error)

	// Post operations
	InsertGuestAuthorPost(ctx context.Context, post *GuestAuthorPost) (int64, error)
	SetPostMeta(ctx context.Context, postID int64, key, value string) error

	// Author taxonomy operations
	UpsertAuthorTerm(ctx context.Context, author *Author) (*Term, error)
	SetPostTerms(ctx context.Context, postID int64, taxonomy string, slugs []string) error

	// Search matches users and guest authors, skipping excluded logins.
	SearchAuthors(ctx context.Context, params SearchParams) ([]*Author, error)
}

// AvatarResolver returns an avatar URL for an author.
type AvatarResolver interface {
	AvatarURL(ctx context.Context, author *Author) (string, error)
}

// BlobStore resolves stored avatar images to URLs.
type BlobStore interface {
	GetDownloadURL(ctx context.Context, objectKey string) (string, error)
}

// EventSink receives guest author lifecycle events.
type EventSink interface {
	GuestAuthorCreated(ctx context.Context, author *CreatedGuestAuthor) error
}

// SearchParams contains parameters for a repository search.
type SearchParams struct {
	Query   string
	Exclude []string
	Limit   int
}
