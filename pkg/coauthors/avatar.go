package coauthors

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
)

const (
	defaultAvatarBaseURL = "https://www.gravatar.com/avatar/"
	defaultAvatarSize    = 96
	defaultAvatarImage   = "mm"
)

// GravatarResolver builds Gravatar URLs from an author's email.
type GravatarResolver struct {
	BaseURL string
	Size    int
	Default string
}

// NewGravatarResolver creates a resolver with the given size and fallback image.
// Zero values fall back to 96px and the "mm" silhouette.
func NewGravatarResolver(size int, fallback string) *GravatarResolver {
	if size <= 0 {
		size = defaultAvatarSize
	}
	if fallback == "" {
		fallback = defaultAvatarImage
	}
	return &GravatarResolver{
		BaseURL: defaultAvatarBaseURL,
		Size:    size,
		Default: fallback,
	}
}

// AvatarURL returns the Gravatar URL for the author's email hash.
func (g *GravatarResolver) AvatarURL(ctx context.Context, author *Author) (string, error) {
	sum := md5.Sum([]byte(NormalizeEmail(author.Email)))
	q := url.Values{}
	q.Set("s", strconv.Itoa(g.Size))
	q.Set("d", g.Default)
	return fmt.Sprintf("%s%s?%s", g.BaseURL, hex.EncodeToString(sum[:]), q.Encode()), nil
}

// StoredAvatarResolver serves a guest author's stored image when one is
// recorded and falls back to another resolver otherwise.
type StoredAvatarResolver struct {
	store    BlobStore
	fallback AvatarResolver
}

// NewStoredAvatarResolver wraps fallback with stored-image lookups against store.
func NewStoredAvatarResolver(store BlobStore, fallback AvatarResolver) *StoredAvatarResolver {
	return &StoredAvatarResolver{store: store, fallback: fallback}
}

func (s *StoredAvatarResolver) AvatarURL(ctx context.Context, author *Author) (string, error) {
	if author.Type == AuthorTypeGuest && author.AvatarKey != "" && s.store != nil {
		u, err := s.store.GetDownloadURL(ctx, author.AvatarKey)
		if err == nil {
			return u, nil
		}
		slog.Warn("Failed to resolve stored avatar", "author_id", author.ID, "key", author.AvatarKey, "error", err)
	}
	if s.fallback == nil {
		return "", nil
	}
	return s.fallback.AvatarURL(ctx, author)
}
