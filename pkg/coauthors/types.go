package coauthors

import (
	"strconv"
	"strings"
	"time"
)

// AuthorType distinguishes registered accounts from guest authors.
type AuthorType string

const (
	AuthorTypeUser  AuthorType = "wpuser"
	AuthorTypeGuest AuthorType = "guest-author"
)

// Post and taxonomy constants used by the content store.
const (
	GuestAuthorPostType = "guest-author"
	PostStatusPublish   = "publish"
	AuthorTaxonomy      = "author"
	metaKeyPrefix       = "cap-"
)

// Post meta field names.
const (
	FieldDisplayName = "display_name"
	FieldUserLogin   = "user_login"
	FieldUserEmail   = "user_email"
	FieldAvatarKey   = "avatar_key"
	FieldID          = "ID"
	FieldPostName    = "post_name"
)

// DefaultCapability is the capability a caller needs to list or create guest authors.
const DefaultCapability = "list_users"

// MetaKey returns the post meta key for a guest author field.
func MetaKey(field string) string {
	return metaKeyPrefix + field
}

// Author is a search result: either a registered user or a guest author.
type Author struct {
	ID          int64      `json:"id"`
	Type        AuthorType `json:"type"`
	Login       string     `json:"login"`
	DisplayName string     `json:"display_name"`
	Email       string     `json:"email"`
	Nicename    string     `json:"nicename"`
	AvatarKey   string     `json:"avatar_key,omitempty"`
}

// User is a registered account in the content store.
type User struct {
	ID          int64     `json:"id"`
	Login       string    `json:"login"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Nicename    string    `json:"nicename"`
	CreatedAt   time.Time `json:"created_at"`
}

// GuestAuthorPost is the post row that backs a guest author.
type GuestAuthorPost struct {
	ID        int64     `json:"id"`
	PostType  string    `json:"post_type"`
	Title     string    `json:"title"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GuestAuthor is a guest author post joined with its meta.
type GuestAuthor struct {
	ID          int64  `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Nicename    string `json:"nicename"`
	AvatarKey   string `json:"avatar_key,omitempty"`
	PostName    string `json:"post_name"`
}

// AsAuthor converts the guest author to a search result.
func (g *GuestAuthor) AsAuthor() *Author {
	return &Author{
		ID:          g.ID,
		Type:        AuthorTypeGuest,
		Login:       g.Login,
		DisplayName: g.DisplayName,
		Email:       g.Email,
		Nicename:    g.Nicename,
		AvatarKey:   g.AvatarKey,
	}
}

// Term is an author taxonomy term linking a byline to its posts.
type Term struct {
	ID          int64  `json:"id"`
	Taxonomy    string `json:"taxonomy"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreatedGuestAuthor is the result of a successful CreateGuestAuthor call.
type CreatedGuestAuthor struct {
	ID          int64  `json:"id"`
	Login       string `json:"login"`
	Email       string `json:"email"`
	DisplayName string `json:"displayname"`
	Nicename    string `json:"nicename"`
	Avatar      string `json:"avatar"`
}

// AuthorResult is a search result with a resolved avatar URL.
type AuthorResult struct {
	ID          int64  `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"displayname"`
	Email       string `json:"email"`
	Nicename    string `json:"nicename"`
	Avatar      string `json:"avatar"`
}

// AuthorTermFor builds the author taxonomy term for an author. The
// description concatenates the searchable fields.
func AuthorTermFor(author *Author) *Term {
	nicename := author.Nicename
	if nicename == "" {
		nicename = author.Login
	}
	return &Term{
		Taxonomy: AuthorTaxonomy,
		Slug:     MetaKey(nicename),
		Name:     author.Login,
		Description: strings.Join([]string{
			author.DisplayName,
			author.Login,
			strconv.FormatInt(author.ID, 10),
			author.Email,
		}, " "),
	}
}
