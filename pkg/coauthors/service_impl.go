package coauthors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName         = "github.com/tendant/coauthors"
	defaultSearchLimit = 10
)

// service implements the Service interface
type service struct {
	repository  Repository
	avatars     AvatarResolver
	eventSink   EventSink
	logger      *slog.Logger
	validate    *validator.Validate
	tracer      trace.Tracer
	searchLimit int
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the content store for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithAvatarResolver sets how avatar URLs are built
func WithAvatarResolver(resolver AvatarResolver) Option {
	return func(s *service) {
		s.avatars = resolver
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithSearchLimit caps the number of search results
func WithSearchLimit(limit int) Option {
	return func(s *service) {
		s.searchLimit = limit
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		validate:    validator.New(),
		tracer:      otel.Tracer(tracerName),
		searchLimit: defaultSearchLimit,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.avatars == nil {
		s.avatars = NewGravatarResolver(0, "")
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.searchLimit <= 0 {
		s.searchLimit = defaultSearchLimit
	}

	return s, nil
}

// Search

func (s *service) SearchAuthors(ctx context.Context, req SearchAuthorsRequest) ([]*AuthorResult, error) {
	ctx, span := s.tracer.Start(ctx, "coauthors.SearchAuthors", trace.WithAttributes(
		attribute.Int("coauthors.exclude_count", len(req.Exclude)),
	))
	defer span.End()

	authors, err := s.repository.SearchAuthors(ctx, SearchParams{
		Query:   req.Query,
		Exclude: req.Exclude,
		Limit:   s.searchLimit,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, &AuthorError{Op: "search", Err: err}
	}

	excluded := make(map[string]struct{}, len(req.Exclude))
	for _, login := range req.Exclude {
		excluded[login] = struct{}{}
	}

	results := make([]*AuthorResult, 0, len(authors))
	for _, author := range authors {
		if _, skip := excluded[author.Login]; skip {
			continue
		}
		results = append(results, &AuthorResult{
			ID:          author.ID,
			Login:       author.Login,
			DisplayName: author.DisplayName,
			Email:       author.Email,
			Nicename:    author.Nicename,
			Avatar:      s.avatarURL(ctx, author),
		})
	}

	span.SetAttributes(attribute.Int("coauthors.result_count", len(results)))
	return results, nil
}

// Create

func (s *service) CreateGuestAuthor(ctx context.Context, req CreateGuestAuthorRequest) (*CreatedGuestAuthor, error) {
	ctx, span := s.tracer.Start(ctx, "coauthors.CreateGuestAuthor")
	defer span.End()

	created, err := s.createGuestAuthor(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create guest author failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int64("coauthors.guest_author_id", created.ID))
	return created, nil
}

func (s *service) createGuestAuthor(ctx context.Context, req CreateGuestAuthorRequest) (*CreatedGuestAuthor, error) {
	displayName := SanitizeUser(req.DisplayName)
	if displayName == "" {
		return nil, ErrNameInvalid
	}
	login := Slugify(displayName)
	if login == "" {
		return nil, ErrNameInvalid
	}

	email := SanitizeEmail(req.Email)
	if email == "" || s.validate.Var(email, "email") != nil {
		return nil, ErrEmailInvalid
	}

	registered, err := s.repository.UserExistsByEmail(ctx, email)
	if err != nil {
		return nil, &AuthorError{Op: "user_exists", Err: err}
	}
	if registered {
		return nil, ErrEmailRegistered
	}

	_, err = s.repository.GetGuestAuthorBy(ctx, FieldUserEmail, email)
	switch {
	case err == nil:
		return nil, ErrEmailIsGuest
	case !errors.Is(err, ErrGuestAuthorNotFound):
		return nil, &AuthorError{Op: "get_guest_author", Err: err}
	}

	now := time.Now().UTC()
	postID, err := s.repository.InsertGuestAuthorPost(ctx, &GuestAuthorPost{
		PostType:  GuestAuthorPostType,
		Title:     displayName,
		Name:      MetaKey(login),
		Status:    PostStatusPublish,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil || postID <= 0 {
		s.logger.ErrorContext(ctx, "Failed to insert guest author post", "login", login, "error", err)
		return nil, ErrGuestNotCreated
	}

	if err := s.attachMeta(ctx, postID, displayName, login, email); err != nil {
		s.logger.ErrorContext(ctx, "Failed to finish guest author", "post_id", postID, "error", err)
		return nil, ErrGuestNotCreated
	}

	author := &Author{
		ID:          postID,
		Type:        AuthorTypeGuest,
		Login:       login,
		DisplayName: displayName,
		Email:       email,
		Nicename:    login,
	}
	created := &CreatedGuestAuthor{
		ID:          postID,
		Login:       login,
		Email:       email,
		DisplayName: displayName,
		Nicename:    login,
		Avatar:      s.avatarURL(ctx, author),
	}

	if err := s.eventSink.GuestAuthorCreated(ctx, created); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish guest author event", "post_id", postID, "error", err)
	}

	s.logger.InfoContext(ctx, "Guest author created", "post_id", postID, "login", login)
	return created, nil
}

// attachMeta stores the guest author fields and links the author term.
func (s *service) attachMeta(ctx context.Context, postID int64, displayName, login, email string) error {
	meta := []struct{ key, value string }{
		{MetaKey(FieldDisplayName), displayName},
		{MetaKey(FieldUserLogin), login},
		{MetaKey(FieldUserEmail), email},
	}
	for _, m := range meta {
		if err := s.repository.SetPostMeta(ctx, postID, m.key, m.value); err != nil {
			return &AuthorError{Op: "set_post_meta", Err: err}
		}
	}

	guest, err := s.repository.GetGuestAuthorBy(ctx, FieldID, strconv.FormatInt(postID, 10))
	if err != nil {
		return &AuthorError{Op: "get_guest_author", Err: err}
	}

	term, err := s.repository.UpsertAuthorTerm(ctx, guest.AsAuthor())
	if err != nil {
		return &AuthorError{Op: "update_author_term", Err: err}
	}

	if err := s.repository.SetPostTerms(ctx, postID, AuthorTaxonomy, []string{term.Slug}); err != nil {
		return &AuthorError{Op: "set_post_terms", Err: err}
	}
	return nil
}

func (s *service) avatarURL(ctx context.Context, author *Author) string {
	u, err := s.avatars.AvatarURL(ctx, author)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to resolve avatar", "author_id", author.ID, "error", err)
		return ""
	}
	return u
}
