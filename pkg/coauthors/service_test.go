package coauthors_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/coauthors/pkg/coauthors"
	"github.com/tendant/coauthors/pkg/coauthors/repo/memory"
	memorystorage "github.com/tendant/coauthors/pkg/coauthors/storage/memory"
)

type recordingSink struct {
	events []*coauthors.CreatedGuestAuthor
	err    error
}

func (s *recordingSink) GuestAuthorCreated(ctx context.Context, author *coauthors.CreatedGuestAuthor) error {
	s.events = append(s.events, author)
	return s.err
}

func setupService(t *testing.T, opts ...coauthors.Option) (coauthors.Service, *memory.Repository) {
	t.Helper()
	repo := memory.New()
	svc, err := coauthors.New(append([]coauthors.Option{coauthors.WithRepository(repo)}, opts...)...)
	require.NoError(t, err)
	return svc, repo
}

func TestNewRequiresRepository(t *testing.T) {
	_, err := coauthors.New()
	assert.Error(t, err)
}

func TestCreateGuestAuthor(t *testing.T) {
	sink := &recordingSink{}
	svc, repo := setupService(t, coauthors.WithEventSink(sink))
	ctx := context.Background()

	created, err := svc.CreateGuestAuthor(ctx, coauthors.CreateGuestAuthorRequest{
		DisplayName: "  José   <b>Álvarez</b> ",
		Email:       " jose@example.com ",
	})
	require.NoError(t, err)

	assert.Equal(t, "Jose Alvarez", created.DisplayName)
	assert.Equal(t, "jose-alvarez", created.Login)
	assert.Equal(t, created.Login, created.Nicename)
	assert.Equal(t, "jose@example.com", created.Email)
	assert.NotEmpty(t, created.Avatar)

	guest, err := repo.GetGuestAuthorBy(ctx, coauthors.FieldID, strconv.FormatInt(created.ID, 10))
	require.NoError(t, err)
	assert.Equal(t, "cap-jose-alvarez", guest.PostName)
	assert.Equal(t, "jose-alvarez", guest.Login)
	assert.Equal(t, "Jose Alvarez", guest.DisplayName)
	assert.Equal(t, "jose@example.com", guest.Email)
	assert.Equal(t, []string{"cap-jose-alvarez"}, repo.PostTerms(created.ID))

	require.Len(t, sink.events, 1)
	assert.Equal(t, created.ID, sink.events[0].ID)
}

func TestCreateGuestAuthor_Validation(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()
	require.NoError(t, repo.AddUser(ctx, &coauthors.User{Login: "editor", DisplayName: "Editor", Email: "editor@example.com"}))
	_, err := svc.CreateGuestAuthor(ctx, coauthors.CreateGuestAuthorRequest{DisplayName: "Guest One", Email: "guest@example.com"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     coauthors.CreateGuestAuthorRequest
		wantErr error
	}{
		{"empty name", coauthors.CreateGuestAuthorRequest{DisplayName: "", Email: "a@example.com"}, coauthors.ErrNameInvalid},
		{"punctuation only name", coauthors.CreateGuestAuthorRequest{DisplayName: "!!!", Email: "a@example.com"}, coauthors.ErrNameInvalid},
		{"bad email", coauthors.CreateGuestAuthorRequest{DisplayName: "Alice", Email: "alice"}, coauthors.ErrEmailInvalid},
		{"single label domain", coauthors.CreateGuestAuthorRequest{DisplayName: "Alice", Email: "alice@localhost"}, coauthors.ErrEmailInvalid},
		{"user email", coauthors.CreateGuestAuthorRequest{DisplayName: "Alice", Email: "editor@example.com"}, coauthors.ErrEmailRegistered},
		{"guest email", coauthors.CreateGuestAuthorRequest{DisplayName: "Alice", Email: "guest@example.com"}, coauthors.ErrEmailIsGuest},
		{"guest email other case", coauthors.CreateGuestAuthorRequest{DisplayName: "Alice", Email: "GUEST@example.com"}, coauthors.ErrEmailIsGuest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateGuestAuthor(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)

			var validationErr *coauthors.ValidationError
			assert.True(t, errors.As(err, &validationErr))
		})
	}
}

func TestCreateGuestAuthor_NameRejectedBeforeEmail(t *testing.T) {
	svc, _ := setupService(t)
	_, err := svc.CreateGuestAuthor(context.Background(), coauthors.CreateGuestAuthorRequest{DisplayName: "", Email: "bad"})
	assert.ErrorIs(t, err, coauthors.ErrNameInvalid)
}

func TestCreateGuestAuthor_DuplicateNamesGetUniquePostNames(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	first, err := svc.CreateGuestAuthor(ctx, coauthors.CreateGuestAuthorRequest{DisplayName: "Sam Lee", Email: "sam1@example.com"})
	require.NoError(t, err)
	second, err := svc.CreateGuestAuthor(ctx, coauthors.CreateGuestAuthorRequest{DisplayName: "Sam Lee", Email: "sam2@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "sam-lee", first.Login)
	assert.Equal(t, "sam-lee", second.Login)

	g1, err := repo.GetGuestAuthorBy(ctx, coauthors.FieldID, strconv.FormatInt(first.ID, 10))
	require.NoError(t, err)
	g2, err := repo.GetGuestAuthorBy(ctx, coauthors.FieldID, strconv.FormatInt(second.ID, 10))
	require.NoError(t, err)
	assert.Equal(t, "cap-sam-lee", g1.PostName)
	assert.Equal(t, "cap-sam-lee-2", g2.PostName)
}

func TestCreateGuestAuthor_EventSinkFailureIsIgnored(t *testing.T) {
	sink := &recordingSink{err: errors.New("sink down")}
	svc, _ := setupService(t, coauthors.WithEventSink(sink))

	created, err := svc.CreateGuestAuthor(context.Background(), coauthors.CreateGuestAuthorRequest{DisplayName: "Kim", Email: "kim@example.com"})
	require.NoError(t, err)
	assert.NotNil(t, created)
	assert.Len(t, sink.events, 1)
}

type faultyRepository struct {
	*memory.Repository
	existsErr error
	insertErr error
	metaErr   error
}

func (f *faultyRepository) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.Repository.UserExistsByEmail(ctx, email)
}

func (f *faultyRepository) InsertGuestAuthorPost(ctx context.Context, post *coauthors.GuestAuthorPost) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	return f.Repository.InsertGuestAuthorPost(ctx, post)
}

func (f *faultyRepository) SetPostMeta(ctx context.Context, postID int64, key, value string) error {
	if f.metaErr != nil {
		return f.metaErr
	}
	return f.Repository.SetPostMeta(ctx, postID, key, value)
}

func TestCreateGuestAuthor_StoreFailures(t *testing.T) {
	storeDown := errors.New("store down")
	req := coauthors.CreateGuestAuthorRequest{DisplayName: "Pat", Email: "pat@example.com"}

	t.Run("existence check failure is internal", func(t *testing.T) {
		svc, err := coauthors.New(coauthors.WithRepository(&faultyRepository{Repository: memory.New(), existsErr: storeDown}))
		require.NoError(t, err)
		_, err = svc.CreateGuestAuthor(context.Background(), req)
		assert.ErrorIs(t, err, storeDown)
		var authorErr *coauthors.AuthorError
		require.ErrorAs(t, err, &authorErr)
		assert.Equal(t, "user_exists", authorErr.Op)
	})

	t.Run("insert failure is guestnotcreated", func(t *testing.T) {
		svc, err := coauthors.New(coauthors.WithRepository(&faultyRepository{Repository: memory.New(), insertErr: storeDown}))
		require.NoError(t, err)
		_, err = svc.CreateGuestAuthor(context.Background(), req)
		assert.ErrorIs(t, err, coauthors.ErrGuestNotCreated)
	})

	t.Run("meta failure is guestnotcreated", func(t *testing.T) {
		svc, err := coauthors.New(coauthors.WithRepository(&faultyRepository{Repository: memory.New(), metaErr: storeDown}))
		require.NoError(t, err)
		_, err = svc.CreateGuestAuthor(context.Background(), req)
		assert.ErrorIs(t, err, coauthors.ErrGuestNotCreated)
	})
}

func TestSearchAuthors(t *testing.T) {
	svc, repo := setupService(t, coauthors.WithSearchLimit(3))
	ctx := context.Background()

	require.NoError(t, repo.AddUser(ctx, &coauthors.User{Login: "mary", DisplayName: "Mary Major", Email: "mary@example.com"}))
	for _, name := range []string{"Mark Twain", "Marcus Aurelius", "Maria Callas", "Bob Ross"} {
		_, err := svc.CreateGuestAuthor(ctx, coauthors.CreateGuestAuthorRequest{
			DisplayName: name,
			Email:       coauthors.Slugify(name) + "@example.com",
		})
		require.NoError(t, err)
	}

	t.Run("limit and order", func(t *testing.T) {
		results, err := svc.SearchAuthors(ctx, coauthors.SearchAuthorsRequest{Query: "mar"})
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "marcus-aurelius", results[0].Login)
		assert.Equal(t, "maria-callas", results[1].Login)
		assert.Equal(t, "mark-twain", results[2].Login)
	})

	t.Run("exclude", func(t *testing.T) {
		results, err := svc.SearchAuthors(ctx, coauthors.SearchAuthorsRequest{
			Query:   "mar",
			Exclude: []string{"marcus-aurelius", "maria-callas", "mark-twain"},
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "mary", results[0].Login)
	})

	t.Run("matches email", func(t *testing.T) {
		results, err := svc.SearchAuthors(ctx, coauthors.SearchAuthorsRequest{Query: "bob-ross@"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Bob Ross", results[0].DisplayName)
	})
}

func TestSearchAuthors_StoredAvatar(t *testing.T) {
	store := memorystorage.New()
	store.Put("avatars/ada.png", []byte("png"))
	svc, repo := setupService(t, coauthors.WithAvatarResolver(
		coauthors.NewStoredAvatarResolver(store, coauthors.NewGravatarResolver(0, "")),
	))
	ctx := context.Background()

	created, err := svc.CreateGuestAuthor(ctx, coauthors.CreateGuestAuthorRequest{DisplayName: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	require.NoError(t, repo.SetPostMeta(ctx, created.ID, coauthors.MetaKey(coauthors.FieldAvatarKey), "avatars/ada.png"))

	results, err := svc.SearchAuthors(ctx, coauthors.SearchAuthorsRequest{Query: "ada"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "memory://avatars/ada.png", results[0].Avatar)
}
