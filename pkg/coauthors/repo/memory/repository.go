package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tendant/coauthors/pkg/coauthors"
)

// Repository implements coauthors.Repository using in-memory storage
type Repository struct {
	mu         sync.RWMutex
	users      map[int64]*coauthors.User
	posts      map[int64]*coauthors.GuestAuthorPost
	postMeta   map[int64]map[string]string
	terms      map[string]*coauthors.Term // slug -> term
	postTerms  map[int64][]string         // post_id -> term slugs
	nextUserID int64
	nextPostID int64
	nextTermID int64
}

var _ coauthors.Repository = (*Repository)(nil)

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		users:     make(map[int64]*coauthors.User),
		posts:     make(map[int64]*coauthors.GuestAuthorPost),
		postMeta:  make(map[int64]map[string]string),
		terms:     make(map[string]*coauthors.Term),
		postTerms: make(map[int64][]string),
	}
}

// AddUser registers a user account. Emails are unique across users.
func (r *Repository) AddUser(ctx context.Context, user *coauthors.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("user with email %s already exists", user.Email)
		}
	}

	r.nextUserID++
	userCopy := *user
	userCopy.ID = r.nextUserID
	if userCopy.Nicename == "" {
		userCopy.Nicename = userCopy.Login
	}
	if userCopy.CreatedAt.IsZero() {
		userCopy.CreatedAt = time.Now().UTC()
	}
	r.users[userCopy.ID] = &userCopy
	user.ID = userCopy.ID
	return nil
}

// User operations

func (r *Repository) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

// Guest author operations

func (r *Repository) GetGuestAuthorBy(ctx context.Context, field, value string) (*coauthors.GuestAuthor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch field {
	case coauthors.FieldID:
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, coauthors.ErrGuestAuthorNotFound
		}
		post, ok := r.posts[id]
		if !ok {
			return nil, coauthors.ErrGuestAuthorNotFound
		}
		return r.guestAuthor(post), nil
	case coauthors.FieldPostName:
		for _, post := range r.posts {
			if post.Name == value {
				return r.guestAuthor(post), nil
			}
		}
	case coauthors.FieldUserEmail, coauthors.FieldUserLogin:
		key := coauthors.MetaKey(field)
		for _, id := range r.sortedPostIDs() {
			stored := r.postMeta[id][key]
			if stored == "" {
				continue
			}
			if stored == value || (field == coauthors.FieldUserEmail && strings.EqualFold(stored, value)) {
				return r.guestAuthor(r.posts[id]), nil
			}
		}
	default:
		return nil, coauthors.ErrUnsupportedField
	}
	return nil, coauthors.ErrGuestAuthorNotFound
}

func (r *Repository) InsertGuestAuthorPost(ctx context.Context, post *coauthors.GuestAuthorPost) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if post.Title == "" {
		return 0, coauthors.ErrPostNotCreated
	}

	r.nextPostID++
	postCopy := *post
	postCopy.ID = r.nextPostID
	postCopy.Name = r.uniquePostName(post.Name)
	r.posts[postCopy.ID] = &postCopy
	r.postMeta[postCopy.ID] = make(map[string]string)
	return postCopy.ID, nil
}

func (r *Repository) SetPostMeta(ctx context.Context, postID int64, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta, ok := r.postMeta[postID]
	if !ok {
		return coauthors.ErrGuestAuthorNotFound
	}
	meta[key] = value
	r.posts[postID].UpdatedAt = time.Now().UTC()
	return nil
}

// Taxonomy operations

func (r *Repository) UpsertAuthorTerm(ctx context.Context, author *coauthors.Author) (*coauthors.Term, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	term := coauthors.AuthorTermFor(author)
	if existing, ok := r.terms[term.Slug]; ok {
		existing.Name = term.Name
		existing.Description = term.Description
		termCopy := *existing
		return &termCopy, nil
	}

	r.nextTermID++
	term.ID = r.nextTermID
	r.terms[term.Slug] = term
	termCopy := *term
	return &termCopy, nil
}

func (r *Repository) SetPostTerms(ctx context.Context, postID int64, taxonomy string, slugs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[postID]; !ok {
		return coauthors.ErrGuestAuthorNotFound
	}
	for _, slug := range slugs {
		term, ok := r.terms[slug]
		if !ok || term.Taxonomy != taxonomy {
			return fmt.Errorf("term %s not found in taxonomy %s", slug, taxonomy)
		}
	}
	r.postTerms[postID] = append([]string(nil), slugs...)
	return nil
}

// PostTerms returns the term slugs attached to a post.
func (r *Repository) PostTerms(postID int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.postTerms[postID]...)
}

// Search

func (r *Repository) SearchAuthors(ctx context.Context, params coauthors.SearchParams) ([]*coauthors.Author, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := strings.ToLower(params.Query)
	excluded := make(map[string]struct{}, len(params.Exclude))
	for _, login := range params.Exclude {
		excluded[login] = struct{}{}
	}

	seen := make(map[string]struct{})
	var result []*coauthors.Author
	add := func(a *coauthors.Author) {
		if a.Login == "" {
			return
		}
		if _, skip := excluded[a.Login]; skip {
			return
		}
		if _, dup := seen[a.Login]; dup {
			return
		}
		if !matches(a, query) {
			return
		}
		seen[a.Login] = struct{}{}
		result = append(result, a)
	}

	for _, u := range r.users {
		add(&coauthors.Author{
			ID:          u.ID,
			Type:        coauthors.AuthorTypeUser,
			Login:       u.Login,
			DisplayName: u.DisplayName,
			Email:       u.Email,
			Nicename:    u.Nicename,
		})
	}
	for _, id := range r.sortedPostIDs() {
		add(r.guestAuthor(r.posts[id]).AsAuthor())
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := strings.ToLower(result[i].DisplayName), strings.ToLower(result[j].DisplayName)
		if a != b {
			return a < b
		}
		return result[i].Login < result[j].Login
	})

	if params.Limit > 0 && len(result) > params.Limit {
		result = result[:params.Limit]
	}
	return result, nil
}

// Helpers

func matches(a *coauthors.Author, query string) bool {
	if query == "" {
		return true
	}
	for _, field := range []string{a.Login, a.DisplayName, a.Email, a.Nicename} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func (r *Repository) guestAuthor(post *coauthors.GuestAuthorPost) *coauthors.GuestAuthor {
	meta := r.postMeta[post.ID]
	displayName := meta[coauthors.MetaKey(coauthors.FieldDisplayName)]
	if displayName == "" {
		displayName = post.Title
	}
	login := meta[coauthors.MetaKey(coauthors.FieldUserLogin)]
	return &coauthors.GuestAuthor{
		ID:          post.ID,
		Login:       login,
		DisplayName: displayName,
		Email:       meta[coauthors.MetaKey(coauthors.FieldUserEmail)],
		Nicename:    login,
		AvatarKey:   meta[coauthors.MetaKey(coauthors.FieldAvatarKey)],
		PostName:    post.Name,
	}
}

func (r *Repository) sortedPostIDs() []int64 {
	ids := make([]int64, 0, len(r.posts))
	for id := range r.posts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// uniquePostName appends -2, -3, ... until the name is unused.
func (r *Repository) uniquePostName(name string) string {
	taken := make(map[string]struct{}, len(r.posts))
	for _, p := range r.posts {
		taken[p.Name] = struct{}{}
	}
	if _, ok := taken[name]; !ok {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", name, i)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
