package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/coauthors/pkg/coauthors"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

// Repository implements coauthors.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

var _ coauthors.Repository = (*Repository)(nil)

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

const insertAttempts = 3

// guestAuthorsCTE flattens guest author posts and their meta into one row per post.
var guestAuthorsCTE = fmt.Sprintf(`
	WITH guests AS (
		SELECT p.id,
		       p.name AS post_name,
		       COALESCE(MAX(m.meta_value) FILTER (WHERE m.meta_key = '%s'), '') AS login,
		       COALESCE(MAX(m.meta_value) FILTER (WHERE m.meta_key = '%s'), p.title) AS display_name,
		       COALESCE(MAX(m.meta_value) FILTER (WHERE m.meta_key = '%s'), '') AS email,
		       COALESCE(MAX(m.meta_value) FILTER (WHERE m.meta_key = '%s'), '') AS avatar_key
		FROM posts p
		LEFT JOIN post_meta m ON m.post_id = p.id
		WHERE p.post_type = '%s'
		GROUP BY p.id
	)`,
	coauthors.MetaKey(coauthors.FieldUserLogin),
	coauthors.MetaKey(coauthors.FieldDisplayName),
	coauthors.MetaKey(coauthors.FieldUserEmail),
	coauthors.MetaKey(coauthors.FieldAvatarKey),
	coauthors.GuestAuthorPostType,
)

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry for %s: %w", pgErr.ConstraintName, err)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found: %w", err)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// User operations

// AddUser inserts a registered account.
func (r *Repository) AddUser(ctx context.Context, user *coauthors.User) error {
	if user.Nicename == "" {
		user.Nicename = user.Login
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO users (login, display_name, email, nicename, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		user.Login, user.DisplayName, user.Email, user.Nicename, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		return r.handlePostgresError("create user", err)
	}
	return nil
}

func (r *Repository) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))`, email).Scan(&exists)
	if err != nil {
		return false, r.handlePostgresError("user exists", err)
	}
	return exists, nil
}

// Guest author operations

func (r *Repository) GetGuestAuthorBy(ctx context.Context, field, value string) (*coauthors.GuestAuthor, error) {
	var cond string
	var arg interface{} = value
	switch field {
	case coauthors.FieldID:
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, coauthors.ErrGuestAuthorNotFound
		}
		cond, arg = "id = $1", id
	case coauthors.FieldPostName:
		cond = "post_name = $1"
	case coauthors.FieldUserLogin:
		cond = "login = $1"
	case coauthors.FieldUserEmail:
		cond = "lower(email) = lower($1)"
	default:
		return nil, coauthors.ErrUnsupportedField
	}

	query := guestAuthorsCTE + `
		SELECT id, post_name, login, display_name, email, avatar_key
		FROM guests WHERE ` + cond + `
		ORDER BY id LIMIT 1`

	var g coauthors.GuestAuthor
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&g.ID, &g.PostName, &g.Login, &g.DisplayName, &g.Email, &g.AvatarKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coauthors.ErrGuestAuthorNotFound
		}
		return nil, r.handlePostgresError("get guest author", err)
	}
	g.Nicename = g.Login
	return &g, nil
}

func (r *Repository) InsertGuestAuthorPost(ctx context.Context, post *coauthors.GuestAuthorPost) (int64, error) {
	var lastErr error
	for attempt := 0; attempt < insertAttempts; attempt++ {
		name, err := r.uniquePostName(ctx, post.PostType, post.Name)
		if err != nil {
			return 0, err
		}

		query := `
			INSERT INTO posts (post_type, title, name, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`

		var id int64
		err = r.db.QueryRow(ctx, query,
			post.PostType, post.Title, name, post.Status, post.CreatedAt, post.UpdatedAt).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !isUniqueViolation(err) {
			return 0, r.handlePostgresError("insert post", err)
		}
		lastErr = err
	}
	return 0, fmt.Errorf("%w: %v", coauthors.ErrPostNotCreated, lastErr)
}

// uniquePostName appends -2, -3, ... until the name is unused for the post type.
func (r *Repository) uniquePostName(ctx context.Context, postType, name string) (string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name FROM posts WHERE post_type = $1 AND (name = $2 OR name LIKE $3)`,
		postType, name, escapeLike(name)+"-%")
	if err != nil {
		return "", r.handlePostgresError("unique post name", err)
	}
	defer rows.Close()

	taken := make(map[string]struct{})
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return "", err
		}
		taken[n] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	if _, ok := taken[name]; !ok {
		return name, nil
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", name, i)
		if _, ok := taken[candidate]; !ok {
			return candidate, nil
		}
	}
}

func (r *Repository) SetPostMeta(ctx context.Context, postID int64, key, value string) error {
	query := `
		INSERT INTO post_meta (post_id, meta_key, meta_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (post_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value`

	if _, err := r.db.Exec(ctx, query, postID, key, value); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return coauthors.ErrGuestAuthorNotFound
		}
		return r.handlePostgresError("set post meta", err)
	}
	return nil
}

// Taxonomy operations

func (r *Repository) UpsertAuthorTerm(ctx context.Context, author *coauthors.Author) (*coauthors.Term, error) {
	term := coauthors.AuthorTermFor(author)
	query := `
		INSERT INTO terms (taxonomy, slug, name, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (taxonomy, slug) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description
		RETURNING id`

	if err := r.db.QueryRow(ctx, query,
		term.Taxonomy, term.Slug, term.Name, term.Description).Scan(&term.ID); err != nil {
		return nil, r.handlePostgresError("upsert author term", err)
	}
	return term, nil
}

func (r *Repository) SetPostTerms(ctx context.Context, postID int64, taxonomy string, slugs []string) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			DELETE FROM term_relationships tr
			USING terms t
			WHERE tr.term_id = t.id AND tr.post_id = $1 AND t.taxonomy = $2`, postID, taxonomy)
		if err != nil {
			return r.handlePostgresError("clear post terms", err)
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO term_relationships (post_id, term_id)
			SELECT $1, id FROM terms WHERE taxonomy = $2 AND slug = ANY($3)
			ON CONFLICT DO NOTHING`, postID, taxonomy, slugs)
		if err != nil {
			return r.handlePostgresError("set post terms", err)
		}
		if int(tag.RowsAffected()) != len(slugs) {
			return fmt.Errorf("only %d of %d terms found in taxonomy %s", tag.RowsAffected(), len(slugs), taxonomy)
		}
		return nil
	})
}

// PostTerms returns the term slugs attached to a post.
func (r *Repository) PostTerms(ctx context.Context, postID int64) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT t.slug FROM term_relationships tr
		JOIN terms t ON t.id = tr.term_id
		WHERE tr.post_id = $1
		ORDER BY t.slug`, postID)
	if err != nil {
		return nil, r.handlePostgresError("post terms", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Search

func (r *Repository) SearchAuthors(ctx context.Context, params coauthors.SearchParams) ([]*coauthors.Author, error) {
	exclude := params.Exclude
	if exclude == nil {
		exclude = []string{}
	}
	var limit interface{}
	if params.Limit > 0 {
		limit = params.Limit
	}

	query := guestAuthorsCTE + `
		SELECT id, type, login, display_name, email, nicename, avatar_key FROM (
			SELECT DISTINCT ON (login) id, type, login, display_name, email, nicename, avatar_key
			FROM (
				SELECT id, 'wpuser' AS type, 0 AS priority, login, display_name, email, nicename, '' AS avatar_key
				FROM users
				UNION ALL
				SELECT id, 'guest-author', 1, login, display_name, email, login, avatar_key
				FROM guests
			) candidates
			WHERE login <> ''
			  AND NOT (login = ANY($2::text[]))
			  AND ($1::text = '' OR strpos(lower(login), $1) > 0
			       OR strpos(lower(display_name), $1) > 0
			       OR strpos(lower(email), $1) > 0
			       OR strpos(lower(nicename), $1) > 0)
			ORDER BY login, priority, id
		) found
		ORDER BY lower(display_name), login
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, strings.ToLower(params.Query), exclude, limit)
	if err != nil {
		return nil, r.handlePostgresError("search authors", err)
	}
	defer rows.Close()

	var authors []*coauthors.Author
	for rows.Next() {
		var a coauthors.Author
		var authorType string
		if err := rows.Scan(&a.ID, &authorType, &a.Login, &a.DisplayName, &a.Email, &a.Nicename, &a.AvatarKey); err != nil {
			return nil, err
		}
		a.Type = coauthors.AuthorType(authorType)
		authors = append(authors, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("search authors", err)
	}
	return authors, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
