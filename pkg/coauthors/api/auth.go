package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/tendant/chi-demo/app"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	Subject      string
	Capabilities []string
	// AllCapabilities marks trusted callers such as API key clients.
	AllCapabilities bool
}

// Can reports whether the caller holds capability.
func (i *Identity) Can(capability string) bool {
	if i == nil {
		return false
	}
	if i.AllCapabilities {
		return true
	}
	for _, c := range i.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the caller identity.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the caller identity, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	return identity, ok && identity != nil
}

// JWTIdentity verifies bearer tokens and turns their claims into an
// Identity. Requests without a valid token pass through anonymously so
// RequireCapability can answer them.
func JWTIdentity(ta *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	verify := jwtauth.Verifier(ta)
	return func(next http.Handler) http.Handler {
		attach := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				if err != nil && !errors.Is(err, jwtauth.ErrNoTokenFound) {
					slog.DebugContext(r.Context(), "Rejected bearer token", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			identity := &Identity{Capabilities: capabilitiesClaim(claims["caps"])}
			if sub, ok := claims["sub"].(string); ok {
				identity.Subject = sub
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
		return verify(attach)
	}
}

// capabilitiesClaim accepts either a JSON array or a space separated string.
func capabilitiesClaim(v interface{}) []string {
	switch t := v.(type) {
	case string:
		return strings.Fields(t)
	case []string:
		return t
	case []interface{}:
		caps := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				caps = append(caps, s)
			}
		}
		return caps
	}
	return nil
}

// GrantAll marks every request as a caller holding all capabilities. It is
// placed behind authentication that already rejected unknown callers.
func GrantAll(subject string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := &Identity{Subject: subject, AllCapabilities: true}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// APIKeyHeader carries the raw API key.
const APIKeyHeader = "X-API-KEY"

// APIKeyIdentity authenticates callers by the key in APIKeyHeader. Keys are
// configured by their SHA-256 hex digest; a valid key holds every
// capability. Rejected callers get a 401 rest_forbidden error.
func APIKeyIdentity(keySHA256 string) (func(http.Handler) http.Handler, error) {
	check, err := app.ApiKeyMiddleware(app.ApiKeyConfig{
		APIKeyHeader: APIKeyHeader,
		APIKeys: map[string]string{
			"key1": keySHA256,
		},
	})
	if err != nil {
		return nil, err
	}
	return func(next http.Handler) http.Handler {
		granted := GrantAll("api-key")(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accepted := false
			check(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				accepted = true
			})).ServeHTTP(&discardResponse{header: http.Header{}}, r)

			if !accepted {
				_ = render.Render(w, r, ErrUnauthorized())
				return
			}
			granted.ServeHTTP(w, r)
		})
	}, nil
}

// discardResponse swallows the plain text rejection written by the key check.
type discardResponse struct {
	header http.Header
}

func (d *discardResponse) Header() http.Header         { return d.header }
func (d *discardResponse) Write(b []byte) (int, error) { return len(b), nil }
func (d *discardResponse) WriteHeader(int)             {}

// RequireCapability answers 401 for anonymous callers and 403 for callers
// without capability.
func RequireCapability(capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				_ = render.Render(w, r, ErrUnauthorized())
				return
			}
			if !identity.Can(capability) {
				slog.InfoContext(r.Context(), "Capability check failed", "subject", identity.Subject, "capability", capability)
				_ = render.Render(w, r, ErrForbidden())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
