package identity

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/parishkit/parish-idm/pkg/account"
	"github.com/parishkit/parish-idm/pkg/cache"
	"github.com/parishkit/parish-idm/pkg/permission"
	"github.com/parishkit/parish-idm/pkg/tokens"
)

// contextKey is a value for use with context.WithValue. It's used as a
// pointer so it fits in an interface{} without allocation.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "identity context value " + k.name
}

var identityKey = &contextKey{"Identity"}

// FromContext returns the identity attached to the request context. Requests
// that did not pass through the middleware are anonymous.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey).(Identity); ok {
		return id
	}
	return Anonymous()
}

// NewContext attaches an identity to the context. Exposed for handler tests.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// NewVerifier builds the jwtauth verifier for access tokens. Issuer and
// audience are validated together with signature and expiry; any failure is
// a single unauthorized state.
func NewVerifier(secret, issuer, audience string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil,
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
	)
}

// TokenFromCookie extracts the token from the Authorization cookie
func TokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(tokens.AuthCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(cookie.Value, "Bearer ")
}

// Verifier verifies the token carried by the request. The Authorization
// cookie takes precedence over the Authorization: Bearer header.
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return jwtauth.Verify(ja, TokenFromCookie, jwtauth.TokenFromHeader)(next)
	}
}

// Loader resolves the caller's user record and current permission set. The
// permission set is reloaded from storage rather than trusted from token
// claims: permissions may have changed since the token was issued.
type Loader struct {
	users       account.UserRepository
	permissions permission.Repository
	idCache     cache.IDCache
}

// NewLoader creates a new Loader
func NewLoader(users account.UserRepository, permissions permission.Repository, idCache cache.IDCache) *Loader {
	return &Loader{
		users:       users,
		permissions: permissions,
		idCache:     idCache,
	}
}

// Load builds the identity for a verified subject claim
func (l *Loader) Load(ctx context.Context, userUUID uuid.UUID) (Identity, error) {
	user, err := l.lookup(ctx, userUUID)
	if err != nil {
		return Anonymous(), err
	}

	permissionIDs, err := l.permissions.FindPermissionIDsByUserID(ctx, user.ID)
	if err != nil {
		return Anonymous(), err
	}
	return New(user.ID, user.UUID, user.DisplayName, permissionIDs), nil
}

func (l *Loader) lookup(ctx context.Context, userUUID uuid.UUID) (account.User, error) {
	if id, ok := l.idCache.GetUserID(ctx, userUUID); ok {
		user, err := l.users.GetUserByID(ctx, id)
		if err == nil && user.UUID == userUUID {
			return user, nil
		}
	}

	user, err := l.users.GetUserByUUID(ctx, userUUID)
	if err != nil {
		return account.User{}, err
	}
	l.idCache.SetUserID(ctx, userUUID, user.ID)
	return user, nil
}

// Middleware turns the verification result into an Identity on the request
// context. No token yields an anonymous identity and the request proceeds;
// an invalid token is rejected outright. The distinction matters: anonymous
// is a valid state, a bad token is not.
func Middleware(loader *Loader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, _, err := jwtauth.FromContext(ctx)
			if errors.Is(err, jwtauth.ErrNoTokenFound) {
				next.ServeHTTP(w, r.WithContext(NewContext(ctx, Anonymous())))
				return
			}
			if err != nil || token == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			userUUID, err := uuid.Parse(token.Subject())
			if err != nil {
				slog.Debug("Token subject is not a uuid", "subject", token.Subject())
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			id, err := loader.Load(ctx, userUUID)
			if err != nil {
				slog.Debug("Failed to resolve token subject", "user_uuid", userUUID, "err", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(NewContext(ctx, id)))
		})
	}
}

// RequireAuthenticated rejects anonymous requests with 401
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).IsAuthenticated() {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Require returns a middleware enforcing a capability predicate. Returns 401
// when anonymous and 403 when authenticated without the capability.
func Require(check func(Identity) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := FromContext(r.Context())
			if !id.IsAuthenticated() {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !check(id) {
				slog.Warn("User lacks required permission", "user_uuid", id.UserUUID())
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
