package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parishkit/parish-idm/pkg/account"
	"github.com/parishkit/parish-idm/pkg/cache"
	"github.com/parishkit/parish-idm/pkg/permission"
	"github.com/parishkit/parish-idm/pkg/tokens"
)

const (
	testSecret   = "test-access-secret"
	testIssuer   = "parish-idm"
	testAudience = "parish-web"
)

type middlewareFixture struct {
	users     *account.InMemoryUserRepository
	perms     *permission.InMemoryRepository
	generator *tokens.AccessTokenGenerator
	router    chi.Router
}

// newMiddlewareFixture wires a router the way the server does: verifier,
// identity middleware, then a probe endpoint reporting the resolved identity.
func newMiddlewareFixture(t *testing.T) *middlewareFixture {
	t.Helper()
	users := account.NewInMemoryUserRepository()
	perms := permission.NewInMemoryRepository()
	loader := NewLoader(users, perms, cache.NoopIDCache{})

	r := chi.NewRouter()
	r.Use(Verifier(NewVerifier(testSecret, testIssuer, testAudience)))
	r.Use(Middleware(loader))
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		id := FromContext(r.Context())
		if !id.IsAuthenticated() {
			w.Write([]byte("anonymous"))
			return
		}
		w.Write([]byte(id.UserUUID().String()))
	})
	r.With(RequireAuthenticated).Get("/private", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.With(Require(Identity.CanUnlockUsers)).Post("/unlock", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	return &middlewareFixture{
		users:     users,
		perms:     perms,
		generator: tokens.NewAccessTokenGenerator(testSecret, testIssuer, testAudience),
		router:    r,
	}
}

func (f *middlewareFixture) createUser(t *testing.T, email string) account.User {
	t.Helper()
	user, err := f.users.CreateUser(context.Background(), account.CreateUserParams{
		Email:    email,
		IsActive: true,
	}, "salt", "refresh-key")
	require.NoError(t, err)
	return user
}

func (f *middlewareFixture) tokenFor(t *testing.T, user account.User) string {
	t.Helper()
	tokenStr, _, err := f.generator.GenerateToken(user.UUID.String(), time.Minute, user.DisplayName, nil)
	require.NoError(t, err)
	return tokenStr
}

func (f *middlewareFixture) get(path string, configure func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if configure != nil {
		configure(req)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func withCookie(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: tokens.AuthCookieName, Value: token})
	}
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func TestMiddleware(t *testing.T) {
	t.Run("NoTokenIsAnonymous", func(t *testing.T) {
		f := newMiddlewareFixture(t)
		rec := f.get("/whoami", nil)

		assert.Equal(t, http.StatusOK, rec.Code, "A missing token is a valid anonymous state")
		assert.Equal(t, "anonymous", rec.Body.String())
	})

	t.Run("ValidBearerToken", func(t *testing.T) {
		f := newMiddlewareFixture(t)
		user := f.createUser(t, "jan@example.com")

		rec := f.get("/whoami", withBearer(f.tokenFor(t, user)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, user.UUID.String(), rec.Body.String())
	})

	t.Run("ValidCookieToken", func(t *testing.T) {
		f := newMiddlewareFixture(t)
		user := f.createUser(t, "jan@example.com")

		rec := f.get("/whoami", withCookie(f.tokenFor(t, user)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, user.UUID.String(), rec.Body.String())
	})

	t.Run("CookieTakesPrecedenceOverHeader", func(t *testing.T) {
		f := newMiddlewareFixture(t)
		cookieUser := f.createUser(t, "cookie@example.com")
		headerUser := f.createUser(t, "header@example.com")

		rec := f.get("/whoami", func(r *http.Request) {
			withCookie(f.tokenFor(t, cookieUser))(r)
			withBearer(f.tokenFor(t, headerUser))(r)
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, cookieUser.UUID.String(), rec.Body.String())
	})

	t.Run("GarbageTokenIsRejected", func(t *testing.T) {
		f := newMiddlewareFixture(t)
		rec := f.get("/whoami", withBearer("garbage"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code,
			"A present-but-invalid token is not anonymous")
	})

	t.Run("ExpiredTokenIsRejected", func(t *testing.T) {
		f := newMiddlewareFixture(t)
		user := f.createUser(t, "jan@example.com")
		tokenStr, _, err := f.generator.GenerateToken(user.UUID.String(), -time.Second, "", nil)
		require.NoError(t, err)

		rec := f.get("/whoami", withBearer(tokenStr))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("WrongIssuerIsRejected", func(t *testing.T) {
		f := newMiddlewareFixture(t)
		user := f.createUser(t, "jan@example.com")
		other := tokens.NewAccessTokenGenerator(testSecret, "someone-else", testAudience)
		tokenStr, _, err := other.GenerateToken(user.UUID.String(), time.Minute, "", nil)
		require.NoError(t, err)

		rec := f.get("/whoami", withBearer(tokenStr))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("UnknownSubjectIsRejected", func(t *testing.T) {
		f := newMiddlewareFixture(t)
		ghost := account.User{UUID: uuid.New()}

		rec := f.get("/whoami", withBearer(f.tokenFor(t, ghost)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("PermissionsComeFromStorageNotClaims", func(t *testing.T) {
		f := newMiddlewareFixture(t)
		user := f.createUser(t, "jan@example.com")

		// Token minted before the grant; the claim snapshot is empty.
		tokenStr := f.tokenFor(t, user)
		require.NoError(t, f.perms.Assign(context.Background(), permission.Assignment{
			UserID: user.ID, PermissionID: permission.UnlockUsers,
		}))

		req := httptest.NewRequest(http.MethodPost, "/unlock", nil)
		withBearer(tokenStr)(req)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code,
			"A grant made after issuance is honored on the next request")
	})
}

func TestRequireMiddlewares(t *testing.T) {
	t.Run("RequireAuthenticatedRejectsAnonymous", func(t *testing.T) {
		f := newMiddlewareFixture(t)
		rec := f.get("/private", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("RequireAuthenticatedPassesUser", func(t *testing.T) {
		f := newMiddlewareFixture(t)
		user := f.createUser(t, "jan@example.com")
		rec := f.get("/private", withBearer(f.tokenFor(t, user)))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("RequireCapability", func(t *testing.T) {
		f := newMiddlewareFixture(t)
		user := f.createUser(t, "jan@example.com")

		post := func(configure func(*http.Request)) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/unlock", nil)
			if configure != nil {
				configure(req)
			}
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, req)
			return rec
		}

		assert.Equal(t, http.StatusUnauthorized, post(nil).Code)
		assert.Equal(t, http.StatusForbidden, post(withBearer(f.tokenFor(t, user))).Code,
			"Authenticated without the capability is forbidden, not unauthorized")

		require.NoError(t, f.perms.Assign(context.Background(), permission.Assignment{
			UserID: user.ID, PermissionID: permission.UnlockUsers,
		}))
		assert.Equal(t, http.StatusOK, post(withBearer(f.tokenFor(t, user))).Code)
	})
}
