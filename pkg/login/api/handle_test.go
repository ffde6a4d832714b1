package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parishkit/parish-idm/pkg/account"
	"github.com/parishkit/parish-idm/pkg/audit"
	"github.com/parishkit/parish-idm/pkg/cache"
	"github.com/parishkit/parish-idm/pkg/login"
	"github.com/parishkit/parish-idm/pkg/notification"
	"github.com/parishkit/parish-idm/pkg/permission"
	"github.com/parishkit/parish-idm/pkg/tokens"
)

type apiFixture struct {
	repo   *account.InMemoryUserRepository
	hasher account.PasswordHasher
	router chi.Router
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	repo := account.NewInMemoryUserRepository()
	perms := permission.NewInMemoryRepository()
	hasher := account.NewPbkdf2Hasher()
	tokenService := tokens.NewTokenService(
		tokens.NewAccessTokenGenerator("test-access-secret", "parish-idm", "parish-web"),
		tokens.NewRefreshTokenGenerator("test-refresh-secret", "parish-idm", "parish-web"),
	)
	loginService := login.NewLoginService(repo, perms, hasher,
		login.NewLockoutPolicy(login.DefaultMaxFailedAttempts), tokenService, audit.NoopRecorder{}, cache.NoopIDCache{})
	resetService := login.NewPasswordResetService(repo, hasher,
		notification.NewNotificationManager("http://localhost:3000", &notification.MockNotifier{}),
		audit.NoopRecorder{}, time.Hour)

	handle := NewHandle(loginService, resetService, tokens.NewCookieSetter(true, false))
	r := chi.NewRouter()
	handle.Routes(r)

	return &apiFixture{
		repo:   repo,
		hasher: hasher,
		router: r,
	}
}

func (f *apiFixture) createUser(t *testing.T, email, password string, active bool) account.User {
	t.Helper()
	ctx := context.Background()
	salt, err := account.GenerateSalt()
	require.NoError(t, err)
	user, err := f.repo.CreateUser(ctx, account.CreateUserParams{
		Email:       email,
		DisplayName: "Test User",
		IsActive:    active,
	}, salt, "refresh-key")
	require.NoError(t, err)

	if password != "" {
		hash, err := f.hasher.Hash(password, salt)
		require.NoError(t, err)
		require.NoError(t, f.repo.ReplaceCredential(ctx, account.CredentialParams{
			UserID:       user.ID,
			PasswordHash: hash,
			Salt:         salt,
		}))
	}
	return user
}

func (f *apiFixture) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func cookieValue(rec *httptest.ResponseRecorder, name string) string {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func TestPostLogin(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := newAPIFixture(t)
		user := f.createUser(t, "jan@example.com", "secret123", true)

		rec := f.post(t, "/login", LoginRequest{Email: "jan@example.com", Password: "secret123"})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, user.UUID.String(), resp.UserUUID)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.NotNil(t, resp.Permissions)

		assert.NotEmpty(t, cookieValue(rec, tokens.AuthCookieName))
		assert.NotEmpty(t, cookieValue(rec, tokens.RefreshTokenName))
	})

	t.Run("WrongPassword", func(t *testing.T) {
		f := newAPIFixture(t)
		f.createUser(t, "jan@example.com", "secret123", true)

		rec := f.post(t, "/login", LoginRequest{Email: "jan@example.com", Password: "wrong"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Invalid_Login_Or_Password", resp.Error)
	})

	t.Run("UnknownEmailSameError", func(t *testing.T) {
		f := newAPIFixture(t)
		f.createUser(t, "jan@example.com", "secret123", true)

		wrong := f.post(t, "/login", LoginRequest{Email: "jan@example.com", Password: "wrong"})
		unknown := f.post(t, "/login", LoginRequest{Email: "nobody@example.com", Password: "wrong"})

		assert.Equal(t, wrong.Code, unknown.Code)
		assert.Equal(t, wrong.Body.String(), unknown.Body.String(),
			"Wrong password and unknown account must be indistinguishable")
	})

	t.Run("InactiveUser", func(t *testing.T) {
		f := newAPIFixture(t)
		f.createUser(t, "jan@example.com", "secret123", false)

		rec := f.post(t, "/login", LoginRequest{Email: "jan@example.com", Password: "secret123"})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "User_Is_Not_Active", resp.Error)
	})

	t.Run("LockedUser", func(t *testing.T) {
		f := newAPIFixture(t)
		user := f.createUser(t, "jan@example.com", "secret123", true)
		require.NoError(t, f.repo.LockOut(context.Background(), user.ID))

		rec := f.post(t, "/login", LoginRequest{Email: "jan@example.com", Password: "secret123"})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "User_Is_Locked_Out", resp.Error)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		f := newAPIFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader([]byte("{")))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPostTokenRefresh(t *testing.T) {
	t.Run("FromCookie", func(t *testing.T) {
		f := newAPIFixture(t)
		f.createUser(t, "jan@example.com", "secret123", true)
		loginRec := f.post(t, "/login", LoginRequest{Email: "jan@example.com", Password: "secret123"})
		require.Equal(t, http.StatusOK, loginRec.Code)

		req := httptest.NewRequest(http.MethodPost, "/token/refresh", nil)
		req.AddCookie(&http.Cookie{Name: tokens.RefreshTokenName, Value: cookieValue(loginRec, tokens.RefreshTokenName)})
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, cookieValue(rec, tokens.AuthCookieName))
	})

	t.Run("FromBody", func(t *testing.T) {
		f := newAPIFixture(t)
		f.createUser(t, "jan@example.com", "secret123", true)
		loginRec := f.post(t, "/login", LoginRequest{Email: "jan@example.com", Password: "secret123"})

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(loginRec.Body.Bytes(), &resp))

		rec := f.post(t, "/token/refresh", RefreshRequest{RefreshToken: resp.RefreshToken})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Missing", func(t *testing.T) {
		f := newAPIFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/token/refresh", nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Garbage", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := f.post(t, "/token/refresh", RefreshRequest{RefreshToken: "garbage"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestPostLogout(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge, "Logout expires the token cookies")
	}
}

func TestPasswordResetEndpoints(t *testing.T) {
	t.Run("FullFlow", func(t *testing.T) {
		f := newAPIFixture(t)
		user := f.createUser(t, "jan@example.com", "oldSecret", true)

		rec := f.post(t, "/password-reset", ResetInitRequest{Email: "jan@example.com"})
		require.Equal(t, http.StatusOK, rec.Code)

		stored, err := f.repo.GetResetToken(context.Background(), user.ID)
		require.NoError(t, err)

		validate := httptest.NewRequest(http.MethodGet,
			fmt.Sprintf("/password-reset/%s/%s", user.UUID, stored.Token), nil)
		validateRec := httptest.NewRecorder()
		f.router.ServeHTTP(validateRec, validate)
		assert.Equal(t, http.StatusOK, validateRec.Code)

		confirmRec := f.post(t, "/password-reset/confirm", ResetConfirmRequest{
			UserUUID:    user.UUID.String(),
			Token:       stored.Token,
			NewPassword: "newSecret123",
		})
		assert.Equal(t, http.StatusOK, confirmRec.Code)

		loginRec := f.post(t, "/login", LoginRequest{Email: "jan@example.com", Password: "newSecret123"})
		assert.Equal(t, http.StatusOK, loginRec.Code)
	})

	t.Run("LockedAccountStaysLockedAfterReset", func(t *testing.T) {
		f := newAPIFixture(t)
		user := f.createUser(t, "jan@example.com", "oldSecret", true)
		require.NoError(t, f.repo.LockOut(context.Background(), user.ID))

		rec := f.post(t, "/password-reset", ResetInitRequest{Email: "jan@example.com"})
		require.Equal(t, http.StatusOK, rec.Code)
		stored, err := f.repo.GetResetToken(context.Background(), user.ID)
		require.NoError(t, err)

		confirmRec := f.post(t, "/password-reset/confirm", ResetConfirmRequest{
			UserUUID:    user.UUID.String(),
			Token:       stored.Token,
			NewPassword: "newSecret123",
		})
		require.Equal(t, http.StatusOK, confirmRec.Code)

		loginRec := f.post(t, "/login", LoginRequest{Email: "jan@example.com", Password: "newSecret123"})
		assert.Equal(t, http.StatusForbidden, loginRec.Code,
			"A reset proves ownership but does not unlock the account")
	})

	t.Run("UnknownEmailStillSucceeds", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := f.post(t, "/password-reset", ResetInitRequest{Email: "nobody@example.com"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("InvalidTokenOnValidate", func(t *testing.T) {
		f := newAPIFixture(t)
		user := f.createUser(t, "jan@example.com", "oldSecret", true)

		req := httptest.NewRequest(http.MethodGet,
			fmt.Sprintf("/password-reset/%s/%s", user.UUID, "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"), nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("MalformedTokenOnValidate", func(t *testing.T) {
		f := newAPIFixture(t)
		user := f.createUser(t, "jan@example.com", "oldSecret", true)

		req := httptest.NewRequest(http.MethodGet,
			fmt.Sprintf("/password-reset/%s/short", user.UUID), nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
