package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/parishkit/parish-idm/pkg/login"
	"github.com/parishkit/parish-idm/pkg/tokens"
)

// Handle serves the authentication endpoints
type Handle struct {
	loginService *login.LoginService
	resetService *login.PasswordResetService
	cookieSetter tokens.CookieSetter
}

// NewHandle creates a new Handle
func NewHandle(loginService *login.LoginService, resetService *login.PasswordResetService, cookieSetter tokens.CookieSetter) Handle {
	return Handle{
		loginService: loginService,
		resetService: resetService,
		cookieSetter: cookieSetter,
	}
}

// Routes mounts the auth endpoints on a router
func (h Handle) Routes(r chi.Router) {
	r.Post("/login", h.PostLogin)
	r.Post("/logout", h.PostLogout)
	r.Post("/token/refresh", h.PostTokenRefresh)
	r.Post("/password-reset", h.PostPasswordResetInit)
	r.Get("/password-reset/{userUuid}/{token}", h.GetPasswordResetValidate)
	r.Post("/password-reset/confirm", h.PostPasswordResetConfirm)
}

// PostLogin handles credential login
func (h Handle) PostLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	var params login.LoginParams
	if err := copier.Copy(&params, req); err != nil {
		renderError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	result, err := h.loginService.Login(r.Context(), params, req.Password)
	if err != nil {
		h.renderLoginError(w, r, err)
		return
	}

	h.setTokenCookies(w, result.Tokens)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, loginResponse(result))
}

// PostLogout clears the token cookies
func (h Handle) PostLogout(w http.ResponseWriter, r *http.Request) {
	h.cookieSetter.ClearCookie(w, tokens.AuthCookieName)
	h.cookieSetter.ClearCookie(w, tokens.RefreshTokenName)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, StatusResponse{Success: true})
}

// PostTokenRefresh exchanges a refresh token for a fresh token pair
func (h Handle) PostTokenRefresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := ""
	if cookie, err := r.Cookie(tokens.RefreshTokenName); err == nil {
		refreshToken = cookie.Value
	}
	if refreshToken == "" {
		var req RefreshRequest
		if err := render.DecodeJSON(r.Body, &req); err == nil {
			refreshToken = req.RefreshToken
		}
	}
	if refreshToken == "" {
		renderError(w, r, http.StatusBadRequest, "missing refresh token")
		return
	}

	result, err := h.loginService.Refresh(r.Context(), refreshToken)
	if err != nil {
		h.renderLoginError(w, r, err)
		return
	}

	h.setTokenCookies(w, result.Tokens)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, loginResponse(result))
}

// PostPasswordResetInit starts the password reset flow. The response is
// success for unknown identifiers too, so callers cannot probe for accounts.
func (h Handle) PostPasswordResetInit(w http.ResponseWriter, r *http.Request) {
	var req ResetInitRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.resetService.RequestReset(r.Context(), login.LoginParams{Email: req.Email, Phone: req.Phone})
	if err != nil {
		if errors.Is(err, login.ErrValidation) {
			renderError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("Failed to process reset request", "err", err)
		renderError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, StatusResponse{Success: true})
}

// GetPasswordResetValidate checks a reset token without consuming it
func (h Handle) GetPasswordResetValidate(w http.ResponseWriter, r *http.Request) {
	userUUID, err := uuid.Parse(chi.URLParam(r, "userUuid"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "malformed user id")
		return
	}

	if err := h.resetService.ValidateToken(r.Context(), userUUID, chi.URLParam(r, "token")); err != nil {
		h.renderResetError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, StatusResponse{Success: true})
}

// PostPasswordResetConfirm consumes a reset token and sets a new password
func (h Handle) PostPasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req ResetConfirmRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	userUUID, err := uuid.Parse(req.UserUUID)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "malformed user id")
		return
	}

	if err := h.resetService.ResetPassword(r.Context(), userUUID, req.Token, req.NewPassword); err != nil {
		h.renderResetError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, StatusResponse{Success: true})
}

func (h Handle) setTokenCookies(w http.ResponseWriter, pair tokens.TokenPair) {
	h.cookieSetter.SetCookie(w, tokens.AuthCookieName, pair.AccessToken, pair.AccessExpiresAt)
	h.cookieSetter.SetCookie(w, tokens.RefreshTokenName, pair.RefreshToken, pair.RefreshExpiresAt)
}

func (h Handle) renderLoginError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, login.ErrUserNotActive), errors.Is(err, login.ErrUserLockedOut):
		renderError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, login.ErrInvalidLoginOrPassword), errors.Is(err, tokens.ErrInvalidToken):
		renderError(w, r, http.StatusUnauthorized, login.ErrInvalidLoginOrPassword.Error())
	case errors.Is(err, login.ErrValidation):
		renderError(w, r, http.StatusBadRequest, err.Error())
	default:
		slog.Error("Login failed with unexpected error", "err", err)
		renderError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func (h Handle) renderResetError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, login.ErrValidation):
		renderError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, login.ErrInvalidResetToken):
		renderError(w, r, http.StatusUnauthorized, err.Error())
	default:
		slog.Error("Reset failed with unexpected error", "err", err)
		renderError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}

func loginResponse(result login.LoginResult) LoginResponse {
	permissions := result.Permissions
	if permissions == nil {
		permissions = []int{}
	}
	return LoginResponse{
		UserUUID:    result.User.UUID.String(),
		DisplayName: result.User.DisplayName,
		Permissions: permissions,
		TokenResponse: TokenResponse{
			AccessToken:  result.Tokens.AccessToken,
			RefreshToken: result.Tokens.RefreshToken,
			ExpiresAt:    result.Tokens.AccessExpiresAt.Unix(),
		},
	}
}
