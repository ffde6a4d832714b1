package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/parishkit/parish-idm/pkg/account"
	"github.com/parishkit/parish-idm/pkg/identity"
	"github.com/parishkit/parish-idm/pkg/permission"
)

// Handle serves the administrative account endpoints
type Handle struct {
	accountService *account.AccountService
	users          account.UserRepository
	permissions    permission.Repository
}

// NewHandle creates a new Handle
func NewHandle(accountService *account.AccountService, users account.UserRepository, permissions permission.Repository) Handle {
	return Handle{
		accountService: accountService,
		users:          users,
		permissions:    permissions,
	}
}

// Routes mounts the admin endpoints. The caller must have wrapped the router
// with the identity middleware; each route enforces its capability here.
func (h Handle) Routes(r chi.Router) {
	r.With(identity.Require(identity.Identity.CanUnlockUsers)).
		Post("/users/{userUuid}/unlock", h.PostUnlock)
	r.With(identity.Require(identity.Identity.CanEditUsers)).
		Post("/users/{userUuid}/revoke-sessions", h.PostRevokeSessions)
	r.With(identity.Require(identity.Identity.CanEditUsers)).
		Put("/users/{userUuid}/active", h.PutActive)
	r.With(identity.Require(identity.Identity.CanManageUserPermissions)).
		Post("/users/{userUuid}/permissions/{permissionId}", h.PostAssignPermission)
	r.With(identity.Require(identity.Identity.CanManageUserPermissions)).
		Delete("/users/{userUuid}/permissions/{permissionId}", h.DeleteRevokePermission)
}

type activeRequest struct {
	Active bool `json:"active"`
}

type statusResponse struct {
	Success bool `json:"success"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// PostUnlock clears the lockout state of a user. This is the only path that
// clears a lockout.
func (h Handle) PostUnlock(w http.ResponseWriter, r *http.Request) {
	userUUID, ok := h.parseUserUUID(w, r)
	if !ok {
		return
	}
	if err := h.accountService.Unlock(r.Context(), userUUID); err != nil {
		h.renderAccountError(w, r, err)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, statusResponse{Success: true})
}

// PostRevokeSessions rotates the user's refresh-signing key, invalidating
// all outstanding refresh tokens for that user
func (h Handle) PostRevokeSessions(w http.ResponseWriter, r *http.Request) {
	userUUID, ok := h.parseUserUUID(w, r)
	if !ok {
		return
	}
	if err := h.accountService.RevokeRefreshTokens(r.Context(), userUUID); err != nil {
		h.renderAccountError(w, r, err)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, statusResponse{Success: true})
}

// PutActive enables or disables an account
func (h Handle) PutActive(w http.ResponseWriter, r *http.Request) {
	userUUID, ok := h.parseUserUUID(w, r)
	if !ok {
		return
	}
	var req activeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.accountService.SetActive(r.Context(), userUUID, req.Active); err != nil {
		h.renderAccountError(w, r, err)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, statusResponse{Success: true})
}

// PostAssignPermission grants a permission to a user
func (h Handle) PostAssignPermission(w http.ResponseWriter, r *http.Request) {
	userUUID, ok := h.parseUserUUID(w, r)
	if !ok {
		return
	}
	permissionID, ok := h.parsePermissionID(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetUserByUUID(r.Context(), userUUID)
	if err != nil {
		h.renderAccountError(w, r, err)
		return
	}

	err = h.permissions.Assign(r.Context(), permission.Assignment{
		UserID:       user.ID,
		PermissionID: permissionID,
		AssignedBy:   identity.FromContext(r.Context()).UserID(),
		AssignedAt:   time.Now().UTC(),
	})
	switch {
	case errors.Is(err, permission.ErrAlreadyAssigned):
		renderError(w, r, http.StatusConflict, err.Error())
		return
	case errors.Is(err, permission.ErrUnknownPermission):
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		slog.Error("Failed to assign permission", "err", err)
		renderError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, statusResponse{Success: true})
}

// DeleteRevokePermission removes a permission from a user
func (h Handle) DeleteRevokePermission(w http.ResponseWriter, r *http.Request) {
	userUUID, ok := h.parseUserUUID(w, r)
	if !ok {
		return
	}
	permissionID, ok := h.parsePermissionID(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetUserByUUID(r.Context(), userUUID)
	if err != nil {
		h.renderAccountError(w, r, err)
		return
	}

	err = h.permissions.Revoke(r.Context(), user.ID, permissionID)
	switch {
	case errors.Is(err, permission.ErrNotAssigned):
		renderError(w, r, http.StatusNotFound, err.Error())
		return
	case err != nil:
		slog.Error("Failed to revoke permission", "err", err)
		renderError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, statusResponse{Success: true})
}

func (h Handle) parseUserUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userUUID, err := uuid.Parse(chi.URLParam(r, "userUuid"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "malformed user id")
		return uuid.Nil, false
	}
	return userUUID, true
}

func (h Handle) parsePermissionID(w http.ResponseWriter, r *http.Request) (int, bool) {
	permissionID, err := strconv.Atoi(chi.URLParam(r, "permissionId"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "malformed permission id")
		return 0, false
	}
	return permissionID, true
}

func (h Handle) renderAccountError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, account.ErrUserNotFound) {
		renderError(w, r, http.StatusNotFound, "user not found")
		return
	}
	slog.Error("Account operation failed", "err", err)
	renderError(w, r, http.StatusInternalServerError, "internal error")
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: message})
}
