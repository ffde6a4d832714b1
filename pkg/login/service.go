package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/parishkit/parish-idm/pkg/account"
	"github.com/parishkit/parish-idm/pkg/audit"
	"github.com/parishkit/parish-idm/pkg/cache"
	"github.com/parishkit/parish-idm/pkg/permission"
	"github.com/parishkit/parish-idm/pkg/tokens"
)

// LoginParams identifies the account attempting to log in. Phone is optional
// and disambiguates accounts legitimately sharing one email.
type LoginParams struct {
	Email string
	Phone string
}

// LoginResult is returned after a successful login or token refresh
type LoginResult struct {
	User        account.User
	Permissions []int
	Tokens      tokens.TokenPair
}

// LoginService implements the login state machine and token refresh
type LoginService struct {
	repo          account.UserRepository
	permissions   permission.Repository
	hasher        account.PasswordHasher
	lockoutPolicy LockoutPolicy
	tokenService  *tokens.TokenService
	recorder      audit.Recorder
	idCache       cache.IDCache
}

// NewLoginService creates a new LoginService
func NewLoginService(repo account.UserRepository, permissions permission.Repository, hasher account.PasswordHasher,
	lockoutPolicy LockoutPolicy, tokenService *tokens.TokenService, recorder audit.Recorder, idCache cache.IDCache) *LoginService {
	return &LoginService{
		repo:          repo,
		permissions:   permissions,
		hasher:        hasher,
		lockoutPolicy: lockoutPolicy,
		tokenService:  tokenService,
		recorder:      recorder,
		idCache:       idCache,
	}
}

// Login runs the gates of the login state machine strictly in order:
// identifier resolution, uniqueness, active, lockout, secret verification,
// success. A later gate never runs when an earlier one fails.
func (s *LoginService) Login(ctx context.Context, params LoginParams, password string) (LoginResult, error) {
	user, err := s.resolveUser(ctx, params)
	if err != nil {
		return LoginResult{}, err
	}

	if !user.IsActive {
		s.recorder.Record(audit.LoginAttemptInactive, map[string]any{"user_uuid": user.UUID.String()})
		return LoginResult{}, ErrUserNotActive
	}

	if user.IsLockedOut {
		s.recorder.Record(audit.LoginAttemptLocked, map[string]any{"user_uuid": user.UUID.String()})
		return LoginResult{}, ErrUserLockedOut
	}

	valid := false
	if user.HasPassword() {
		valid, err = s.hasher.Verify(password, user.Salt, user.PasswordHash)
		if err != nil {
			slog.Error("Failed to verify password", "user_uuid", user.UUID, "err", err)
			valid = false
		}
	}
	if !valid {
		return LoginResult{}, s.recordFailedAttempt(ctx, user)
	}

	if err := s.repo.RecordLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		return LoginResult{}, fmt.Errorf("failed to record login: %w", err)
	}

	result, err := s.issueTokens(ctx, user)
	if err != nil {
		return LoginResult{}, err
	}

	s.recorder.Record(audit.LoginSucceeded, map[string]any{"user_uuid": user.UUID.String()})
	return result, nil
}

// resolveUser performs the identifier resolution and uniqueness gates. Every
// failure collapses into the same generic credential error.
func (s *LoginService) resolveUser(ctx context.Context, params LoginParams) (account.User, error) {
	if params.Email == "" {
		return account.User{}, ErrInvalidLoginOrPassword
	}

	var (
		users []account.User
		err   error
	)
	if params.Phone != "" {
		users, err = s.repo.FindUsersByEmailAndPhone(ctx, params.Email, params.Phone)
	} else {
		users, err = s.repo.FindUsersByEmail(ctx, params.Email)
	}
	if err != nil {
		return account.User{}, fmt.Errorf("failed to look up user: %w", err)
	}

	// Zero and multiple matches are indistinguishable from a wrong secret.
	// Two accounts sharing an email is legitimate; the caller must supply a
	// phone to disambiguate.
	if len(users) != 1 {
		return account.User{}, ErrInvalidLoginOrPassword
	}
	return users[0], nil
}

// recordFailedAttempt increments the failed attempt counter atomically at the
// storage layer and applies the one-way lockout transition when the
// post-increment count reaches the threshold.
func (s *LoginService) recordFailedAttempt(ctx context.Context, user account.User) error {
	attempts, err := s.repo.IncrementFailedAttempts(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}
	s.recorder.Record(audit.LoginFailed, map[string]any{
		"user_uuid": user.UUID.String(),
		"attempts":  attempts,
	})

	if s.lockoutPolicy.ShouldLock(attempts) {
		if err := s.repo.LockOut(ctx, user.ID); err != nil {
			return fmt.Errorf("failed to lock out user: %w", err)
		}
		s.recorder.Record(audit.LoginLockedOut, map[string]any{"user_uuid": user.UUID.String()})
	}

	return ErrInvalidLoginOrPassword
}

// Refresh verifies a refresh token against the user's current
// refresh-signing key and mints a fresh token pair. A rotated key makes
// every previously issued refresh token fail here.
func (s *LoginService) Refresh(ctx context.Context, refreshToken string) (LoginResult, error) {
	subject, err := tokens.PeekSubject(refreshToken)
	if err != nil {
		return LoginResult{}, err
	}
	userUUID, err := uuid.Parse(subject)
	if err != nil {
		return LoginResult{}, fmt.Errorf("%w: malformed subject", tokens.ErrInvalidToken)
	}

	user, err := s.lookupByUUID(ctx, userUUID)
	if errors.Is(err, account.ErrUserNotFound) {
		return LoginResult{}, fmt.Errorf("%w: unknown subject", tokens.ErrInvalidToken)
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.tokenService.ParseRefreshToken(refreshToken, user.ID, user.RefreshKey); err != nil {
		return LoginResult{}, err
	}

	// Account state is re-checked on every refresh: a long-lived refresh
	// token must not outlive a deactivation or lockout.
	if !user.IsActive {
		return LoginResult{}, ErrUserNotActive
	}
	if user.IsLockedOut {
		return LoginResult{}, ErrUserLockedOut
	}

	result, err := s.issueTokens(ctx, user)
	if err != nil {
		return LoginResult{}, err
	}

	s.recorder.Record(audit.TokenRefreshed, map[string]any{"user_uuid": user.UUID.String()})
	return result, nil
}

// lookupByUUID resolves a user through the id cache when possible, falling
// through to storage on a miss
func (s *LoginService) lookupByUUID(ctx context.Context, userUUID uuid.UUID) (account.User, error) {
	if id, ok := s.idCache.GetUserID(ctx, userUUID); ok {
		user, err := s.repo.GetUserByID(ctx, id)
		if err == nil && user.UUID == userUUID {
			return user, nil
		}
	}

	user, err := s.repo.GetUserByUUID(ctx, userUUID)
	if err != nil {
		return account.User{}, err
	}
	s.idCache.SetUserID(ctx, userUUID, user.ID)
	return user, nil
}

func (s *LoginService) issueTokens(ctx context.Context, user account.User) (LoginResult, error) {
	permissionIDs, err := s.permissions.FindPermissionIDsByUserID(ctx, user.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to load permissions: %w", err)
	}

	pair, err := s.tokenService.IssuePair(user.UUID.String(), user.DisplayName, permissionIDs, user.ID, user.RefreshKey)
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to issue tokens: %w", err)
	}

	return LoginResult{
		User:        user,
		Permissions: permissionIDs,
		Tokens:      pair,
	}, nil
}
