package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/parishkit/parish-idm/pkg/audit"
)

// AccountService provides administrative account operations. Unlocking a
// locked account is an explicit action here and nowhere else: neither a
// successful password reset nor anything in the login flow clears the
// lockout flag.
type AccountService struct {
	repo     UserRepository
	recorder audit.Recorder
}

// NewAccountService creates a new AccountService
func NewAccountService(repo UserRepository, recorder audit.Recorder) *AccountService {
	return &AccountService{
		repo:     repo,
		recorder: recorder,
	}
}

// Register creates a user without a credential. The salt and refresh-signing
// key are generated once here; the password is set later through the reset
// flow.
func (s *AccountService) Register(ctx context.Context, arg CreateUserParams) (User, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return User{}, fmt.Errorf("failed to generate salt: %w", err)
	}
	refreshKey, err := GenerateRefreshKey()
	if err != nil {
		return User{}, fmt.Errorf("failed to generate refresh key: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, arg, salt, refreshKey)
	if err != nil {
		slog.Error("Failed to create user", "email", arg.Email, "err", err)
		return User{}, err
	}

	s.recorder.Record(audit.UserCreated, map[string]any{"user_uuid": user.UUID.String()})
	return user, nil
}

// Unlock clears the lockout flag and failed attempt counter for a user
func (s *AccountService) Unlock(ctx context.Context, userUUID uuid.UUID) error {
	user, err := s.repo.GetUserByUUID(ctx, userUUID)
	if err != nil {
		return err
	}

	if err := s.repo.Unlock(ctx, user.ID); err != nil {
		slog.Error("Failed to unlock user", "uuid", userUUID, "err", err)
		return err
	}

	s.recorder.Record(audit.UserUnlocked, map[string]any{"user_uuid": userUUID.String()})
	return nil
}

// RevokeRefreshTokens regenerates the user's refresh-signing key, which
// invalidates every refresh token previously issued to that user and to no
// other user.
func (s *AccountService) RevokeRefreshTokens(ctx context.Context, userUUID uuid.UUID) error {
	user, err := s.repo.GetUserByUUID(ctx, userUUID)
	if err != nil {
		return err
	}

	refreshKey, err := GenerateRefreshKey()
	if err != nil {
		return fmt.Errorf("failed to generate refresh key: %w", err)
	}
	if err := s.repo.RotateRefreshKey(ctx, user.ID, refreshKey); err != nil {
		slog.Error("Failed to rotate refresh key", "uuid", userUUID, "err", err)
		return err
	}

	s.recorder.Record(audit.RefreshTokensRevoked, map[string]any{"user_uuid": userUUID.String()})
	return nil
}

// SetActive enables or disables an account
func (s *AccountService) SetActive(ctx context.Context, userUUID uuid.UUID, active bool) error {
	user, err := s.repo.GetUserByUUID(ctx, userUUID)
	if err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, user.ID, active); err != nil {
		return err
	}

	s.recorder.Record(audit.UserActiveChanged, map[string]any{
		"user_uuid": userUUID.String(),
		"active":    active,
		"at":        time.Now().UTC(),
	})
	return nil
}
