package login

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/parishkit/parish-idm/pkg/account"
	"github.com/parishkit/parish-idm/pkg/audit"
	"github.com/parishkit/parish-idm/pkg/notification"
)

// ResetTokenLength is the length of a reset token on the wire
const ResetTokenLength = 64

// DefaultResetTokenExpiry is the validity window used when none is configured
const DefaultResetTokenExpiry = 24 * time.Hour

// PasswordResetService issues, validates and consumes single-use password
// reset tokens. Each user has at most one live token; issuing a new one
// overwrites the previous.
type PasswordResetService struct {
	repo                account.UserRepository
	hasher              account.PasswordHasher
	notificationManager *notification.NotificationManager
	recorder            audit.Recorder
	tokenExpiry         time.Duration
}

// NewPasswordResetService creates a new PasswordResetService
func NewPasswordResetService(repo account.UserRepository, hasher account.PasswordHasher,
	notificationManager *notification.NotificationManager, recorder audit.Recorder, tokenExpiry time.Duration) *PasswordResetService {
	if tokenExpiry <= 0 {
		tokenExpiry = DefaultResetTokenExpiry
	}
	return &PasswordResetService{
		repo:                repo,
		hasher:              hasher,
		notificationManager: notificationManager,
		recorder:            recorder,
		tokenExpiry:         tokenExpiry,
	}
}

// RequestReset starts a password reset for the identified account. It never
// reveals whether the identifier matched: unknown and ambiguous identifiers
// report the same success as a real one, with no email sent. A still-valid
// prior token is not replaced, so repeated requests cannot be used to spam a
// mailbox.
func (s *PasswordResetService) RequestReset(ctx context.Context, params LoginParams) error {
	if params.Email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
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
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if len(users) != 1 {
		slog.Debug("Reset requested for unknown or ambiguous identifier", "matches", len(users))
		return nil
	}
	user := users[0]

	if existing, err := s.repo.GetResetToken(ctx, user.ID); err == nil {
		if time.Since(existing.CreatedAt) < s.tokenExpiry {
			slog.Debug("Reset token still valid, not sending another email", "user_uuid", user.UUID)
			return nil
		}
	}

	token, err := account.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	if err := s.repo.UpsertResetToken(ctx, user.ID, token, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save reset token: %w", err)
	}

	s.recorder.Record(audit.ResetRequested, map[string]any{"user_uuid": user.UUID.String()})

	resetLink := fmt.Sprintf("%s/#/reset-password/%s/%s", s.notificationManager.BaseUrl, user.UUID, token)
	return s.notificationManager.Send(notification.PasswordResetInit, notification.NotificationData{
		To:   user.Email,
		Data: map[string]string{"Link": resetLink},
	})
}

// ValidateToken checks, without consuming it, that the token exists for
// exactly this user and is inside its validity window. The UI uses this to
// decide whether to show the reset form.
func (s *PasswordResetService) ValidateToken(ctx context.Context, userUUID uuid.UUID, token string) error {
	if len(token) != ResetTokenLength {
		return fmt.Errorf("%w: malformed reset token", ErrValidation)
	}

	user, err := s.repo.GetUserByUUID(ctx, userUUID)
	if errors.Is(err, account.ErrUserNotFound) {
		// A token presented with the wrong user must fail exactly like an
		// invalid token.
		return ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	stored, err := s.repo.GetResetToken(ctx, user.ID)
	if errors.Is(err, account.ErrResetTokenNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("failed to load reset token: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored.Token), []byte(token)) != 1 {
		return ErrInvalidResetToken
	}
	if time.Since(stored.CreatedAt) >= s.tokenExpiry {
		return ErrInvalidResetToken
	}
	return nil
}

// ResetPassword consumes a valid token and replaces the account credential
// with a freshly salted hash. The failed attempt counter is cleared and the
// email marked confirmed, but the lockout flag is deliberately left alone:
// proving ownership of the account is separate from being allowed to log in.
func (s *PasswordResetService) ResetPassword(ctx context.Context, userUUID uuid.UUID, token, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: password cannot be empty", ErrValidation)
	}
	if err := s.ValidateToken(ctx, userUUID, token); err != nil {
		return err
	}

	user, err := s.repo.GetUserByUUID(ctx, userUUID)
	if errors.Is(err, account.ErrUserNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	salt, err := account.GenerateSalt()
	if err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	hash, err := s.hasher.Hash(newPassword, salt)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.ReplaceCredential(ctx, account.CredentialParams{
		UserID:       user.ID,
		PasswordHash: hash,
		Salt:         salt,
	}); err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}

	// Single use: the token must be gone once the credential changed. A
	// failed delete leaves the token live, so it is a real failure even
	// though the credential was already replaced.
	if err := s.repo.DeleteResetToken(ctx, user.ID); err != nil {
		slog.Error("Failed to delete consumed reset token", "user_uuid", userUUID, "err", err)
		return fmt.Errorf("failed to delete consumed reset token: %w", err)
	}

	s.recorder.Record(audit.PasswordChanged, map[string]any{"user_uuid": userUUID.String()})
	return nil
}
