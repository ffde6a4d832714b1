package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors for account repositories
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrResetTokenNotFound = errors.New("password reset token not found")
	ErrDuplicateUser      = errors.New("user with this email and phone already exists")
)

// User represents a parish member account record.
// Salt and RefreshKey are generated once at creation; only RefreshKey may be
// regenerated afterwards, which revokes every refresh token issued to the user.
type User struct {
	ID                  int64
	UUID                uuid.UUID
	Email               string
	Phone               string
	PasswordHash        string // empty when no credential has been set
	Salt                string
	RefreshKey          string
	IsActive            bool
	IsLockedOut         bool
	FailedLoginAttempts int
	EmailConfirmed      bool
	PhoneConfirmed      bool
	DisplayName         string
	LastLoginAt         time.Time
	CreatedAt           time.Time
}

// HasPassword reports whether a credential has been set for the user.
func (u User) HasPassword() bool {
	return u.PasswordHash != ""
}

// ResetToken represents a password reset token. At most one token exists per
// user; issuing a new one overwrites the previous.
type ResetToken struct {
	UserID    int64
	Token     string
	CreatedAt time.Time
}

// CreateUserParams holds the fields needed to create a user
type CreateUserParams struct {
	Email       string
	Phone       string
	DisplayName string
	IsActive    bool
}

// CredentialParams holds a freshly hashed credential
type CredentialParams struct {
	UserID       int64
	PasswordHash string
	Salt         string
}

// UserRepository defines the persistence operations for user accounts and
// their reset tokens. Every mutation is a single-row update scoped by
// primary key.
type UserRepository interface {
	// Lookup operations
	FindUsersByEmail(ctx context.Context, email string) ([]User, error)
	FindUsersByEmailAndPhone(ctx context.Context, email, phone string) ([]User, error)
	GetUserByID(ctx context.Context, id int64) (User, error)
	GetUserByUUID(ctx context.Context, userUUID uuid.UUID) (User, error)

	// Account lifecycle
	CreateUser(ctx context.Context, arg CreateUserParams, salt, refreshKey string) (User, error)
	SetActive(ctx context.Context, id int64, active bool) error

	// Login state transitions
	IncrementFailedAttempts(ctx context.Context, id int64) (int, error)
	LockOut(ctx context.Context, id int64) error
	Unlock(ctx context.Context, id int64) error
	RecordLogin(ctx context.Context, id int64, at time.Time) error

	// Credential operations
	ReplaceCredential(ctx context.Context, arg CredentialParams) error
	RotateRefreshKey(ctx context.Context, id int64, refreshKey string) error

	// Password reset token operations (single slot per user)
	UpsertResetToken(ctx context.Context, userID int64, token string, createdAt time.Time) error
	GetResetToken(ctx context.Context, userID int64) (ResetToken, error)
	DeleteResetToken(ctx context.Context, userID int64) error
}
