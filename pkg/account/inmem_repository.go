package account

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryUserRepository implements UserRepository using in-memory storage
type InMemoryUserRepository struct {
	mu          sync.RWMutex
	nextID      int64
	users       map[int64]User
	usersByUUID map[uuid.UUID]int64
	resetTokens map[int64]ResetToken
}

// NewInMemoryUserRepository creates a new in-memory user repository
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		nextID:      1,
		users:       make(map[int64]User),
		usersByUUID: make(map[uuid.UUID]int64),
		resetTokens: make(map[int64]ResetToken),
	}
}

// FindUsersByEmail finds all users with the given email
func (r *InMemoryUserRepository) FindUsersByEmail(ctx context.Context, email string) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var users []User
	for _, u := range r.users {
		if u.Email == email {
			users = append(users, u)
		}
	}
	return users, nil
}

// FindUsersByEmailAndPhone finds users matching both email and phone
func (r *InMemoryUserRepository) FindUsersByEmailAndPhone(ctx context.Context, email, phone string) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var users []User
	for _, u := range r.users {
		if u.Email == email && u.Phone == phone {
			users = append(users, u)
		}
	}
	return users, nil
}

// GetUserByID gets a user by internal id
func (r *InMemoryUserRepository) GetUserByID(ctx context.Context, id int64) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// GetUserByUUID gets a user by public uuid
func (r *InMemoryUserRepository) GetUserByUUID(ctx context.Context, userUUID uuid.UUID) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.usersByUUID[userUUID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return r.users[id], nil
}

// CreateUser creates a new user with the given salt and refresh key
func (r *InMemoryUserRepository) CreateUser(ctx context.Context, arg CreateUserParams, salt, refreshKey string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == arg.Email && u.Phone == arg.Phone {
			return User{}, ErrDuplicateUser
		}
	}

	u := User{
		ID:          r.nextID,
		UUID:        uuid.New(),
		Email:       arg.Email,
		Phone:       arg.Phone,
		DisplayName: arg.DisplayName,
		Salt:        salt,
		RefreshKey:  refreshKey,
		IsActive:    arg.IsActive,
		CreatedAt:   time.Now().UTC(),
	}
	r.nextID++
	r.users[u.ID] = u
	r.usersByUUID[u.UUID] = u.ID
	return u, nil
}

// SetActive sets the active flag
func (r *InMemoryUserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.update(id, func(u *User) {
		u.IsActive = active
	})
}

// IncrementFailedAttempts atomically increments the failed login attempt
// counter and returns the post-increment value
func (r *InMemoryUserRepository) IncrementFailedAttempts(ctx context.Context, id int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return 0, ErrUserNotFound
	}
	u.FailedLoginAttempts++
	r.users[id] = u
	return u.FailedLoginAttempts, nil
}

// LockOut sets the one-way lockout flag
func (r *InMemoryUserRepository) LockOut(ctx context.Context, id int64) error {
	return r.update(id, func(u *User) {
		u.IsLockedOut = true
	})
}

// Unlock clears the lockout flag and the failed attempt counter
func (r *InMemoryUserRepository) Unlock(ctx context.Context, id int64) error {
	return r.update(id, func(u *User) {
		u.IsLockedOut = false
		u.FailedLoginAttempts = 0
	})
}

// RecordLogin resets the failed attempt counter and stamps the login time
func (r *InMemoryUserRepository) RecordLogin(ctx context.Context, id int64, at time.Time) error {
	return r.update(id, func(u *User) {
		u.FailedLoginAttempts = 0
		u.LastLoginAt = at
	})
}

// ReplaceCredential stores a new hash and salt, clears the failed attempt
// counter and marks the email confirmed. The lockout flag is left untouched.
func (r *InMemoryUserRepository) ReplaceCredential(ctx context.Context, arg CredentialParams) error {
	return r.update(arg.UserID, func(u *User) {
		u.PasswordHash = arg.PasswordHash
		u.Salt = arg.Salt
		u.FailedLoginAttempts = 0
		u.EmailConfirmed = true
	})
}

// RotateRefreshKey replaces the refresh-signing key
func (r *InMemoryUserRepository) RotateRefreshKey(ctx context.Context, id int64, refreshKey string) error {
	return r.update(id, func(u *User) {
		u.RefreshKey = refreshKey
	})
}

// UpsertResetToken stores a reset token, overwriting any existing one
func (r *InMemoryUserRepository) UpsertResetToken(ctx context.Context, userID int64, token string, createdAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; !ok {
		return ErrUserNotFound
	}
	r.resetTokens[userID] = ResetToken{
		UserID:    userID,
		Token:     token,
		CreatedAt: createdAt,
	}
	return nil
}

// GetResetToken returns the live reset token for a user, if any
func (r *InMemoryUserRepository) GetResetToken(ctx context.Context, userID int64) (ResetToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.resetTokens[userID]
	if !ok {
		return ResetToken{}, ErrResetTokenNotFound
	}
	return t, nil
}

// DeleteResetToken removes the reset token for a user
func (r *InMemoryUserRepository) DeleteResetToken(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.resetTokens, userID)
	return nil
}

func (r *InMemoryUserRepository) update(id int64, fn func(*User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	fn(&u)
	r.users[id] = u
	return nil
}
