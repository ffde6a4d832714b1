package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresUserRepository implements UserRepository using PostgreSQL
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgreSQL-based user repository
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `id, uuid, email, phone, COALESCE(password_hash, ''), salt, refresh_key,
	is_active, is_locked_out, failed_login_attempts, email_confirmed, phone_confirmed,
	display_name, COALESCE(last_login_at, 'epoch'::timestamptz), created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.UUID, &u.Email, &u.Phone, &u.PasswordHash, &u.Salt, &u.RefreshKey,
		&u.IsActive, &u.IsLockedOut, &u.FailedLoginAttempts, &u.EmailConfirmed, &u.PhoneConfirmed,
		&u.DisplayName, &u.LastLoginAt, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

func (r *PostgresUserRepository) findUsers(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// FindUsersByEmail finds all users with the given email
func (r *PostgresUserRepository) FindUsersByEmail(ctx context.Context, email string) ([]User, error) {
	return r.findUsers(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindUsersByEmailAndPhone finds users matching both email and phone
func (r *PostgresUserRepository) FindUsersByEmailAndPhone(ctx context.Context, email, phone string) ([]User, error) {
	return r.findUsers(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 AND phone = $2`, email, phone)
}

// GetUserByID gets a user by internal id
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id int64) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetUserByUUID gets a user by public uuid
func (r *PostgresUserRepository) GetUserByUUID(ctx context.Context, userUUID uuid.UUID) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE uuid = $1`, userUUID))
}

// CreateUser creates a new user with the given salt and refresh key
func (r *PostgresUserRepository) CreateUser(ctx context.Context, arg CreateUserParams, salt, refreshKey string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO users (uuid, email, phone, display_name, salt, refresh_key, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		uuid.New(), arg.Email, arg.Phone, arg.DisplayName, salt, refreshKey, arg.IsActive))
}

// SetActive sets the active flag
func (r *PostgresUserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.exec(ctx, `UPDATE users SET is_active = $2 WHERE id = $1`, id, active)
}

// IncrementFailedAttempts atomically increments the failed login attempt
// counter in a single statement and returns the post-increment value.
// The increment must not be a read-modify-write in application code:
// concurrent failed attempts would under-count.
func (r *PostgresUserRepository) IncrementFailedAttempts(ctx context.Context, id int64) (int, error) {
	var attempts int
	err := r.pool.QueryRow(ctx, `
		UPDATE users SET failed_login_attempts = failed_login_attempts + 1
		WHERE id = $1
		RETURNING failed_login_attempts`, id).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	return attempts, err
}

// LockOut sets the one-way lockout flag
func (r *PostgresUserRepository) LockOut(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE users SET is_locked_out = TRUE WHERE id = $1`, id)
}

// Unlock clears the lockout flag and the failed attempt counter
func (r *PostgresUserRepository) Unlock(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE users SET is_locked_out = FALSE, failed_login_attempts = 0 WHERE id = $1`, id)
}

// RecordLogin resets the failed attempt counter and stamps the login time
func (r *PostgresUserRepository) RecordLogin(ctx context.Context, id int64, at time.Time) error {
	return r.exec(ctx, `UPDATE users SET failed_login_attempts = 0, last_login_at = $2 WHERE id = $1`, id, at)
}

// ReplaceCredential stores a new hash and salt, clears the failed attempt
// counter and marks the email confirmed. The lockout flag is left untouched.
func (r *PostgresUserRepository) ReplaceCredential(ctx context.Context, arg CredentialParams) error {
	return r.exec(ctx, `
		UPDATE users SET password_hash = $2, salt = $3, failed_login_attempts = 0, email_confirmed = TRUE
		WHERE id = $1`, arg.UserID, arg.PasswordHash, arg.Salt)
}

// RotateRefreshKey replaces the refresh-signing key
func (r *PostgresUserRepository) RotateRefreshKey(ctx context.Context, id int64, refreshKey string) error {
	return r.exec(ctx, `UPDATE users SET refresh_key = $2 WHERE id = $1`, id, refreshKey)
}

// UpsertResetToken stores a reset token, overwriting any existing one
func (r *PostgresUserRepository) UpsertResetToken(ctx context.Context, userID int64, token string, createdAt time.Time) error {
	return r.exec(ctx, `
		INSERT INTO password_reset_tokens (user_id, token, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET token = EXCLUDED.token, created_at = EXCLUDED.created_at`,
		userID, token, createdAt)
}

// GetResetToken returns the live reset token for a user, if any
func (r *PostgresUserRepository) GetResetToken(ctx context.Context, userID int64) (ResetToken, error) {
	var t ResetToken
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, token, created_at FROM password_reset_tokens WHERE user_id = $1`, userID).
		Scan(&t.UserID, &t.Token, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ResetToken{}, ErrResetTokenNotFound
	}
	return t, err
}

// DeleteResetToken removes the reset token for a user
func (r *PostgresUserRepository) DeleteResetToken(ctx context.Context, userID int64) error {
	return r.exec(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1`, userID)
}

func (r *PostgresUserRepository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	// Deleting an absent reset token is not an error; an update that touched
	// no row means the user does not exist.
	if tag.RowsAffected() == 0 && !tag.Delete() {
		return ErrUserNotFound
	}
	return nil
}
