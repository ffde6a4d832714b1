package account

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestUser(t *testing.T, repo *InMemoryUserRepository, email string) User {
	t.Helper()
	user, err := repo.CreateUser(context.Background(), CreateUserParams{
		Email:       email,
		DisplayName: "Test User",
		IsActive:    true,
	}, "aabbccdd", "refresh-key-1")
	require.NoError(t, err)
	return user
}

func TestInMemoryUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateAndLookup", func(t *testing.T) {
		repo := NewInMemoryUserRepository()
		user := createTestUser(t, repo, "a@example.com")

		byID, err := repo.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.UUID, byID.UUID)

		byUUID, err := repo.GetUserByUUID(ctx, user.UUID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, byUUID.ID)

		found, err := repo.FindUsersByEmail(ctx, "a@example.com")
		require.NoError(t, err)
		assert.Len(t, found, 1)
	})

	t.Run("DuplicateEmailAndPhone", func(t *testing.T) {
		repo := NewInMemoryUserRepository()
		createTestUser(t, repo, "a@example.com")

		_, err := repo.CreateUser(ctx, CreateUserParams{Email: "a@example.com"}, "salt", "key")
		assert.ErrorIs(t, err, ErrDuplicateUser)
	})

	t.Run("SharedEmailDistinctPhone", func(t *testing.T) {
		repo := NewInMemoryUserRepository()
		_, err := repo.CreateUser(ctx, CreateUserParams{Email: "family@example.com", Phone: "111"}, "s1", "k1")
		require.NoError(t, err)
		_, err = repo.CreateUser(ctx, CreateUserParams{Email: "family@example.com", Phone: "222"}, "s2", "k2")
		require.NoError(t, err)

		found, err := repo.FindUsersByEmail(ctx, "family@example.com")
		require.NoError(t, err)
		assert.Len(t, found, 2)

		found, err = repo.FindUsersByEmailAndPhone(ctx, "family@example.com", "222")
		require.NoError(t, err)
		assert.Len(t, found, 1)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		repo := NewInMemoryUserRepository()
		_, err := repo.GetUserByID(ctx, 42)
		assert.ErrorIs(t, err, ErrUserNotFound)

		_, err = repo.IncrementFailedAttempts(ctx, 42)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("IncrementFailedAttemptsIsAtomic", func(t *testing.T) {
		repo := NewInMemoryUserRepository()
		user := createTestUser(t, repo, "a@example.com")

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.IncrementFailedAttempts(ctx, user.ID)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := repo.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 50, got.FailedLoginAttempts, "No increment may be lost under concurrency")
	})

	t.Run("LockOutAndUnlock", func(t *testing.T) {
		repo := NewInMemoryUserRepository()
		user := createTestUser(t, repo, "a@example.com")

		_, err := repo.IncrementFailedAttempts(ctx, user.ID)
		require.NoError(t, err)
		require.NoError(t, repo.LockOut(ctx, user.ID))

		got, err := repo.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, got.IsLockedOut)

		require.NoError(t, repo.Unlock(ctx, user.ID))
		got, err = repo.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, got.IsLockedOut)
		assert.Zero(t, got.FailedLoginAttempts, "Unlock clears the failed attempt counter")
	})

	t.Run("RecordLogin", func(t *testing.T) {
		repo := NewInMemoryUserRepository()
		user := createTestUser(t, repo, "a@example.com")
		_, err := repo.IncrementFailedAttempts(ctx, user.ID)
		require.NoError(t, err)

		at := time.Now().UTC()
		require.NoError(t, repo.RecordLogin(ctx, user.ID, at))

		got, err := repo.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Zero(t, got.FailedLoginAttempts)
		assert.Equal(t, at, got.LastLoginAt)
	})

	t.Run("ReplaceCredentialLeavesLockoutAlone", func(t *testing.T) {
		repo := NewInMemoryUserRepository()
		user := createTestUser(t, repo, "a@example.com")
		require.NoError(t, repo.LockOut(ctx, user.ID))

		require.NoError(t, repo.ReplaceCredential(ctx, CredentialParams{
			UserID:       user.ID,
			PasswordHash: "newhash",
			Salt:         "newsalt",
		}))

		got, err := repo.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "newhash", got.PasswordHash)
		assert.Equal(t, "newsalt", got.Salt)
		assert.True(t, got.EmailConfirmed)
		assert.Zero(t, got.FailedLoginAttempts)
		assert.True(t, got.IsLockedOut, "Changing the credential must not clear a lockout")
	})

	t.Run("ResetTokenSingleSlot", func(t *testing.T) {
		repo := NewInMemoryUserRepository()
		user := createTestUser(t, repo, "a@example.com")

		_, err := repo.GetResetToken(ctx, user.ID)
		assert.ErrorIs(t, err, ErrResetTokenNotFound)

		now := time.Now().UTC()
		require.NoError(t, repo.UpsertResetToken(ctx, user.ID, "token-one", now))
		require.NoError(t, repo.UpsertResetToken(ctx, user.ID, "token-two", now.Add(time.Minute)))

		stored, err := repo.GetResetToken(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "token-two", stored.Token, "A new token overwrites the previous one")

		require.NoError(t, repo.DeleteResetToken(ctx, user.ID))
		_, err = repo.GetResetToken(ctx, user.ID)
		assert.ErrorIs(t, err, ErrResetTokenNotFound)

		// Deleting again is not an error.
		assert.NoError(t, repo.DeleteResetToken(ctx, user.ID))
	})

	t.Run("RotateRefreshKey", func(t *testing.T) {
		repo := NewInMemoryUserRepository()
		user := createTestUser(t, repo, "a@example.com")

		require.NoError(t, repo.RotateRefreshKey(ctx, user.ID, "rotated-key"))
		got, err := repo.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "rotated-key", got.RefreshKey)
	})
}
