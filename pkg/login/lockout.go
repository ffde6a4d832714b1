package login

// DefaultMaxFailedAttempts is the lockout threshold used when none is
// configured
const DefaultMaxFailedAttempts = 5

// LockoutPolicy decides whether an account should be locked after a failed
// login attempt. It is pure decision logic; the one-way lockout transition
// itself is performed by the caller.
type LockoutPolicy struct {
	MaxFailedAttempts int
}

// NewLockoutPolicy creates a policy with the given threshold. A non-positive
// threshold falls back to the default.
func NewLockoutPolicy(maxFailedAttempts int) LockoutPolicy {
	if maxFailedAttempts <= 0 {
		maxFailedAttempts = DefaultMaxFailedAttempts
	}
	return LockoutPolicy{MaxFailedAttempts: maxFailedAttempts}
}

// ShouldLock reports whether the post-increment failed attempt count has
// reached the threshold
func (p LockoutPolicy) ShouldLock(failedAttempts int) bool {
	return failedAttempts >= p.MaxFailedAttempts
}
