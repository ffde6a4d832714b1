package login

import "errors"

// External error taxonomy. Credential-related failures deliberately collapse
// several internal causes (unknown identifier, ambiguous match, wrong secret)
// into one generic error so a caller cannot enumerate accounts. Account-state
// failures are distinguishable: a caller who presented the right identifier
// and secret for a locked account is entitled to know why login is refused.
var (
	// ErrInvalidLoginOrPassword covers empty or malformed identifiers, zero
	// or multiple identifier matches, and a wrong secret
	ErrInvalidLoginOrPassword = errors.New("Invalid_Login_Or_Password")

	// ErrUserNotActive is returned for a disabled account
	ErrUserNotActive = errors.New("User_Is_Not_Active")

	// ErrUserLockedOut is returned for a locked account, regardless of
	// whether the presented secret was correct
	ErrUserLockedOut = errors.New("User_Is_Locked_Out")

	// ErrInvalidResetToken covers a missing, foreign and expired reset token
	ErrInvalidResetToken = errors.New("Invalid_Reset_Password_Token")

	// ErrValidation covers malformed input surfaced with field detail
	ErrValidation = errors.New("validation failed")
)
