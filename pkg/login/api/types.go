package api

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

// RefreshRequest is the optional body of POST /auth/token/refresh. The
// refresh token cookie takes precedence over the body.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// ResetInitRequest is the body of POST /auth/password-reset
type ResetInitRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// ResetConfirmRequest is the body of POST /auth/password-reset/confirm
type ResetConfirmRequest struct {
	UserUUID    string `json:"user_uuid"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// TokenResponse carries a freshly issued token pair
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// LoginResponse is returned on successful login or refresh
type LoginResponse struct {
	UserUUID    string `json:"user_uuid"`
	DisplayName string `json:"display_name,omitempty"`
	Permissions []int  `json:"permissions"`
	TokenResponse
}

// StatusResponse reports a bare success flag
type StatusResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse carries a single error message
type ErrorResponse struct {
	Error string `json:"error"`
}
