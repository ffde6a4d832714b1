package tokens

import (
	"time"
)

// TokenPair holds a freshly issued access and refresh token
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenService issues token pairs with configured expiry durations
type TokenService struct {
	accessGenerator  *AccessTokenGenerator
	refreshGenerator *RefreshTokenGenerator

	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// TokenServiceOption is a function that configures a TokenService
type TokenServiceOption func(*TokenService)

// WithAccessTokenExpiry sets the access token expiry duration
func WithAccessTokenExpiry(expiry time.Duration) TokenServiceOption {
	return func(ts *TokenService) {
		ts.AccessTokenExpiry = expiry
	}
}

// WithRefreshTokenExpiry sets the refresh token expiry duration
func WithRefreshTokenExpiry(expiry time.Duration) TokenServiceOption {
	return func(ts *TokenService) {
		ts.RefreshTokenExpiry = expiry
	}
}

// NewTokenService creates a new TokenService
func NewTokenService(accessGenerator *AccessTokenGenerator, refreshGenerator *RefreshTokenGenerator, options ...TokenServiceOption) *TokenService {
	ts := &TokenService{
		accessGenerator:    accessGenerator,
		refreshGenerator:   refreshGenerator,
		AccessTokenExpiry:  DefaultAccessTokenExpiry,
		RefreshTokenExpiry: DefaultRefreshTokenExpiry,
	}
	for _, option := range options {
		option(ts)
	}
	return ts
}

// IssuePair mints an access token and a refresh token for the user
func (ts *TokenService) IssuePair(subject string, displayName string, permissions []int, userID int64, refreshKey string) (TokenPair, error) {
	accessToken, accessExpiry, err := ts.accessGenerator.GenerateToken(subject, ts.AccessTokenExpiry, displayName, permissions)
	if err != nil {
		return TokenPair{}, err
	}

	refreshToken, refreshExpiry, err := ts.refreshGenerator.GenerateToken(subject, ts.RefreshTokenExpiry, userID, refreshKey)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

// ParseAccessToken verifies an access token
func (ts *TokenService) ParseAccessToken(tokenStr string) (*Claims, error) {
	return ts.accessGenerator.ParseToken(tokenStr)
}

// ParseRefreshToken verifies a refresh token against the user's current
// refresh-signing key
func (ts *TokenService) ParseRefreshToken(tokenStr string, userID int64, refreshKey string) error {
	_, err := ts.refreshGenerator.ParseToken(tokenStr, userID, refreshKey)
	return err
}
