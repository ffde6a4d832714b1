// Package tokens issues and verifies the signed access and refresh tokens.
package tokens

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token kind names, also used as cookie/transport identifiers
const (
	AccessTokenName  = "access_token"
	RefreshTokenName = "refresh_token"
)

// Default token expiry durations
const (
	DefaultAccessTokenExpiry  = 10 * time.Minute
	DefaultRefreshTokenExpiry = 24 * time.Hour
)

// ErrInvalidToken is returned for every verification failure: bad signature,
// expired, wrong issuer or audience. No partial-trust state exists.
var ErrInvalidToken = errors.New("invalid token")

// Claims carried by access tokens. The permission set is a snapshot taken at
// issuance; the identity middleware treats storage as authoritative.
type Claims struct {
	DisplayName string `json:"name,omitempty"`
	Permissions []int  `json:"perms,omitempty"`
	jwt.RegisteredClaims
}

// AccessTokenGenerator issues and verifies access tokens signed with the
// single process-wide secret.
type AccessTokenGenerator struct {
	Secret   string
	Issuer   string
	Audience string
}

// NewAccessTokenGenerator creates a new AccessTokenGenerator
func NewAccessTokenGenerator(secret, issuer, audience string) *AccessTokenGenerator {
	return &AccessTokenGenerator{
		Secret:   secret,
		Issuer:   issuer,
		Audience: audience,
	}
}

// GenerateToken creates an access token for the given subject
func (g *AccessTokenGenerator) GenerateToken(subject string, expiry time.Duration, displayName string, permissions []int) (string, time.Time, error) {
	now := time.Now().UTC()
	claims := Claims{
		DisplayName: displayName,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    g.Issuer,
			Subject:   subject,
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{g.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(g.Secret))
	if err != nil {
		slog.Error("Failed to sign access token", "err", err)
		return "", time.Time{}, err
	}
	return ss, claims.ExpiresAt.Time, nil
}

// ParseToken parses and validates an access token. Signature, expiry, issuer
// and audience must all match; clock tolerance is zero.
func (g *AccessTokenGenerator) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := newParser(g.Issuer, g.Audience).ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(g.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// RefreshTokenGenerator issues and verifies refresh tokens. Each token is
// signed with a secret derived from the user's stored refresh-signing key,
// so rotating that key invalidates every outstanding refresh token for the
// user without a blacklist.
type RefreshTokenGenerator struct {
	BaseSecret string
	Issuer     string
	Audience   string
}

// NewRefreshTokenGenerator creates a new RefreshTokenGenerator
func NewRefreshTokenGenerator(baseSecret, issuer, audience string) *RefreshTokenGenerator {
	return &RefreshTokenGenerator{
		BaseSecret: baseSecret,
		Issuer:     issuer,
		Audience:   audience,
	}
}

// deriveSecret computes the per-user signing secret as a deterministic
// function of the user id and the stored refresh-signing key.
func (g *RefreshTokenGenerator) deriveSecret(userID int64, refreshKey string) []byte {
	mac := hmac.New(sha256.New, []byte(g.BaseSecret))
	mac.Write([]byte(strconv.FormatInt(userID, 10)))
	mac.Write([]byte(":"))
	mac.Write([]byte(refreshKey))
	return mac.Sum(nil)
}

// GenerateToken creates a refresh token for the given subject
func (g *RefreshTokenGenerator) GenerateToken(subject string, expiry time.Duration, userID int64, refreshKey string) (string, time.Time, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    g.Issuer,
		Subject:   subject,
		ID:        uuid.New().String(),
		Audience:  jwt.ClaimStrings{g.Audience},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(g.deriveSecret(userID, refreshKey))
	if err != nil {
		slog.Error("Failed to sign refresh token", "err", err)
		return "", time.Time{}, err
	}
	return ss, claims.ExpiresAt.Time, nil
}

// ParseToken parses and validates a refresh token against the user's current
// refresh-signing key
func (g *RefreshTokenGenerator) ParseToken(tokenStr string, userID int64, refreshKey string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := newParser(g.Issuer, g.Audience).ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return g.deriveSecret(userID, refreshKey), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// PeekSubject reads the subject claim without verifying the signature. The
// refresh flow needs the subject to locate the user whose stored key the
// signature is then verified against.
func PeekSubject(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func newParser(issuer, audience string) *jwt.Parser {
	return jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(0),
	)
}
