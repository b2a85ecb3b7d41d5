package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SessionAudience marks tokens that carry a logged-in identity.
	SessionAudience = "session"
	// ResetAudience marks password reset tokens so a session token can
	// never be replayed as a reset link and vice versa.
	ResetAudience = "pwd-reset"
	// ResetTTL is how long a reset link stays valid.
	ResetTTL = time.Hour
)

// Timestamps are written with millisecond precision so a reset link is
// honoured for the full ResetTTL, not up to a second less.
func init() {
	jwt.TimePrecision = time.Millisecond
}

var (
	// ErrTokenExpired is returned for a correctly signed token whose exp has
	// passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers every other failure: bad signature, wrong
	// audience, malformed input.
	ErrTokenInvalid = errors.New("token invalid")
)

// SessionClaims is the payload of the session cookie.  The subject holds
// the user id in decimal.
type SessionClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject back into a numeric id.
func (c SessionClaims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// TokenCodec signs and verifies the application's HS256 tokens.  Now is
// injectable so tests can move the clock.
type TokenCodec struct {
	Secret []byte
	Now    func() time.Time
}

func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{Secret: []byte(secret), Now: time.Now}
}

func (tc *TokenCodec) now() time.Time {
	if tc.Now == nil {
		return time.Now()
	}
	return tc.Now()
}

// NewSessionToken signs a session token for the user valid for ttl.  It
// returns the token and its expiry so the caller can set the cookie
// lifetime to match.
func (tc *TokenCodec) NewSessionToken(userID int64, username, role string, ttl time.Duration) (string, time.Time, error) {
	now := tc.now().UTC()
	exp := now.Add(ttl)
	claims := SessionClaims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Audience:  jwt.ClaimStrings{SessionAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tc.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseSessionToken verifies a session token and returns its claims.
func (tc *TokenCodec) ParseSessionToken(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := tc.parse(raw, claims, SessionAudience); err != nil {
		return nil, err
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// NewResetToken signs a reset token for email.  The address is
// lower-cased and trimmed before it goes into the subject.
func (tc *TokenCodec) NewResetToken(email string) (string, error) {
	now := tc.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   strings.ToLower(strings.TrimSpace(email)),
		Audience:  jwt.ClaimStrings{ResetAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ResetTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tc.Secret)
}

// ParseResetToken verifies a reset token and returns the email it was
// issued for.
func (tc *TokenCodec) ParseResetToken(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if err := tc.parse(raw, claims, ResetAudience); err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}

func (tc *TokenCodec) parse(raw string, claims jwt.Claims, audience string) error {
	if raw == "" {
		return ErrTokenInvalid
	}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return tc.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tc.now),
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenInvalid
	}
}
