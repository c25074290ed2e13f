package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

var (
	// ErrTokenInvalid indicates a malformed, tampered, or expired token.
	ErrTokenInvalid = errors.New("security: invalid token")
	// ErrMissingBearerPrefix indicates the header value does not follow the
	// "Bearer <token>" convention.
	ErrMissingBearerPrefix = errors.New("security: authorization value must start with Bearer prefix")
	// ErrSecretMissing indicates the issuer was constructed without a signing secret.
	ErrSecretMissing = errors.New("security: jwt signing secret is not configured")
)

const (
	defaultAccessTokenTTL  = 24 * time.Hour
	defaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// TokenClaims is the claim set carried by every issued token: the subject
// (user id) plus issued-at and expiry timestamps.
type TokenClaims struct {
	jwt.RegisteredClaims
}

// TokenIssuer creates and validates HS512-signed bearer tokens. The signing
// secret is fixed at construction and never mutated afterwards.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// TokenIssuerOption configures optional TokenIssuer behaviour.
type TokenIssuerOption func(*TokenIssuer)

// WithAccessTokenTTL overrides the access token lifetime.
func WithAccessTokenTTL(ttl time.Duration) TokenIssuerOption {
	return func(i *TokenIssuer) {
		if ttl > 0 {
			i.accessTTL = ttl
		}
	}
}

// WithRefreshTokenTTL overrides the refresh token lifetime.
func WithRefreshTokenTTL(ttl time.Duration) TokenIssuerOption {
	return func(i *TokenIssuer) {
		if ttl > 0 {
			i.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source. Used by tests to issue tokens in the past.
func WithClock(now func() time.Time) TokenIssuerOption {
	return func(i *TokenIssuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewTokenIssuer constructs a TokenIssuer for the supplied secret.
func NewTokenIssuer(secret string, opts ...TokenIssuerOption) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrSecretMissing
	}

	issuer := &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  defaultAccessTokenTTL,
		refreshTTL: defaultRefreshTokenTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		if opt != nil {
			opt(issuer)
		}
	}

	return issuer, nil
}

// IssueAccess signs a short-lived access token for the subject.
func (i *TokenIssuer) IssueAccess(subject string) (string, error) {
	return i.issue(subject, i.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for the subject.
func (i *TokenIssuer) IssueRefresh(subject string) (string, error) {
	return i.issue(subject, i.refreshTTL)
}

func (i *TokenIssuer) issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("security: token subject is required")
	}

	now := i.now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("security: sign token: %w", err)
	}

	return signed, nil
}

// Verify validates signature and expiry of the supplied token and returns
// its claims. All failure modes collapse into ErrTokenInvalid; surfacing the
// individual decode error kinds is a noted future improvement.
func (i *TokenIssuer) Verify(tokenString string) (*TokenClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}

	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil || parsed == nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// RotateAccess issues a new access token for the subject after validating
// the presented refresh token. The refresh token itself is not rotated;
// sliding refresh expiration is a known gap.
func (i *TokenIssuer) RotateAccess(oldRefreshToken, subject string) (string, error) {
	if _, err := i.Verify(oldRefreshToken); err != nil {
		return "", err
	}
	return i.IssueAccess(subject)
}

// IssuePair issues a fresh access/refresh token pair for the subject.
func (i *TokenIssuer) IssuePair(subject string) (string, string, error) {
	access, err := i.IssueAccess(subject)
	if err != nil {
		return "", "", err
	}

	refresh, err := i.IssueRefresh(subject)
	if err != nil {
		return "", "", err
	}

	return access, refresh, nil
}

// AccessTokenTTL returns the configured access token lifetime.
func (i *TokenIssuer) AccessTokenTTL() time.Duration {
	return i.accessTTL
}

// TokenFromBearer extracts the raw token from a "Bearer <token>" header
// value. A missing or malformed prefix is an authorization failure.
func TokenFromBearer(headerValue string) (string, error) {
	if !strings.HasPrefix(headerValue, bearerPrefix) {
		return "", ErrMissingBearerPrefix
	}

	token := strings.TrimSpace(strings.TrimPrefix(headerValue, bearerPrefix))
	if token == "" {
		return "", ErrMissingBearerPrefix
	}

	return token, nil
}
