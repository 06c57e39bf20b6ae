package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/taskflow/internal/config"
	"github.com/spec-kit/taskflow/internal/domain"
	apperrors "github.com/spec-kit/taskflow/pkg/util/errorutil"
)

// TokenManager issues and verifies session tokens. It holds only the
// read-only secret and TTL, so one instance is shared by all requests.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager from the auth configuration.
func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	return &TokenManager{secret: []byte(cfg.JWTSecret), ttl: cfg.SessionTTL(), now: time.Now}
}

// WithClock replaces the time source.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	tm.now = now
	return tm
}

// TTL is the fixed lifetime of issued tokens.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// SessionClaims describes the session token payload.
type SessionClaims struct {
	UserID string      `json:"userId"`
	Role   domain.Role `json:"role"`
	Name   string      `json:"name"`
	jwt.RegisteredClaims
}

// Issue signs a session token for the identity.
func (tm *TokenManager) Issue(identity domain.Identity) (domain.SessionToken, error) {
	if !identity.Role.Valid() {
		return domain.SessionToken{}, fmt.Errorf("refusing to issue token for role %q", identity.Role)
	}
	issuedAt := tm.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(tm.ttl)
	claims := &SessionClaims{
		UserID: identity.SubjectID,
		Role:   identity.Role,
		Name:   identity.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.SubjectID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return domain.SessionToken{}, err
	}
	return domain.SessionToken{Token: tokenString, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// Verify validates signature and expiry and returns the embedded identity.
// A token is valid strictly before its exp instant.
func (tm *TokenManager) Verify(raw string) (domain.Identity, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.Identity{}, apperrors.NewMissingToken()
	}
	parsed, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, apperrors.NewTokenExpired()
		}
		return domain.Identity{}, apperrors.NewInvalidToken()
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return domain.Identity{}, apperrors.NewInvalidToken()
	}
	subject := claims.UserID
	if subject == "" {
		subject = claims.Subject
	}
	if subject == "" {
		return domain.Identity{}, apperrors.NewInvalidToken()
	}
	return domain.Identity{SubjectID: subject, Role: claims.Role, DisplayName: claims.Name}, nil
}

// VerifyHeader extracts the bearer token from an Authorization header value
// and verifies it.
func (tm *TokenManager) VerifyHeader(header string) (domain.Identity, error) {
	raw, ok := BearerToken(header)
	if !ok {
		return domain.Identity{}, apperrors.NewMissingToken()
	}
	return tm.Verify(raw)
}

// BearerToken returns the credential of a "Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
