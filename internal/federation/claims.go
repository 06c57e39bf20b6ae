package federation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/taskflow/internal/config"
	"github.com/spec-kit/taskflow/internal/domain"
)

// CMS roles an account can be provisioned with.
const (
	CMSRoleEditor     = "editor"
	CMSRoleAuthor     = "author"
	CMSRoleSubscriber = "subscriber"
)

// MapRole translates a TaskFlow role into the CMS role granted on first
// login. Anything unrecognised gets the least privileged role.
func MapRole(role string) string {
	switch domain.Role(role) {
	case domain.RoleManager:
		return CMSRoleEditor
	case domain.RoleEmployee:
		return CMSRoleAuthor
	default:
		return CMSRoleSubscriber
	}
}

// UserClaims is the data.user object of a federation token.
type UserClaims struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// Data wraps UserClaims the way the CMS expects to find them.
type Data struct {
	User UserClaims `json:"user"`
}

// Claims is the federation token payload: registered iss, iat, nbf, exp,
// jti plus data.user.
type Claims struct {
	Data Data `json:"data"`
	jwt.RegisteredClaims
}

// Subject is what a federation token asserts about a TaskFlow user.
type Subject struct {
	ID          string
	Email       string
	DisplayName string
	Role        domain.Role
}

// Minted is a signed federation token and its identifiers.
type Minted struct {
	Token     string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Minter signs federation tokens with the secret shared with the CMS. It is
// separate from the session secret.
type Minter struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewMinter builds a Minter from the federation configuration.
func NewMinter(cfg config.FederationConfig) *Minter {
	return &Minter{secret: []byte(cfg.Secret), issuer: cfg.Issuer, ttl: cfg.TTL(), now: time.Now}
}

// WithClock replaces the time source.
func (m *Minter) WithClock(now func() time.Time) *Minter {
	m.now = now
	return m
}

// Mint signs a federation token for subject.
func (m *Minter) Mint(subject Subject) (Minted, error) {
	if strings.TrimSpace(subject.Email) == "" {
		return Minted{}, errors.New("federation subject has no email")
	}
	issuedAt := m.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(m.ttl)
	id := uuid.NewString()

	claims := &Claims{
		Data: Data{User: UserClaims{
			ID:          subject.ID,
			Email:       subject.Email,
			DisplayName: subject.DisplayName,
			Role:        string(subject.Role),
		}},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        id,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Minted{}, fmt.Errorf("sign federation token: %w", err)
	}
	return Minted{Token: signed, ID: id, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// ErrNoEmail is returned by Decode for a well-signed token without
// data.user.email.
var ErrNoEmail = errors.New("federation token carries no email")

// Decoder verifies federation tokens on the receiving side.
type Decoder struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewDecoder builds a Decoder. An empty issuer accepts any iss.
func NewDecoder(secret, issuer string) *Decoder {
	return &Decoder{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// WithClock replaces the time source.
func (d *Decoder) WithClock(now func() time.Time) *Decoder {
	d.now = now
	return d
}

// Decode verifies signature, algorithm, validity window and issuer and
// returns the claims.
func (d *Decoder) Decode(raw string) (*Claims, error) {
	if len(d.secret) == 0 {
		return nil, errors.New("federation secret not configured")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(d.now),
	}
	if d.issuer != "" {
		opts = append(opts, jwt.WithIssuer(d.issuer))
	}
	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return d.secret, nil
	}, opts...); err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.Data.User.Email) == "" {
		return nil, ErrNoEmail
	}
	return claims, nil
}
