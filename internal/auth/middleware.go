package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/taskflow/internal/domain"
	apperrors "github.com/spec-kit/taskflow/pkg/util/errorutil"
)

const identityKey = "auth_identity"

// AuthMiddleware validates bearer tokens. It never touches the credential
// store; the token alone proves the identity.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	identity, err := m.tokens.VerifyHeader(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}
	c.Locals(identityKey, identity)
	return c.Next()
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(domain.Identity)
	return identity, ok
}

// MustIdentity is IdentityFromContext for handlers mounted behind Handle.
func MustIdentity(c *fiber.Ctx) (domain.Identity, error) {
	identity, ok := IdentityFromContext(c)
	if !ok {
		return domain.Identity{}, apperrors.NewMissingToken()
	}
	return identity, nil
}
