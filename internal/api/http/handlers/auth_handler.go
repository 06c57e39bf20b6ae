package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/taskflow/internal/api/dto"
	"github.com/spec-kit/taskflow/internal/auth"
	"github.com/spec-kit/taskflow/internal/service"
	apperrors "github.com/spec-kit/taskflow/pkg/util/errorutil"
)

// CookieConfig describes the session cookie set on login.
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthHandler exposes login and federation token endpoints.
type AuthHandler struct {
	auth       *service.AuthService
	federation *service.FederationService
	cookie     CookieConfig
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, federationService *service.FederationService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{auth: authService, federation: federationService, cookie: cookie}
}

// Login handles POST /api/auth/login. Besides returning the token it sets an
// HttpOnly cookie so the federation bridge, reached by plain navigation,
// can find the session.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password are required", nil)
	}

	_, token, err := h.auth.IssueToken(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	if h.cookie.Name != "" {
		c.Cookie(&fiber.Cookie{
			Name:     h.cookie.Name,
			Value:    token.Token,
			Path:     "/",
			Expires:  token.ExpiresAt,
			HTTPOnly: true,
			Secure:   h.cookie.Secure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	return c.JSON(dto.LoginResponse{Token: token.Token, ExpiresAt: token.ExpiresAt})
}

// FederationToken handles POST /api/auth/wp-token.
func (h *AuthHandler) FederationToken(c *fiber.Ctx) error {
	identity, err := auth.MustIdentity(c)
	if err != nil {
		return err
	}
	minted, err := h.federation.Mint(c.UserContext(), identity)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(dto.FederationTokenResponse{WPToken: minted.Token, ExpiresAt: minted.ExpiresAt})
}
