package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/taskflow/internal/domain"
	apperrors "github.com/spec-kit/taskflow/pkg/util/errorutil"
)

func newTestApp(tm *TokenManager) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		domainErr := apperrors.ToDomainError(err)
		return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"code": domainErr.Code})
	}})
	mw := NewAuthMiddleware(tm)
	policy := NewPolicy()

	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		identity, err := MustIdentity(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"id": identity.SubjectID, "role": identity.Role})
	})
	app.Get("/users", mw.Handle, RequireOperation(policy, OpListUsers), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	return app
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Code
}

func TestAuthMiddleware(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tm := newManager("secret", clock)
	app := newTestApp(tm)

	managerToken, err := tm.Issue(alice)
	require.NoError(t, err)
	employeeToken, err := tm.Issue(domain.Identity{SubjectID: "u-2", Role: domain.RoleEmployee, DisplayName: "Bob"})
	require.NoError(t, err)

	t.Run("missing header", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, apperrors.CodeMissingToken, errorCode(t, resp))
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer nope")
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, apperrors.CodeInvalidToken, errorCode(t, resp))
	})

	t.Run("identity attached", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+managerToken.Token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Equal(t, "u-1", body["id"])
		require.Equal(t, "MANAGER", body["role"])
	})

	t.Run("role gate", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.Header.Set("Authorization", "Bearer "+employeeToken.Token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		require.Equal(t, apperrors.CodeForbidden, errorCode(t, resp))

		req = httptest.NewRequest(http.MethodGet, "/users", nil)
		req.Header.Set("Authorization", "Bearer "+managerToken.Token)
		resp, err = app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("expired token", func(t *testing.T) {
		clock.t = managerToken.ExpiresAt
		defer func() { clock.t = time.Now() }()

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+managerToken.Token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, apperrors.CodeTokenExpired, errorCode(t, resp))
	})
}
