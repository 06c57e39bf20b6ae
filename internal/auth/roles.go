package auth

import (
	"github.com/gofiber/fiber/v2"
)

// RequireOperation applies the role gate of op before the handler runs.
// Ownership and field rules need the resource and run inside the service.
func RequireOperation(policy *Policy, op Operation) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := MustIdentity(c)
		if err != nil {
			return err
		}
		if err := policy.Authorize(identity, op, nil).Err(); err != nil {
			return err
		}
		return c.Next()
	}
}
