package handlers

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/taskflow/internal/auth"
	"github.com/spec-kit/taskflow/internal/federation"
)

// BridgeHandler serves the browser-facing federation redirect.
type BridgeHandler struct {
	bridge     *federation.Bridge
	cookieName string
}

// NewBridgeHandler constructs handler.
func NewBridgeHandler(bridge *federation.Bridge, cookieName string) *BridgeHandler {
	return &BridgeHandler{bridge: bridge, cookieName: cookieName}
}

// Redirect GET /redirect-to-wp?destination=. The response is always a
// navigation, never an error status.
func (h *BridgeHandler) Redirect(c *fiber.Ctx) error {
	out := h.bridge.Resolve(c.UserContext(), h.localToken(c), c.Query("destination"))

	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set("Referrer-Policy", "no-referrer")

	if out.State == federation.StateFailed && out.Delay > 0 {
		c.Type("html", "utf-8")
		return c.Status(http.StatusOK).SendString(fallbackPage(out))
	}
	return c.Redirect(out.Location, http.StatusFound)
}

func (h *BridgeHandler) localToken(c *fiber.Ctx) string {
	if token, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization)); ok {
		return token
	}
	if h.cookieName == "" {
		return ""
	}
	return c.Cookies(h.cookieName)
}

// fallbackPage waits out the delay with a script, which honors milliseconds.
// The meta refresh only understands whole seconds and is rounded up so it
// never fires early.
func fallbackPage(out federation.Outcome) string {
	target := html.EscapeString(out.Location)
	jsTarget, _ := json.Marshal(out.Location)
	seconds := int(math.Ceil(out.Delay.Seconds()))
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><meta http-equiv="refresh" content="%d;url=%s"><title>TaskFlow</title>
<script>setTimeout(function () { window.location.replace(%s); }, %d);</script></head>
<body><p>Could not open your session in the content hub. Redirecting to <a href="%s">%s</a>...</p></body></html>
`, seconds, target, jsTarget, out.Delay.Milliseconds(), target, target)
}
