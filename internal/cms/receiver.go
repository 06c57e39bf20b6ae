package cms

import (
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/taskflow/internal/federation"
)

// Headers the gateway forwards to the CMS for an authenticated session.
// Incoming copies are always stripped so clients cannot forge them.
const (
	HeaderUser  = "X-Taskflow-User"
	HeaderEmail = "X-Taskflow-Email"
	HeaderRole  = "X-Taskflow-Role"
)

const defaultDisplayName = "Utilisateur TaskFlow"

// ReceiverConfig tunes the receiver.
type ReceiverConfig struct {
	CookieName   string
	SessionTTL   time.Duration
	SecureCookie bool
}

// Receiver accepts federation tokens arriving as ?jwt= and turns them into
// native CMS sessions. Any problem with the token is ignored and the request
// continues unauthenticated, leaving the CMS to show its own login.
type Receiver struct {
	decoder  *federation.Decoder
	accounts AccountRepository
	sessions SessionStore
	cfg      ReceiverConfig
	logger   *zap.Logger
}

// NewReceiver builds a Receiver.
func NewReceiver(decoder *federation.Decoder, accounts AccountRepository, sessions SessionStore, cfg ReceiverConfig, logger *zap.Logger) *Receiver {
	if cfg.CookieName == "" {
		cfg.CookieName = "cms_session"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 8 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Receiver{decoder: decoder, accounts: accounts, sessions: sessions, cfg: cfg, logger: logger}
}

// Middleware runs before every proxied request.
func (r *Receiver) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Request().Header.Del(HeaderUser)
		c.Request().Header.Del(HeaderEmail)
		c.Request().Header.Del(HeaderRole)

		if sess := r.currentSession(c); sess != nil {
			setIdentityHeaders(c, sess)
			return c.Next()
		}

		raw := c.Query("jwt")
		if raw == "" {
			return c.Next()
		}
		sess, ok := r.accept(c, raw)
		if !ok {
			return c.Next()
		}

		c.Cookie(&fiber.Cookie{
			Name:     r.cfg.CookieName,
			Value:    sess.ID,
			Path:     "/",
			Expires:  sess.ExpiresAt,
			HTTPOnly: true,
			Secure:   r.cfg.SecureCookie,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		return c.Redirect(StripJWT(c.OriginalURL()), fiber.StatusFound)
	}
}

func (r *Receiver) currentSession(c *fiber.Ctx) *Session {
	id := c.Cookies(r.cfg.CookieName)
	if id == "" {
		return nil
	}
	sess, err := r.sessions.Get(c.UserContext(), id)
	if err != nil {
		return nil
	}
	return sess
}

func (r *Receiver) accept(c *fiber.Ctx, raw string) (*Session, bool) {
	ctx := c.UserContext()

	claims, err := r.decoder.Decode(raw)
	if err != nil {
		r.logger.Debug("ignoring federation token", zap.Error(err))
		return nil, false
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		r.logger.Debug("ignoring federation token without jti")
		return nil, false
	}
	first, err := r.sessions.ConsumeTokenID(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		r.logger.Warn("federation ledger unavailable", zap.Error(err))
		return nil, false
	}
	if !first {
		r.logger.Info("ignoring replayed federation token", zap.String("jti", claims.ID))
		return nil, false
	}

	user := claims.Data.User
	name := strings.TrimSpace(user.DisplayName)
	if name == "" {
		name = defaultDisplayName
	}
	acc, created, err := r.accounts.FindOrCreate(ctx, Account{
		Email:       user.Email,
		DisplayName: name,
		Role:        federation.MapRole(user.Role),
	})
	if err != nil {
		r.logger.Warn("cms account provisioning failed", zap.Error(err))
		return nil, false
	}
	if created {
		r.logger.Info("cms account provisioned", zap.String("account_id", acc.ID), zap.String("role", acc.Role))
	}

	sess, err := r.sessions.Create(ctx, acc, r.cfg.SessionTTL)
	if err != nil {
		r.logger.Warn("cms session creation failed", zap.Error(err))
		return nil, false
	}
	return sess, true
}

func setIdentityHeaders(c *fiber.Ctx, sess *Session) {
	c.Request().Header.Set(HeaderUser, sess.AccountID)
	c.Request().Header.Set(HeaderEmail, sess.Email)
	c.Request().Header.Set(HeaderRole, sess.Role)
}

// StripJWT removes every jwt query parameter from a request URI and keeps
// the rest intact.
func StripJWT(requestURI string) string {
	u, err := url.Parse(requestURI)
	if err != nil {
		return "/"
	}
	q := u.Query()
	q.Del("jwt")
	u.RawQuery = q.Encode()
	out := u.EscapedPath()
	if out == "" {
		out = "/"
	}
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out
}
