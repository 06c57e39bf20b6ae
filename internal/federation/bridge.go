package federation

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/taskflow/internal/config"
)

// State is a step of the bridge state machine.
type State string

const (
	StateStart          State = "Start"
	StateNoLocalSession State = "NoLocalSession"
	StateExchanging     State = "Exchanging"
	StateRedirecting    State = "Redirecting"
	StateFailed         State = "Failed"
)

// Exchanger turns a local session token into a federation token.
type Exchanger interface {
	Exchange(ctx context.Context, localToken string) (string, error)
}

// Outcome is the terminal state of one Resolve and where the browser goes
// next. Delay is non-zero only for StateFailed.
type Outcome struct {
	State    State
	Location string
	Delay    time.Duration
	Err      error
}

// Bridge hands a browser with a TaskFlow session to the CMS. Every outcome
// is a navigation; the bridge never produces an error page.
type Bridge struct {
	exchanger    Exchanger
	baseURL      string
	loginURL     string
	failureDelay time.Duration
	logger       *zap.Logger
}

// NewBridge builds a Bridge.
func NewBridge(cfg config.FederationConfig, exchanger Exchanger, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		exchanger:    exchanger,
		baseURL:      strings.TrimRight(cfg.ExternalBaseURL, "/"),
		loginURL:     cfg.LoginURL(),
		failureDelay: cfg.FailureDelay(),
		logger:       logger,
	}
}

// Resolve runs the state machine from Start for one navigation.
func (b *Bridge) Resolve(ctx context.Context, localToken, destination string) Outcome {
	state := StateStart
	dest := SanitizeDestination(destination)

	for {
		switch state {
		case StateStart:
			if strings.TrimSpace(localToken) == "" {
				state = StateNoLocalSession
				continue
			}
			state = StateExchanging

		case StateNoLocalSession:
			return Outcome{State: StateNoLocalSession, Location: b.loginURL}

		case StateExchanging:
			token, err := b.exchanger.Exchange(ctx, localToken)
			if err != nil {
				b.logger.Info("federation exchange failed", zap.Error(err))
				return Outcome{State: StateFailed, Location: b.baseURL + "/", Delay: b.failureDelay, Err: err}
			}
			return Outcome{State: StateRedirecting, Location: b.destinationURL(dest, token)}

		default:
			return Outcome{State: StateFailed, Location: b.baseURL + "/", Delay: b.failureDelay}
		}
	}
}

func (b *Bridge) destinationURL(dest, token string) string {
	sep := "?"
	if strings.Contains(dest, "?") {
		sep = "&"
	}
	return b.baseURL + dest + sep + "jwt=" + url.QueryEscape(token)
}

// SanitizeDestination keeps only a local absolute path (with optional query)
// so the bridge cannot be turned into an open redirect. Anything else
// becomes "/".
func SanitizeDestination(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	// A destination that already carries jwt would let the caller pin the
	// token the CMS sees.
	q := u.Query()
	if q.Has("jwt") {
		q.Del("jwt")
		u.RawQuery = q.Encode()
	}
	u.Fragment = ""
	out := u.EscapedPath()
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	if out == "" {
		return "/"
	}
	return out
}
