package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/taskflow/internal/auth"
	"github.com/spec-kit/taskflow/internal/config"
	"github.com/spec-kit/taskflow/internal/domain"
	"github.com/spec-kit/taskflow/internal/events"
	"github.com/spec-kit/taskflow/internal/repository"
	apperrors "github.com/spec-kit/taskflow/pkg/util/errorutil"
)

// AuthService exchanges credentials for session tokens.
type AuthService struct {
	users        repository.UserRepository
	tokens       *auth.TokenManager
	dummy        auth.DummyHash
	dispatcher   events.Dispatcher
	storeTimeout time.Duration
	logger       *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository, tokens *auth.TokenManager, dispatcher events.Dispatcher, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:        users,
		tokens:       tokens,
		dummy:        auth.NewDummyHash(cfg.BcryptCost),
		dispatcher:   dispatcher,
		storeTimeout: cfg.StoreTimeout(),
		logger:       logger,
	}
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IssueToken authenticates email and password and signs a session token.
// An unknown email and a wrong password are indistinguishable to the
// caller; a disabled account is reported only after the password matched.
func (s *AuthService) IssueToken(ctx context.Context, email, password string) (*domain.User, domain.SessionToken, error) {
	email = NormalizeEmail(email)

	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	user, err := s.users.GetByEmail(storeCtx, email)
	cancel()
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("credential store lookup failed", zap.Error(err))
			return nil, domain.SessionToken{}, apperrors.NewServiceUnavailable(err)
		}
		_ = s.dummy.Compare(password)
		s.publish(ctx, events.EventLoginFailed, "", email)
		return nil, domain.SessionToken{}, apperrors.NewInvalidCredentials()
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.publish(ctx, events.EventLoginFailed, user.ID, email)
		return nil, domain.SessionToken{}, apperrors.NewInvalidCredentials()
	}
	if !user.IsActive {
		s.publish(ctx, events.EventLoginDisabled, user.ID, email)
		return nil, domain.SessionToken{}, apperrors.NewAccountDisabled()
	}

	token, err := s.tokens.Issue(user.Identity())
	if err != nil {
		return nil, domain.SessionToken{}, apperrors.NewInternalError(err)
	}
	s.publish(ctx, events.EventLoginSucceeded, user.ID, email)
	return user, token, nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, subjectID, email string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.NewEvent(eventType, subjectID, events.Actor{UserID: subjectID}, events.LoginPayload{Email: email}))
}
