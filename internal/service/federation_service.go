package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/taskflow/internal/auth"
	"github.com/spec-kit/taskflow/internal/config"
	"github.com/spec-kit/taskflow/internal/domain"
	"github.com/spec-kit/taskflow/internal/events"
	"github.com/spec-kit/taskflow/internal/federation"
	"github.com/spec-kit/taskflow/internal/repository"
	apperrors "github.com/spec-kit/taskflow/pkg/util/errorutil"
)

// FederationService converts TaskFlow sessions into CMS federation tokens.
// It implements federation.Exchanger for the bridge.
type FederationService struct {
	users        repository.UserRepository
	tokens       *auth.TokenManager
	minter       *federation.Minter
	policy       *auth.Policy
	dispatcher   events.Dispatcher
	storeTimeout time.Duration
	logger       *zap.Logger
}

var _ federation.Exchanger = (*FederationService)(nil)

// NewFederationService constructs the service.
func NewFederationService(cfg config.AuthConfig, users repository.UserRepository, tokens *auth.TokenManager, minter *federation.Minter, policy *auth.Policy, dispatcher events.Dispatcher, logger *zap.Logger) *FederationService {
	return &FederationService{
		users:        users,
		tokens:       tokens,
		minter:       minter,
		policy:       policy,
		dispatcher:   dispatcher,
		storeTimeout: cfg.StoreTimeout(),
		logger:       logger,
	}
}

// Exchange verifies a raw local session token and mints a federation token
// for its subject.
func (s *FederationService) Exchange(ctx context.Context, localToken string) (string, error) {
	identity, err := s.tokens.Verify(localToken)
	if err != nil {
		return "", err
	}
	minted, err := s.Mint(ctx, identity)
	if err != nil {
		return "", err
	}
	return minted.Token, nil
}

// Mint issues a federation token for an authenticated identity. The email
// comes from the store, not the session token.
func (s *FederationService) Mint(ctx context.Context, identity domain.Identity) (federation.Minted, error) {
	if err := s.policy.Authorize(identity, auth.OpMintFederationToken, nil).Err(); err != nil {
		return federation.Minted{}, err
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	user, err := s.users.GetByID(storeCtx, identity.SubjectID)
	cancel()
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return federation.Minted{}, apperrors.NewInvalidToken()
		}
		return federation.Minted{}, storeError(err, "user")
	}
	if !user.IsActive {
		return federation.Minted{}, apperrors.NewAccountDisabled()
	}

	minted, err := s.minter.Mint(federation.Subject{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.Name,
		Role:        user.Role,
	})
	if err != nil {
		return federation.Minted{}, apperrors.NewInternalError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventFederationTokenMinted, user.ID, events.ActorOf(identity), events.FederationMintedPayload{
			TokenID: minted.ID,
			CMSRole: federation.MapRole(string(user.Role)),
			Expires: minted.ExpiresAt,
		}))
	}
	return minted, nil
}
