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

// UserService manages TaskFlow accounts on behalf of managers.
type UserService struct {
	users        repository.UserRepository
	policy       *auth.Policy
	dispatcher   events.Dispatcher
	bcryptCost   int
	storeTimeout time.Duration
	logger       *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(cfg config.AuthConfig, users repository.UserRepository, policy *auth.Policy, dispatcher events.Dispatcher, logger *zap.Logger) *UserService {
	return &UserService{
		users:        users,
		policy:       policy,
		dispatcher:   dispatcher,
		bcryptCost:   cfg.BcryptCost,
		storeTimeout: cfg.StoreTimeout(),
		logger:       logger,
	}
}

// CreateUserInput carries the fields of a new account.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
}

// List returns every account, newest first.
func (s *UserService) List(ctx context.Context, actor domain.Identity) ([]domain.User, error) {
	if err := s.policy.Authorize(actor, auth.OpListUsers, nil).Err(); err != nil {
		return nil, err
	}
	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	users, err := s.users.List(storeCtx)
	if err != nil {
		return nil, storeError(err, "user")
	}
	return users, nil
}

// Create provisions an EMPLOYEE account. Manager accounts are never created
// through this path.
func (s *UserService) Create(ctx context.Context, actor domain.Identity, in CreateUserInput) (*domain.User, error) {
	if err := s.policy.Authorize(actor, auth.OpCreateUser, nil).Err(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, apperrors.NewValidationError("name, email, and password are required", nil)
	}
	if !strings.Contains(email, "@") {
		return nil, apperrors.NewInvalidValue("email is not valid", map[string]any{"field": "email"})
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleEmployee,
		IsActive:     true,
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.users.Create(storeCtx, user); err != nil {
		return nil, storeError(err, "user")
	}
	s.publish(ctx, events.EventUserCreated, user.ID, actor, nil)
	return user, nil
}

// Update applies a manager's partial update to an account.
func (s *UserService) Update(ctx context.Context, actor domain.Identity, userID string, patch domain.UserPatch) (*domain.User, error) {
	if err := s.policy.Authorize(actor, auth.OpUpdateUser, nil).Err(); err != nil {
		return nil, err
	}
	if patch.Email != nil {
		normalized := NormalizeEmail(*patch.Email)
		patch.Email = &normalized
	}
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		patch.Name = &trimmed
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.users.GetByID(storeCtx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, storeError(err, "user")
	}
	res := &auth.Resource{Kind: "user", Exists: user != nil, UserPatch: &patch}
	if err := s.policy.Authorize(actor, auth.OpUpdateUser, res).Err(); err != nil {
		return nil, err
	}

	patch.Apply(user)
	if err := s.users.Update(storeCtx, user); err != nil {
		return nil, storeError(err, "user")
	}
	s.publish(ctx, events.EventUserUpdated, user.ID, actor, events.UserChangedPayload{Fields: userPatchFields(patch)})
	return user, nil
}

func userPatchFields(p domain.UserPatch) []string {
	var fields []string
	if p.Name != nil {
		fields = append(fields, "name")
	}
	if p.Email != nil {
		fields = append(fields, "email")
	}
	if p.Role != nil {
		fields = append(fields, "role")
	}
	if p.IsActive != nil {
		fields = append(fields, "isActive")
	}
	return fields
}

func (s *UserService) publish(ctx context.Context, eventType events.EventType, subjectID string, actor domain.Identity, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.NewEvent(eventType, subjectID, events.ActorOf(actor), payload))
}
