package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/taskflow/internal/auth"
	"github.com/spec-kit/taskflow/internal/config"
	"github.com/spec-kit/taskflow/internal/domain"
	"github.com/spec-kit/taskflow/internal/events"
	"github.com/spec-kit/taskflow/internal/federation"
	"github.com/spec-kit/taskflow/internal/repository"
)

var testAuthConfig = config.AuthConfig{
	JWTSecret:           "test-secret",
	SessionTTLMinutes:   60,
	BcryptCost:          10,
	StoreTimeoutSeconds: 1,
}

var testFederationConfig = config.FederationConfig{
	Secret:          "fed-secret",
	Issuer:          "http://localhost:3000",
	TTLMinutes:      60,
	ExternalBaseURL: "http://localhost:8080",
	LoginPath:       "/wp-login.php",
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) Subscribe(events.EventType, events.EventHandler) {}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	users    *repository.MemoryUserRepository
	tasks    *repository.MemoryTaskRepository
	tokens   *auth.TokenManager
	policy   *auth.Policy
	events   *recorder
	auth     *AuthService
	userSvc  *UserService
	taskSvc  *TaskService
	fed      *FederationService
	manager  *domain.User
	employee *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:  repository.NewMemoryUserRepository(),
		tokens: auth.NewTokenManager(testAuthConfig),
		policy: auth.NewPolicy(),
		events: &recorder{},
	}
	f.tasks = repository.NewMemoryTaskRepository(f.users)
	logger := zap.NewNop()

	f.auth = NewAuthService(testAuthConfig, f.users, f.tokens, f.events, logger)
	f.userSvc = NewUserService(testAuthConfig, f.users, f.policy, f.events, logger)
	f.taskSvc = NewTaskService(testAuthConfig, TaskDependencies{TaskRepo: f.tasks, UserRepo: f.users}, f.policy, f.events, logger)
	f.fed = NewFederationService(testAuthConfig, f.users, f.tokens, federation.NewMinter(testFederationConfig), f.policy, f.events, logger)

	f.manager = f.addUser(t, "Alice Manager", "manager@taskflow.com", "manager123", domain.RoleManager, true)
	f.employee = f.addUser(t, "Bob Employee", "employee@taskflow.com", "employee123", domain.RoleEmployee, true)
	return f
}

func (f *fixture) addUser(t *testing.T, name, email, password string, role domain.Role, active bool) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &domain.User{Name: name, Email: email, PasswordHash: string(hash), Role: role, IsActive: active}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func (f *fixture) addTask(t *testing.T, title string, owner *domain.User, deadline time.Time) *domain.Task {
	t.Helper()
	task := &domain.Task{Title: title, Deadline: deadline, Status: domain.TaskStatusTodo, AssignedToID: owner.ID}
	require.NoError(t, f.tasks.Create(context.Background(), task))
	return task
}

func statusPtr(s domain.TaskStatus) *domain.TaskStatus { return &s }
func strPtr(s string) *string                       { return &s }
