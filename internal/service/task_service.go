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

// TaskService coordinates task reads and writes under the policy.
type TaskService struct {
	tasks        repository.TaskRepository
	users        repository.UserRepository
	policy       *auth.Policy
	dispatcher   events.Dispatcher
	storeTimeout time.Duration
	logger       *zap.Logger
}

// TaskDependencies bundles the stores TaskService reads.
type TaskDependencies struct {
	TaskRepo repository.TaskRepository
	UserRepo repository.UserRepository
}

// NewTaskService constructs the service.
func NewTaskService(cfg config.AuthConfig, deps TaskDependencies, policy *auth.Policy, dispatcher events.Dispatcher, logger *zap.Logger) *TaskService {
	return &TaskService{
		tasks:        deps.TaskRepo,
		users:        deps.UserRepo,
		policy:       policy,
		dispatcher:   dispatcher,
		storeTimeout: cfg.StoreTimeout(),
		logger:       logger,
	}
}

// CreateTaskInput carries the fields of a new task.
type CreateTaskInput struct {
	Title        string
	Description  *string
	Deadline     time.Time
	AssignedToID string
}

// Create stores a new TODO task for an existing assignee.
func (s *TaskService) Create(ctx context.Context, actor domain.Identity, in CreateTaskInput) (*domain.Task, error) {
	if err := s.policy.Authorize(actor, auth.OpCreateTask, nil).Err(); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	assignee := strings.TrimSpace(in.AssignedToID)
	if title == "" || in.Deadline.IsZero() || assignee == "" {
		return nil, apperrors.NewValidationError("title, deadline, and assignedToId are required", nil)
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	owner, err := s.users.GetByID(storeCtx, assignee)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInvalidValue("assignee does not exist", map[string]any{"field": string(domain.TaskFieldAssignedToID)})
		}
		return nil, storeError(err, "user")
	}

	task := &domain.Task{
		Title:        title,
		Description:  emptyToNil(in.Description),
		Deadline:     in.Deadline.UTC(),
		Status:       domain.TaskStatusTodo,
		AssignedToID: owner.ID,
	}
	if err := s.tasks.Create(storeCtx, task); err != nil {
		return nil, storeError(err, "task")
	}
	task.AssigneeName = owner.Name
	s.publish(ctx, events.EventTaskCreated, task.ID, actor, events.TaskChangedPayload{AssigneeID: owner.ID, NewStatus: task.Status})
	return task, nil
}

// ListAll returns every task, newest first.
func (s *TaskService) ListAll(ctx context.Context, actor domain.Identity) ([]domain.Task, error) {
	if err := s.policy.Authorize(actor, auth.OpListAllTasks, nil).Err(); err != nil {
		return nil, err
	}
	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	tasks, err := s.tasks.ListAll(storeCtx)
	if err != nil {
		return nil, storeError(err, "task")
	}
	return tasks, nil
}

// ListMine returns the caller's tasks, earliest deadline first.
func (s *TaskService) ListMine(ctx context.Context, actor domain.Identity) ([]domain.Task, error) {
	if err := s.policy.Authorize(actor, auth.OpListMyTasks, nil).Err(); err != nil {
		return nil, err
	}
	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	tasks, err := s.tasks.ListByAssignee(storeCtx, actor.SubjectID)
	if err != nil {
		return nil, storeError(err, "task")
	}
	return tasks, nil
}

// Update applies a partial update. Which fields the caller may send, and on
// which tasks, is decided entirely by the policy.
func (s *TaskService) Update(ctx context.Context, actor domain.Identity, taskID string, patch domain.TaskPatch) (*domain.Task, error) {
	if err := s.policy.Authorize(actor, auth.OpUpdateTask, nil).Err(); err != nil {
		return nil, err
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	task, err := s.tasks.GetByID(storeCtx, taskID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, storeError(err, "task")
	}
	res := &auth.Resource{Kind: "task", Exists: task != nil, TaskPatch: &patch}
	if task != nil {
		res.OwnerID = task.AssignedToID
	}
	if err := s.policy.Authorize(actor, auth.OpUpdateTask, res).Err(); err != nil {
		return nil, err
	}

	if patch.AssignedToID != nil && *patch.AssignedToID != task.AssignedToID {
		owner, err := s.users.GetByID(storeCtx, *patch.AssignedToID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewInvalidValue("assignee does not exist", map[string]any{"field": string(domain.TaskFieldAssignedToID)})
			}
			return nil, storeError(err, "user")
		}
		task.AssigneeName = owner.Name
	}

	oldStatus := task.Status
	if patch.Deadline != nil {
		deadline := patch.Deadline.UTC()
		patch.Deadline = &deadline
	}
	patch.Apply(task)
	if err := s.tasks.Update(storeCtx, task); err != nil {
		return nil, storeError(err, "task")
	}
	s.publish(ctx, events.EventTaskUpdated, task.ID, actor, events.TaskChangedPayload{
		Fields:     patch.Fields(),
		OldStatus:  oldStatus,
		NewStatus:  task.Status,
		AssigneeID: task.AssignedToID,
	})
	return task, nil
}

// Delete removes a task.
func (s *TaskService) Delete(ctx context.Context, actor domain.Identity, taskID string) error {
	if err := s.policy.Authorize(actor, auth.OpDeleteTask, nil).Err(); err != nil {
		return err
	}
	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.tasks.Delete(storeCtx, taskID); err != nil {
		return storeError(err, "task")
	}
	s.publish(ctx, events.EventTaskDeleted, taskID, actor, nil)
	return nil
}

func (s *TaskService) publish(ctx context.Context, eventType events.EventType, subjectID string, actor domain.Identity, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.NewEvent(eventType, subjectID, events.ActorOf(actor), payload))
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
