package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/taskflow/internal/domain"
)

// MemoryUserRepository is an in-process UserRepository used when no
// database is configured and in tests.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	byID  map[string]domain.User
	now   func() time.Time
	order []string
}

// NewMemoryUserRepository returns an empty store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{byID: make(map[string]domain.User), now: time.Now}
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTakenLocked(user.Email, "") {
		return ErrDuplicateEmail
	}
	now := r.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.byID[user.ID] = *user
	r.order = append(r.order, user.ID)
	return nil
}

func (r *MemoryUserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[user.ID]
	if !ok {
		return ErrNotFound
	}
	if r.emailTakenLocked(user.Email, user.ID) {
		return ErrDuplicateEmail
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = r.now()
	r.byID[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.byID {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// List returns users newest first.
func (r *MemoryUserRepository) List(ctx context.Context) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.User, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		result = append(result, r.byID[r.order[i]])
	}
	return result, nil
}

func (r *MemoryUserRepository) emailTakenLocked(email, exceptID string) bool {
	for id, user := range r.byID {
		if id != exceptID && user.Email == email {
			return true
		}
	}
	return false
}

// MemoryTaskRepository is an in-process TaskRepository. Assignee names are
// resolved through the user store, mirroring the SQL join.
type MemoryTaskRepository struct {
	mu    sync.RWMutex
	users UserRepository
	byID  map[string]domain.Task
	seq   map[string]int
	next  int
	now   func() time.Time
}

// NewMemoryTaskRepository returns an empty store.
func NewMemoryTaskRepository(users UserRepository) *MemoryTaskRepository {
	return &MemoryTaskRepository{
		users: users,
		byID:  make(map[string]domain.Task),
		seq:   make(map[string]int),
		now:   time.Now,
	}
}

func (r *MemoryTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	if _, err := r.users.GetByID(ctx, task.AssignedToID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	task.ID = uuid.NewString()
	task.CreatedAt = now
	task.UpdatedAt = now
	r.byID[task.ID] = *task
	r.next++
	r.seq[task.ID] = r.next
	return nil
}

func (r *MemoryTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	if _, err := r.users.GetByID(ctx, task.AssignedToID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[task.ID]
	if !ok {
		return ErrNotFound
	}
	task.CreatedAt = existing.CreatedAt
	task.UpdatedAt = r.now()
	r.byID[task.ID] = *task
	return nil
}

func (r *MemoryTaskRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	delete(r.seq, id)
	return nil
}

func (r *MemoryTaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	r.mu.RLock()
	task, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	r.withAssignee(ctx, &task)
	return &task, nil
}

// ListAll returns every task, most recently created first.
func (r *MemoryTaskRepository) ListAll(ctx context.Context) ([]domain.Task, error) {
	tasks := r.snapshot(ctx, func(domain.Task) bool { return true })
	r.mu.RLock()
	sort.SliceStable(tasks, func(i, j int) bool { return r.seq[tasks[i].ID] > r.seq[tasks[j].ID] })
	r.mu.RUnlock()
	return tasks, nil
}

// ListByAssignee returns the user's tasks, earliest deadline first.
func (r *MemoryTaskRepository) ListByAssignee(ctx context.Context, userID string) ([]domain.Task, error) {
	tasks := r.snapshot(ctx, func(t domain.Task) bool { return t.AssignedToID == userID })
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Deadline.Before(tasks[j].Deadline) })
	return tasks, nil
}

func (r *MemoryTaskRepository) snapshot(ctx context.Context, keep func(domain.Task) bool) []domain.Task {
	r.mu.RLock()
	result := make([]domain.Task, 0, len(r.byID))
	for _, task := range r.byID {
		if keep(task) {
			result = append(result, task)
		}
	}
	r.mu.RUnlock()

	for i := range result {
		r.withAssignee(ctx, &result[i])
	}
	return result
}

func (r *MemoryTaskRepository) withAssignee(ctx context.Context, task *domain.Task) {
	if user, err := r.users.GetByID(ctx, task.AssignedToID); err == nil {
		task.AssigneeName = user.Name
	}
}
