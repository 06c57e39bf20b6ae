package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/taskflow/internal/domain"
)

// TaskRepository encapsulates task persistence.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	ListAll(ctx context.Context) ([]domain.Task, error)
	ListByAssignee(ctx context.Context, userID string) ([]domain.Task, error)
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository instantiates repository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

const taskSelect = `
        SELECT t.id, t.title, t.description, t.deadline, t.status, t.assigned_to_id,
               u.name, t.created_at, t.updated_at
        FROM tasks t JOIN users u ON u.id = t.assigned_to_id`

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	const query = `
        INSERT INTO tasks (title, description, deadline, status, assigned_to_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		task.Title,
		task.Description,
		task.Deadline,
		task.Status,
		task.AssignedToID,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	return mapPgError(err)
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	const query = `
        UPDATE tasks SET title=$1, description=$2, deadline=$3, status=$4, assigned_to_id=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		task.Title,
		task.Description,
		task.Deadline,
		task.Status,
		task.AssignedToID,
		task.ID,
	).Scan(&task.UpdatedAt)
	return mapPgError(err)
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id=$1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, taskSelect+` WHERE t.id=$1`, id))
}

func (r *taskRepository) ListAll(ctx context.Context) ([]domain.Task, error) {
	rows, err := r.pool.Query(ctx, taskSelect+` ORDER BY t.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *taskRepository) ListByAssignee(ctx context.Context, userID string) ([]domain.Task, error) {
	rows, err := r.pool.Query(ctx, taskSelect+` WHERE t.assigned_to_id=$1 ORDER BY t.deadline ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Deadline,
		&task.Status,
		&task.AssignedToID,
		&task.AssigneeName,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	return &task, nil
}

func scanTasks(rows pgx.Rows) ([]domain.Task, error) {
	var result []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *task)
	}
	return result, rows.Err()
}
