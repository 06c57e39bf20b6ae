package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/taskflow/internal/auth"
	"github.com/spec-kit/taskflow/internal/domain"
	"github.com/spec-kit/taskflow/internal/repository"
)

type seedUser struct {
	name     string
	email    string
	password string
	role     domain.Role
}

type seedTask struct {
	title       string
	description string
	deadline    time.Time
	status      domain.TaskStatus
}

// Manager accounts exist only through this out-of-band path; the API can
// create employees alone.
var (
	demoManager  = seedUser{"Alice Manager", "manager@taskflow.com", "manager123", domain.RoleManager}
	demoEmployee = seedUser{"Bob Employé", "employee@taskflow.com", "employee123", domain.RoleEmployee}

	demoTasks = []seedTask{
		{"Préparer la présentation client", "Compiler les chiffres du T3 et créer les slides.", time.Date(2024, 10, 25, 17, 0, 0, 0, time.UTC), domain.TaskStatusTodo},
		{"Rapport hebdomadaire", "Finaliser et envoyer le rapport de la semaine.", time.Date(2024, 10, 22, 12, 0, 0, 0, time.UTC), domain.TaskStatusDone},
		{"Contacter le fournisseur TechCorp", "", time.Date(2023, 9, 20, 10, 0, 0, 0, time.UTC), domain.TaskStatusTodo},
	}
)

// SeedDemo provisions the demo manager, employee and the employee's tasks.
// It does nothing when either demo account already exists, so it is safe to
// run on every boot.
func SeedDemo(ctx context.Context, users repository.UserRepository, tasks repository.TaskRepository, bcryptCost int, logger *zap.Logger) error {
	for _, u := range []seedUser{demoManager, demoEmployee} {
		_, err := users.GetByEmail(ctx, u.email)
		if err == nil {
			logger.Info("demo data already present; skipping seed")
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("check demo account %s: %w", u.email, err)
		}
	}

	if _, err := createUser(ctx, users, demoManager, bcryptCost); err != nil {
		return err
	}
	employee, err := createUser(ctx, users, demoEmployee, bcryptCost)
	if err != nil {
		return err
	}

	for _, t := range demoTasks {
		task := &domain.Task{
			Title:        t.title,
			Deadline:     t.deadline,
			Status:       t.status,
			AssignedToID: employee.ID,
		}
		if t.description != "" {
			desc := t.description
			task.Description = &desc
		}
		if err := tasks.Create(ctx, task); err != nil {
			return fmt.Errorf("seed task %q: %w", t.title, err)
		}
	}

	logger.Info("demo data seeded", zap.Int("users", 2), zap.Int("tasks", len(demoTasks)))
	return nil
}

func createUser(ctx context.Context, users repository.UserRepository, u seedUser, cost int) (*domain.User, error) {
	hash, err := auth.HashPassword(u.password, cost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{Name: u.name, Email: u.email, PasswordHash: hash, Role: u.role, IsActive: true}
	if err := users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("seed user %s: %w", u.email, err)
	}
	return user, nil
}
