package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/taskflow/internal/api/dto"
	"github.com/spec-kit/taskflow/internal/auth"
	"github.com/spec-kit/taskflow/internal/service"
	apperrors "github.com/spec-kit/taskflow/pkg/util/errorutil"
)

// TasksHandler exposes task endpoints.
type TasksHandler struct {
	tasks *service.TaskService
}

// NewTasksHandler constructs handler.
func NewTasksHandler(taskService *service.TaskService) *TasksHandler {
	return &TasksHandler{tasks: taskService}
}

// ListAll GET /api/tasks/all.
func (h *TasksHandler) ListAll(c *fiber.Ctx) error {
	identity, err := auth.MustIdentity(c)
	if err != nil {
		return err
	}
	tasks, err := h.tasks.ListAll(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTaskResponses(tasks)})
}

// ListMine GET /api/tasks/my-tasks.
func (h *TasksHandler) ListMine(c *fiber.Ctx) error {
	identity, err := auth.MustIdentity(c)
	if err != nil {
		return err
	}
	tasks, err := h.tasks.ListMine(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTaskResponses(tasks)})
}

// Create POST /api/tasks.
func (h *TasksHandler) Create(c *fiber.Ctx) error {
	identity, err := auth.MustIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Title == "" || req.Deadline == "" || req.AssignedToID == "" {
		return apperrors.NewValidationError("title, deadline, and assignedToId are required", nil)
	}
	deadline, err := dto.ParseDeadline(req.Deadline)
	if err != nil {
		return err
	}
	task, err := h.tasks.Create(c.UserContext(), identity, service.CreateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		Deadline:     deadline,
		AssignedToID: req.AssignedToID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTaskResponse(task)})
}

// Update PATCH /api/tasks/:taskId.
func (h *TasksHandler) Update(c *fiber.Ctx) error {
	identity, err := auth.MustIdentity(c)
	if err != nil {
		return err
	}
	patch := dto.DecodeTaskPatch(c.Body())
	task, err := h.tasks.Update(c.UserContext(), identity, c.Params("taskId"), patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTaskResponse(task)})
}

// Delete DELETE /api/tasks/:taskId.
func (h *TasksHandler) Delete(c *fiber.Ctx) error {
	identity, err := auth.MustIdentity(c)
	if err != nil {
		return err
	}
	if err := h.tasks.Delete(c.UserContext(), identity, c.Params("taskId")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
