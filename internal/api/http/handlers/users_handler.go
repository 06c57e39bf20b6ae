package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/taskflow/internal/api/dto"
	"github.com/spec-kit/taskflow/internal/auth"
	"github.com/spec-kit/taskflow/internal/service"
	apperrors "github.com/spec-kit/taskflow/pkg/util/errorutil"
)

// UsersHandler exposes account management for managers.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// List GET /api/users/all.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	identity, err := auth.MustIdentity(c)
	if err != nil {
		return err
	}
	users, err := h.users.List(c.UserContext(), identity)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /api/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	identity, err := auth.MustIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.users.Create(c.UserContext(), identity, service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Update PATCH /api/users/:userId.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	identity, err := auth.MustIdentity(c)
	if err != nil {
		return err
	}
	patch, err := dto.DecodeUserPatch(c.Body())
	if err != nil {
		return err
	}
	user, err := h.users.Update(c.UserContext(), identity, c.Params("userId"), patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}
