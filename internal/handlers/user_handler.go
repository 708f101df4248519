package handlers

import (
	"fmt"
	"strconv"

	"usermanagement/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// LocalsUsername is the fiber.Ctx locals key holding the authenticated principal.
const LocalsUsername = "username"

// UserHandler handles HTTP requests for user accounts.
type UserHandler struct {
	service  *services.UserService
	validate *validator.Validate
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the user routes on router.
func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	userRoutes := router.Group("/users")
	userRoutes.Post("/", h.CreateUser)
	userRoutes.Get("/", h.GetAllUsers)
	userRoutes.Get("/:id", h.GetUserByID)
	userRoutes.Put("/:id", h.UpdateUser)
	userRoutes.Patch("/:id", h.PatchUser)
	userRoutes.Delete("/:id", h.DeleteUser)
}

// CreateUser handles POST /users.
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}
	in, err := req.toModel()
	if err != nil {
		return err
	}

	user, err := h.service.CreateUser(in)
	if err != nil {
		return err
	}
	c.Location(fmt.Sprintf("%s/%d", c.Path(), user.ID))
	return c.Status(fiber.StatusCreated).JSON(newUserResponse(user))
}

// GetAllUsers handles GET /users.
func (h *UserHandler) GetAllUsers(c *fiber.Ctx) error {
	users, err := h.service.GetAllUsers()
	if err != nil {
		return err
	}
	resp := make([]UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, newUserResponse(&users[i]))
	}
	return c.JSON(resp)
}

// GetUserByID handles GET /users/:id.
func (h *UserHandler) GetUserByID(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	user, err := h.service.GetUserByID(id)
	if err != nil {
		return err
	}
	return c.JSON(newUserResponse(user))
}

// UpdateUser handles PUT /users/:id.
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	acting, err := principal(c)
	if err != nil {
		return err
	}
	var req UpdateUserRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}
	in, err := req.toModel()
	if err != nil {
		return err
	}

	user, err := h.service.UpdateUser(id, in, acting)
	if err != nil {
		return err
	}
	return c.JSON(newUserResponse(user))
}

// PatchUser handles PATCH /users/:id.
func (h *UserHandler) PatchUser(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	acting, err := principal(c)
	if err != nil {
		return err
	}
	var req PatchUserRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}
	in, err := req.toModel()
	if err != nil {
		return err
	}

	user, err := h.service.PartialUpdateUser(id, in, acting)
	if err != nil {
		return err
	}
	return c.JSON(newUserResponse(user))
}

// DeleteUser handles DELETE /users/:id.
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	acting, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteUser(id, acting); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *UserHandler) parse(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	return validateStruct(h.validate, req)
}

func userID(c *fiber.Ctx) (uint64, error) {
	raw := c.Params("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("invalid 'id' supplied: should be a positive integer and %q isn't", raw))
	}
	return id, nil
}

func principal(c *fiber.Ctx) (string, error) {
	name, ok := c.Locals(LocalsUsername).(string)
	if !ok || name == "" {
		return "", fmt.Errorf("%w: principal not available", services.ErrPreconditionFailed)
	}
	return name, nil
}
