package api

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	domain "github.com/Aftab-Fury/Task-Manager/domain/task"
	"github.com/Aftab-Fury/Task-Manager/modules/auth"
	"github.com/Aftab-Fury/Task-Manager/modules/task"
	"github.com/gofiber/fiber/v2"
)

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	auth   auth.AuthPort
	tasks  task.TaskPort
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(authPort auth.AuthPort, tasks task.TaskPort, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		auth:   authPort,
		tasks:  tasks,
		logger: logger,
	}
}

// Register handles user registration.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, fiber.StatusBadRequest, string(domain.CodeInvalidPayload), "Invalid request body", nil)
	}
	if req.Username == "" || req.Password == "" {
		return sendError(c, fiber.StatusBadRequest, string(domain.CodeValidation), "Username and password are required", nil)
	}

	resp, err := h.auth.Register(c.UserContext(), auth.RegisterRequest{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return writeAuthError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Login handles user login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, fiber.StatusBadRequest, string(domain.CodeInvalidPayload), "Invalid request body", nil)
	}
	if req.Username == "" || req.Password == "" {
		return sendError(c, fiber.StatusBadRequest, string(domain.CodeValidation), "Username and password are required", nil)
	}

	tokens, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return writeAuthError(c, h.logger, err)
	}
	return c.JSON(tokens)
}

// Refresh exchanges a refresh token for a new token pair.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, fiber.StatusBadRequest, string(domain.CodeInvalidPayload), "Invalid request body", nil)
	}
	if req.RefreshToken == "" {
		return sendError(c, fiber.StatusBadRequest, string(domain.CodeValidation), "Refresh token is required", nil)
	}

	tokens, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return sendError(c, fiber.StatusUnauthorized, string(domain.CodeUnauthenticated), "Invalid or expired refresh token", nil)
	}
	return c.JSON(tokens)
}

// Profile returns the authenticated user's profile.
func (h *Handlers) Profile(c *fiber.Ctx) error {
	profile, err := h.auth.GetUser(c.UserContext(), actorID(c))
	if err != nil {
		return writeAuthError(c, h.logger, err)
	}
	return c.JSON(profile)
}

// ListTasks handles GET /tasks?status=&task_type=.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	tasks, err := h.tasks.List(c.UserContext(), actorID(c), task.Filter{
		Status:   c.Query("status"),
		TaskType: c.Query("task_type"),
	})
	if err != nil {
		return writeTaskError(c, h.logger, err)
	}
	return c.JSON(tasks)
}

// CreateTask handles POST /tasks. The creator is always the caller.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	in, err := parseTaskInput(c)
	if err != nil {
		return writeTaskError(c, h.logger, err)
	}
	v, err := h.tasks.Create(c.UserContext(), actorID(c), in)
	if err != nil {
		return writeTaskError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(v)
}

// GetTask handles GET /tasks/:id.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}
	v, err := h.tasks.Get(c.UserContext(), actorID(c), id)
	if err != nil {
		return writeTaskError(c, h.logger, err)
	}
	return c.JSON(v)
}

// ReplaceTask handles PUT /tasks/:id.
func (h *Handlers) ReplaceTask(c *fiber.Ctx) error {
	return h.updateTask(c, false)
}

// PatchTask handles PATCH /tasks/:id.
func (h *Handlers) PatchTask(c *fiber.Ctx) error {
	return h.updateTask(c, true)
}

func (h *Handlers) updateTask(c *fiber.Ctx, partial bool) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}
	in, err := parseTaskInput(c)
	if err != nil {
		return writeTaskError(c, h.logger, err)
	}
	v, err := h.tasks.Update(c.UserContext(), actorID(c), id, in, partial)
	if err != nil {
		return writeTaskError(c, h.logger, err)
	}
	return c.JSON(v)
}

// DeleteTask handles DELETE /tasks/:id.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}
	if err := h.tasks.Delete(c.UserContext(), actorID(c), id); err != nil {
		return writeTaskError(c, h.logger, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AssignTask handles POST /tasks/:id/assign.
func (h *Handlers) AssignTask(c *fiber.Ctx) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}
	var req AssignRequest
	if body := c.Body(); len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return writeTaskError(c, h.logger, &domain.Error{Code: domain.CodeInvalidPayload, Message: "Invalid request body"})
		}
	}
	v, err := h.tasks.Assign(c.UserContext(), actorID(c), id, req.UserIDs)
	if err != nil {
		return writeTaskError(c, h.logger, err)
	}
	return c.JSON(v)
}

// TaskAssignments handles GET /tasks/:id/assignments.
func (h *Handlers) TaskAssignments(c *fiber.Ctx) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}
	users, err := h.tasks.Assignments(c.UserContext(), actorID(c), id)
	if err != nil {
		return writeTaskError(c, h.logger, err)
	}
	return c.JSON(users)
}

// UserTasks handles GET /users/:user/tasks for a user id or username.
func (h *Handlers) UserTasks(c *fiber.Ctx) error {
	tasks, err := h.tasks.ListForUserRef(c.UserContext(), actorID(c), c.Params("user"))
	if err != nil {
		return writeTaskError(c, h.logger, err)
	}
	return c.JSON(tasks)
}

// parseTaskInput decodes a task body. An empty body is an empty input.
func parseTaskInput(c *fiber.Ctx) (task.TaskInput, error) {
	var in task.TaskInput
	body := c.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return in, nil
	}
	if err := json.Unmarshal(body, &in); err != nil {
		return task.TaskInput{}, &domain.Error{Code: domain.CodeInvalidPayload, Message: "Invalid request body"}
	}
	return in, nil
}

// taskID parses the :id route parameter. Non-numeric ids do not name a task.
func taskID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 0)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusNotFound, "Not found.")
	}
	return uint(id), nil
}
