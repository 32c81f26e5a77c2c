package handlers

import (
	"encoding/json"
	"log/slog"

	"taskmanager/internal/middleware"
	"taskmanager/internal/services"

	"github.com/gofiber/fiber/v2"
)

// TaskHandler handles HTTP requests for the authenticated user's tasks.
type TaskHandler struct {
	service *services.TaskService
	log     *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service *services.TaskService, log *slog.Logger) *TaskHandler {
	return &TaskHandler{
		service: service,
		log:     log,
	}
}

// RegisterRoutes registers the task routes behind auth.
func (h *TaskHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	taskRoutes := router.Group("/tasks", auth)
	taskRoutes.Get("/", h.HandleListTasks)
	taskRoutes.Get("/:id", h.HandleGetTask)
	taskRoutes.Post("/", h.HandleCreateTask)
	taskRoutes.Patch("/:id", h.HandleUpdateTask)
	taskRoutes.Delete("/:id", h.HandleDeleteTask)
}

// HandleListTasks lists tasks, honouring completed, limit, skip and sortBy.
//
//	GET /tasks?completed=true
//	GET /tasks?limit=10&skip=20
//	GET /tasks?sortBy=createdAt_desc
func (h *TaskHandler) HandleListTasks(c *fiber.Ctx) error {
	query := services.ParseTaskQuery(
		c.Query("completed"),
		c.Query("limit"),
		c.Query("skip"),
		c.Query("sortBy"),
	)

	tasks, err := h.service.List(middleware.CurrentUser(c).ID, query)
	if err != nil {
		return writeError(c, h.log, "list tasks", err)
	}
	return c.JSON(tasks)
}

// HandleGetTask returns one task of the user.
func (h *TaskHandler) HandleGetTask(c *fiber.Ctx) error {
	task, err := h.service.Get(middleware.CurrentUser(c).ID, c.Params("id"))
	if err != nil {
		return writeError(c, h.log, "get task", err)
	}
	return c.JSON(task)
}

// HandleCreateTask creates a task owned by the user.
func (h *TaskHandler) HandleCreateTask(c *fiber.Ctx) error {
	var input services.CreateTaskInput
	if err := c.BodyParser(&input); err != nil {
		return invalidBody(c)
	}

	task, err := h.service.Create(middleware.CurrentUser(c).ID, input)
	if err != nil {
		return writeError(c, h.log, "create task", err)
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

// HandleUpdateTask applies a partial update to one task of the user.
func (h *TaskHandler) HandleUpdateTask(c *fiber.Ctx) error {
	var updates map[string]json.RawMessage
	if err := c.BodyParser(&updates); err != nil {
		return invalidBody(c)
	}

	task, err := h.service.Update(middleware.CurrentUser(c).ID, c.Params("id"), updates)
	if err != nil {
		return writeError(c, h.log, "update task", err)
	}
	return c.JSON(task)
}

// HandleDeleteTask deletes one task of the user and returns it.
func (h *TaskHandler) HandleDeleteTask(c *fiber.Ctx) error {
	task, err := h.service.Delete(middleware.CurrentUser(c).ID, c.Params("id"))
	if err != nil {
		return writeError(c, h.log, "delete task", err)
	}
	return c.JSON(task)
}
