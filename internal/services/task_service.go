package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"taskmanager/internal/models"
	"taskmanager/internal/repositories"
)

var taskUpdatable = []string{"description", "completed"}

// CreateTaskInput is the body of a task creation request.
type CreateTaskInput struct {
	Description string `json:"description" validate:"required"`
	Completed   bool   `json:"completed"`
}

type taskFields struct {
	Description string `json:"description" validate:"required"`
}

// TaskService implements owner-scoped task access.
type TaskService struct {
	tasks repositories.TaskRepository
}

// NewTaskService creates a new TaskService.
func NewTaskService(tasks repositories.TaskRepository) *TaskService {
	return &TaskService{tasks: tasks}
}

// ParseTaskQuery turns the raw query string values of a listing request into
// a TaskQuery. It never fails: malformed values fall back to "absent".
//
//	completed  "true" filters completed tasks, any other present value open ones
//	limit      positive integer, otherwise unbounded
//	skip       positive integer, otherwise zero
//	sortBy     field_direction, direction "desc" or ascending
func ParseTaskQuery(completed, limit, skip, sortBy string) repositories.TaskQuery {
	var q repositories.TaskQuery
	if completed != "" {
		v := completed == "true"
		q.Completed = &v
	}
	q.Limit = nonNegative(limit)
	q.Skip = nonNegative(skip)
	if sortBy != "" {
		field, direction, _ := strings.Cut(sortBy, "_")
		q.SortField = field
		q.SortDesc = direction == "desc"
	}
	return q
}

func nonNegative(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// List returns the owner's tasks. The result is never nil.
func (s *TaskService) List(ownerID string, query repositories.TaskQuery) ([]models.Task, error) {
	tasks, err := s.tasks.List(ownerID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// Get returns one of the owner's tasks.
func (s *TaskService) Get(ownerID, id string) (*models.Task, error) {
	task, err := s.tasks.GetByID(ownerID, id)
	if err != nil {
		return nil, translateTaskErr(err, id)
	}
	return task, nil
}

// Create stores a new task owned by ownerID.
func (s *TaskService) Create(ownerID string, input CreateTaskInput) (*models.Task, error) {
	input.Description = strings.TrimSpace(input.Description)
	if err := validateStruct(taskValidationFailed, input); err != nil {
		return nil, err
	}

	task := &models.Task{
		Description: input.Description,
		Completed:   input.Completed,
		OwnerID:     ownerID,
	}
	if err := s.tasks.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// Update applies a partial update to one of the owner's tasks. Only
// description and completed may change; any other key rejects the update
// before the task is even looked up.
func (s *TaskService) Update(ownerID, id string, updates map[string]json.RawMessage) (*models.Task, error) {
	if err := checkWhitelist(updates, taskUpdatable...); err != nil {
		return nil, err
	}

	var (
		fields       taskFields
		completed    bool
		hasDesc      bool
		hasCompleted bool
		errs         []error
	)
	if raw, ok := updates["description"]; ok {
		hasDesc = true
		errs = append(errs, decodeField(taskValidationFailed, "description", raw, &fields.Description))
	}
	if raw, ok := updates["completed"]; ok {
		hasCompleted = true
		errs = append(errs, decodeField(taskValidationFailed, "completed", raw, &completed))
	}
	if err := mergeValidation(taskValidationFailed, errs...); err != nil {
		return nil, err
	}
	if hasDesc {
		fields.Description = strings.TrimSpace(fields.Description)
		if err := validateStruct(taskValidationFailed, fields); err != nil {
			return nil, err
		}
	}

	task, err := s.tasks.GetByID(ownerID, id)
	if err != nil {
		return nil, translateTaskErr(err, id)
	}
	if hasDesc {
		task.Description = fields.Description
	}
	if hasCompleted {
		task.Completed = completed
	}

	if err := s.tasks.Update(task); err != nil {
		return nil, translateTaskErr(err, id)
	}
	return task, nil
}

// Delete removes one of the owner's tasks and returns it.
func (s *TaskService) Delete(ownerID, id string) (*models.Task, error) {
	task, err := s.tasks.Delete(ownerID, id)
	if err != nil {
		return nil, translateTaskErr(err, id)
	}
	return task, nil
}

func translateTaskErr(err error, id string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("task %s: %w", id, err)
}
