package repositories

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"taskmanager/internal/models"

	"github.com/google/uuid"
)

// MemoryTaskRepository is an in-memory implementation of TaskRepository.
type MemoryTaskRepository struct {
	tasks map[string]models.Task
	mu    sync.RWMutex
}

// NewMemoryTaskRepository creates a new instance of MemoryTaskRepository.
func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{
		tasks: make(map[string]models.Task),
	}
}

var taskCompare = map[string]func(a, b models.Task) int{
	"description": func(a, b models.Task) int { return strings.Compare(a.Description, b.Description) },
	"completed": func(a, b models.Task) int {
		switch {
		case a.Completed == b.Completed:
			return 0
		case !a.Completed:
			return -1
		default:
			return 1
		}
	},
	"createdAt": func(a, b models.Task) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"updatedAt": func(a, b models.Task) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
}

// Create adds a new task.
func (r *MemoryTaskRepository) Create(task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	r.tasks[task.ID] = *task
	return nil
}

// List returns the owner's tasks filtered, ordered and paged by query.
func (r *MemoryTaskRepository) List(ownerID string, query TaskQuery) ([]models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]models.Task, 0)
	for _, task := range r.tasks {
		if task.OwnerID != ownerID {
			continue
		}
		if query.Completed != nil && task.Completed != *query.Completed {
			continue
		}
		tasks = append(tasks, task)
	}

	// Creation order is the base order, as with an unsorted SQL scan, and
	// breaks ties of the requested sort key.
	sort.Slice(tasks, func(i, j int) bool {
		if c := tasks[i].CreatedAt.Compare(tasks[j].CreatedAt); c != 0 {
			return c < 0
		}
		return tasks[i].ID < tasks[j].ID
	})
	if cmp, ok := taskCompare[query.SortField]; ok {
		sort.SliceStable(tasks, func(i, j int) bool {
			if query.SortDesc {
				return cmp(tasks[i], tasks[j]) > 0
			}
			return cmp(tasks[i], tasks[j]) < 0
		})
	}

	if query.Skip > 0 {
		if query.Skip >= len(tasks) {
			return make([]models.Task, 0), nil
		}
		tasks = tasks[query.Skip:]
	}
	if query.Limit > 0 && query.Limit < len(tasks) {
		tasks = tasks[:query.Limit]
	}
	return tasks, nil
}

// GetByID returns one of the owner's tasks.
func (r *MemoryTaskRepository) GetByID(ownerID, id string) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return nil, fmt.Errorf("task with ID %s: %w", id, ErrNotFound)
	}
	return &task, nil
}

// Update modifies description and completion of one of the owner's tasks.
func (r *MemoryTaskRepository) Update(task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tasks[task.ID]
	if !ok || stored.OwnerID != task.OwnerID {
		return fmt.Errorf("task with ID %s: %w", task.ID, ErrNotFound)
	}
	stored.Description = task.Description
	stored.Completed = task.Completed
	stored.UpdatedAt = time.Now()
	task.UpdatedAt = stored.UpdatedAt
	r.tasks[task.ID] = stored
	return nil
}

// Delete removes one of the owner's tasks and returns it.
func (r *MemoryTaskRepository) Delete(ownerID, id string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return nil, fmt.Errorf("task with ID %s: %w", id, ErrNotFound)
	}
	delete(r.tasks, id)
	return &task, nil
}

// DeleteByOwner removes every task of the owner.
func (r *MemoryTaskRepository) DeleteByOwner(ownerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, task := range r.tasks {
		if task.OwnerID == ownerID {
			delete(r.tasks, id)
			n++
		}
	}
	return n, nil
}
