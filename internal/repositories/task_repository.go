package repositories

import "taskmanager/internal/models"

// TaskSortColumns maps the sortable API field names to their columns.
var TaskSortColumns = map[string]string{
	"description": "description",
	"completed":   "completed",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
}

// TaskQuery narrows and orders a task listing. Zero Limit and Skip mean
// unbounded and none. Tasks come in creation order unless SortField names
// a known field, and that order also breaks ties.
type TaskQuery struct {
	Completed *bool
	Limit     int
	Skip      int
	SortField string
	SortDesc  bool
}

// TaskRepository defines the interface for task data access. Every lookup
// is scoped to an owner.
type TaskRepository interface {
	Create(task *models.Task) error
	List(ownerID string, query TaskQuery) ([]models.Task, error)
	GetByID(ownerID, id string) (*models.Task, error)
	Update(task *models.Task) error
	Delete(ownerID, id string) (*models.Task, error)
	DeleteByOwner(ownerID string) (int64, error)
}
