package repositories

import (
	"errors"
	"fmt"

	"taskmanager/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMTaskRepository is a GORM implementation of TaskRepository.
type GORMTaskRepository struct {
	db *gorm.DB
}

// NewGORMTaskRepository creates a new instance of GORMTaskRepository.
func NewGORMTaskRepository(db *gorm.DB) *GORMTaskRepository {
	return &GORMTaskRepository{
		db: db,
	}
}

// Create creates a new task in the database.
func (r *GORMTaskRepository) Create(task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if err := r.db.Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// List returns the owner's tasks filtered, paged and ordered by query.
func (r *GORMTaskRepository) List(ownerID string, query TaskQuery) ([]models.Task, error) {
	q := r.db.Where("owner_id = ?", ownerID)
	if query.Completed != nil {
		q = q.Where("completed = ?", *query.Completed)
	}
	if column, ok := TaskSortColumns[query.SortField]; ok {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: query.SortDesc})
	}
	// creation order keeps pages stable when the sort key ties or is absent
	q = q.Order("created_at").Order("id")
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}
	if query.Skip > 0 {
		q = q.Offset(query.Skip)
	}

	tasks := make([]models.Task, 0)
	if err := q.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks for owner %s: %w", ownerID, err)
	}
	return tasks, nil
}

// GetByID retrieves one of the owner's tasks.
func (r *GORMTaskRepository) GetByID(ownerID, id string) (*models.Task, error) {
	var task models.Task
	if err := r.db.First(&task, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get task by ID %s: %w", id, err)
	}
	return &task, nil
}

// Update writes description and completion of an existing task.
func (r *GORMTaskRepository) Update(task *models.Task) error {
	res := r.db.Model(task).
		Where("owner_id = ?", task.OwnerID).
		Select("description", "completed", "updated_at").
		Updates(task)
	if res.Error != nil {
		return fmt.Errorf("failed to update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task with ID %s: %w", task.ID, ErrNotFound)
	}
	return nil
}

// Delete removes one of the owner's tasks and returns it.
func (r *GORMTaskRepository) Delete(ownerID, id string) (*models.Task, error) {
	var task models.Task
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&task, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, "id = ? AND owner_id = ?", id, ownerID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	return &task, nil
}

// DeleteByOwner removes every task of the owner and reports how many went.
func (r *GORMTaskRepository) DeleteByOwner(ownerID string) (int64, error) {
	res := r.db.Where("owner_id = ?", ownerID).Delete(&models.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete tasks of owner %s: %w", ownerID, res.Error)
	}
	return res.RowsAffected, nil
}
