package services

import "taskmanager/internal/models"

// Notifier tells the user about account lifecycle events. Implementations
// are best effort: they never fail the operation that triggered them.
type Notifier interface {
	AccountCreated(user *models.User)
	AccountDeleted(user *models.User)
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) AccountCreated(*models.User) {}
func (NopNotifier) AccountDeleted(*models.User) {}
