package repositories

import "taskmanager/internal/models"

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	// GetByToken returns the user only while token is one of its active sessions.
	GetByToken(userID, token string) (*models.User, error)
	// Update persists name, email, password and age. Tokens and avatar are untouched.
	Update(user *models.User) error
	SetAvatar(userID string, avatar []byte) error
	Delete(id string) error

	AddToken(userID, token string) error
	RemoveToken(userID, token string) error
	RemoveAllTokens(userID string) error
}
