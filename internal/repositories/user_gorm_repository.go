package repositories

import (
	"errors"
	"fmt"

	"taskmanager/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := r.db.Omit("Tokens").Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("email %s already registered: %w", user.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user, avatar included, by their ID.
func (r *GORMUserRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by ID %s: %w", id, err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Omit("avatar").First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with email %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, err)
	}
	return &user, nil
}

// GetByToken retrieves the user owning an active session token. The avatar
// blob is not loaded.
func (r *GORMUserRepository) GetByToken(userID, token string) (*models.User, error) {
	sessions := r.db.Model(&models.Token{}).Select("user_id").Where("token = ?", token)

	var user models.User
	err := r.db.Omit("avatar").
		Where("id = ? AND id IN (?)", userID, sessions).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session for user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by token: %w", err)
	}
	return &user, nil
}

// Update writes the profile columns of an existing user.
func (r *GORMUserRepository) Update(user *models.User) error {
	res := r.db.Model(user).Select("name", "email", "password", "age", "updated_at").Updates(user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("email %s already registered: %w", user.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user with ID %s: %w", user.ID, ErrNotFound)
	}
	return nil
}

// SetAvatar replaces the avatar blob; a nil avatar clears it.
func (r *GORMUserRepository) SetAvatar(userID string, avatar []byte) error {
	res := r.db.Model(&models.User{ID: userID}).Select("avatar").Updates(&models.User{Avatar: avatar})
	if res.Error != nil {
		return fmt.Errorf("failed to set avatar: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user with ID %s: %w", userID, ErrNotFound)
	}
	return nil
}

// Delete removes a user together with its session tokens.
func (r *GORMUserRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Token{}).Error; err != nil {
			return fmt.Errorf("failed to delete tokens: %w", err)
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user with ID %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// AddToken records a new active session.
func (r *GORMUserRepository) AddToken(userID, token string) error {
	if err := r.db.Create(&models.Token{UserID: userID, Token: token}).Error; err != nil {
		return fmt.Errorf("failed to add token: %w", err)
	}
	return nil
}

// RemoveToken ends exactly one session. Removing an unknown token is a no-op.
func (r *GORMUserRepository) RemoveToken(userID, token string) error {
	if err := r.db.Where("user_id = ? AND token = ?", userID, token).Delete(&models.Token{}).Error; err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

// RemoveAllTokens ends every session of the user.
func (r *GORMUserRepository) RemoveAllTokens(userID string) error {
	if err := r.db.Where("user_id = ?", userID).Delete(&models.Token{}).Error; err != nil {
		return fmt.Errorf("failed to remove tokens: %w", err)
	}
	return nil
}
