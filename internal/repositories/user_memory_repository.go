package repositories

import (
	"fmt"
	"sync"
	"time"

	"taskmanager/internal/models"

	"github.com/google/uuid"
)

// MemoryUserRepository is an in-memory implementation of UserRepository.
type MemoryUserRepository struct {
	users map[string]models.User
	mu    sync.RWMutex
}

// NewMemoryUserRepository creates a new instance of MemoryUserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[string]models.User),
	}
}

func cloneUser(u models.User) *models.User {
	u.Tokens = append([]models.Token(nil), u.Tokens...)
	if u.Avatar != nil {
		u.Avatar = append([]byte(nil), u.Avatar...)
	}
	return &u
}

func (r *MemoryUserRepository) emailTaken(email, exceptID string) bool {
	for id, u := range r.users {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

// Create adds a new user.
func (r *MemoryUserRepository) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(user.Email, "") {
		return fmt.Errorf("email %s already registered: %w", user.Email, ErrDuplicate)
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *cloneUser(*user)
	return nil
}

// GetByID returns a user by its ID.
func (r *MemoryUserRepository) GetByID(id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user with ID %s: %w", id, ErrNotFound)
	}
	return cloneUser(user), nil
}

// GetByEmail returns a user by its email.
func (r *MemoryUserRepository) GetByEmail(email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			return cloneUser(user), nil
		}
	}
	return nil, fmt.Errorf("user with email %s: %w", email, ErrNotFound)
}

// GetByToken returns the user if token is one of its active sessions.
func (r *MemoryUserRepository) GetByToken(userID, token string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if ok {
		for _, t := range user.Tokens {
			if t.Token == token {
				return cloneUser(user), nil
			}
		}
	}
	return nil, fmt.Errorf("session for user %s: %w", userID, ErrNotFound)
}

// Update modifies the profile fields of an existing user.
func (r *MemoryUserRepository) Update(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[user.ID]
	if !ok {
		return fmt.Errorf("user with ID %s: %w", user.ID, ErrNotFound)
	}
	if r.emailTaken(user.Email, user.ID) {
		return fmt.Errorf("email %s already registered: %w", user.Email, ErrDuplicate)
	}
	stored.Name = user.Name
	stored.Email = user.Email
	stored.Password = user.Password
	stored.Age = user.Age
	stored.UpdatedAt = time.Now()
	user.UpdatedAt = stored.UpdatedAt
	r.users[user.ID] = stored
	return nil
}

// SetAvatar replaces or clears the avatar.
func (r *MemoryUserRepository) SetAvatar(userID string, avatar []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user with ID %s: %w", userID, ErrNotFound)
	}
	stored.Avatar = append([]byte(nil), avatar...)
	r.users[userID] = stored
	return nil
}

// Delete removes a user and its sessions.
func (r *MemoryUserRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("user with ID %s: %w", id, ErrNotFound)
	}
	delete(r.users, id)
	return nil
}

// AddToken appends a session token.
func (r *MemoryUserRepository) AddToken(userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user with ID %s: %w", userID, ErrNotFound)
	}
	stored.Tokens = append(stored.Tokens, models.Token{UserID: userID, Token: token, CreatedAt: time.Now()})
	r.users[userID] = stored
	return nil
}

// RemoveToken drops exactly the matching session token.
func (r *MemoryUserRepository) RemoveToken(userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[userID]
	if !ok {
		return nil
	}
	kept := stored.Tokens[:0:0]
	for _, t := range stored.Tokens {
		if t.Token != token {
			kept = append(kept, t)
		}
	}
	stored.Tokens = kept
	r.users[userID] = stored
	return nil
}

// RemoveAllTokens clears every session of the user.
func (r *MemoryUserRepository) RemoveAllTokens(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[userID]
	if !ok {
		return nil
	}
	stored.Tokens = nil
	r.users[userID] = stored
	return nil
}
