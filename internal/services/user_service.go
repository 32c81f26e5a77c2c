package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"taskmanager/internal/models"
	"taskmanager/internal/repositories"
	"taskmanager/pkg/avatar"

	"golang.org/x/crypto/bcrypt"
)

var userUpdatable = []string{"name", "email", "password", "age"}

type profile struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Age   int    `json:"age" validate:"min=0"`
}

// UserService implements the operations a user performs on their own account.
type UserService struct {
	users    repositories.UserRepository
	tasks    repositories.TaskRepository
	notifier Notifier
	log      *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(
	users repositories.UserRepository,
	tasks repositories.TaskRepository,
	notifier Notifier,
	log *slog.Logger,
) *UserService {
	return &UserService{users: users, tasks: tasks, notifier: notifier, log: log}
}

// UpdateProfile applies a partial update. Only name, email, password and age
// may be changed; any other key rejects the whole update before anything is
// read or written. Either every field applies or none does.
func (s *UserService) UpdateProfile(user *models.User, updates map[string]json.RawMessage) (*models.User, error) {
	if err := checkWhitelist(updates, userUpdatable...); err != nil {
		return nil, err
	}

	p := profile{Name: user.Name, Email: user.Email, Age: user.Age}
	var (
		password    string
		newPassword bool
		errs        []error
	)
	for field, raw := range updates {
		switch field {
		case "name":
			errs = append(errs, decodeField(userValidationFailed, field, raw, &p.Name))
		case "email":
			errs = append(errs, decodeField(userValidationFailed, field, raw, &p.Email))
		case "password":
			newPassword = true
			errs = append(errs, decodeField(userValidationFailed, field, raw, &password))
		case "age":
			errs = append(errs, decodeField(userValidationFailed, field, raw, &p.Age))
		}
	}
	if err := mergeValidation(userValidationFailed, errs...); err != nil {
		return nil, err
	}

	p.Name = strings.TrimSpace(p.Name)
	p.Email = normalizeEmail(p.Email)
	password = strings.TrimSpace(password)

	errs = []error{validateStruct(userValidationFailed, p)}
	if newPassword {
		errs = append(errs, validatePassword(userValidationFailed, password))
	}
	if err := mergeValidation(userValidationFailed, errs...); err != nil {
		return nil, err
	}

	updated := *user
	updated.Name = p.Name
	updated.Email = p.Email
	updated.Age = p.Age
	if newPassword {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		updated.Password = string(hashed)
	}

	if err := s.users.Update(&updated); err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicate):
			return nil, fieldError(userValidationFailed, "email", "Email is already registered.")
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	return &updated, nil
}

// DeleteAccount removes every task of the user, then the user itself, and
// finally sends the cancellation notification. The two deletes are not one
// transaction: a failure in between leaves an account without tasks.
func (s *UserService) DeleteAccount(user *models.User) (*models.User, error) {
	n, err := s.tasks.DeleteByOwner(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete tasks of user %s: %w", user.ID, err)
	}

	if err := s.users.Delete(user.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete user %s: %w", user.ID, err)
	}

	s.log.Info("account deleted", slog.String("user_id", user.ID), slog.Int64("tasks", n))
	s.notifier.AccountDeleted(user)
	return user, nil
}

// SetAvatar validates an uploaded image, normalizes it and stores it in
// place of any previous avatar.
func (s *UserService) SetAvatar(user *models.User, filename string, size int64, r io.Reader) error {
	if err := avatar.Validate(filename, size); err != nil {
		return &ValidationError{Message: err.Error()}
	}

	data, err := io.ReadAll(io.LimitReader(r, avatar.MaxSize+1))
	if err != nil {
		return fmt.Errorf("failed to read avatar: %w", err)
	}
	if len(data) > avatar.MaxSize {
		return &ValidationError{Message: avatar.ErrTooLarge.Error()}
	}

	normalized, err := avatar.Normalize(data)
	if err != nil {
		switch {
		case errors.Is(err, avatar.ErrInvalidImage):
			return &ValidationError{Message: avatar.ErrUnsupportedType.Error()}
		case errors.Is(err, avatar.ErrTooManyPixels):
			return &ValidationError{Message: err.Error()}
		}
		return err
	}

	if err := s.users.SetAvatar(user.ID, normalized); err != nil {
		return fmt.Errorf("failed to store avatar: %w", err)
	}
	return nil
}

// DeleteAvatar clears the avatar. Clearing an absent avatar succeeds.
func (s *UserService) DeleteAvatar(user *models.User) error {
	if err := s.users.SetAvatar(user.ID, nil); err != nil {
		return fmt.Errorf("failed to delete avatar: %w", err)
	}
	return nil
}

// Avatar returns the stored PNG of any user. A missing user and a user
// without an avatar are both ErrNotFound.
func (s *UserService) Avatar(userID string) ([]byte, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	if !user.HasAvatar() {
		return nil, ErrNotFound
	}
	return user.Avatar, nil
}
