package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"taskmanager/internal/models"
	"taskmanager/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=7,bcryptlen,nopassword"`
	Age      int    `json:"age" validate:"min=0"`
}

// LoginInput is the body of a login request.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthService handles registration, credential checks and session tokens.
type AuthService struct {
	userRepo  repositories.UserRepository
	notifier  Notifier
	jwtSecret []byte
	tokenTTL  time.Duration // zero means tokens never expire
	log       *slog.Logger

	// compared against when the email is unknown so both failure paths cost a bcrypt run
	dummyHash []byte
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo repositories.UserRepository,
	notifier Notifier,
	jwtSecret string,
	tokenTTL time.Duration,
	log *slog.Logger,
) *AuthService {
	dummy, _ := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	return &AuthService{
		userRepo:  userRepo,
		notifier:  notifier,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		log:       log,
		dummyHash: dummy,
	}
}

// Register validates the input, stores the new user with a hashed password,
// issues its first token and sends the welcome notification.
func (s *AuthService) Register(input RegisterInput) (*models.User, string, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	input.Password = strings.TrimSpace(input.Password)

	if err := validateStruct(userValidationFailed, input); err != nil {
		return nil, "", err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:     input.Name,
		Email:    input.Email,
		Password: string(hashedPassword),
		Age:      input.Age,
	}
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, "", fieldError(userValidationFailed, "email", "Email is already registered.")
		}
		return nil, "", fmt.Errorf("failed to register user: %w", err)
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}

	s.notifier.AccountCreated(user)
	return user, token, nil
}

// Login checks the credentials and opens a new session.
func (s *AuthService) Login(email, password string) (*models.User, string, error) {
	user, err := s.FindByCredentials(email, password)
	if err != nil {
		return nil, "", err
	}
	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// FindByCredentials returns the user whose email and password match. Any
// mismatch yields ErrInvalidCredentials.
func (s *AuthService) FindByCredentials(email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken signs a new token for user and records it as an active session.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"iat":     now.Unix(),
		"jti":     uuid.NewString(),
	}
	if s.tokenTTL > 0 {
		claims["exp"] = now.Add(s.tokenTTL).Unix()
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.userRepo.AddToken(user.ID, tokenString); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}
	return tokenString, nil
}

// RevokeToken ends the single session identified by token.
func (s *AuthService) RevokeToken(user *models.User, token string) error {
	if err := s.userRepo.RemoveToken(user.ID, token); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// RevokeAllTokens ends every session of user.
func (s *AuthService) RevokeAllTokens(user *models.User) error {
	if err := s.userRepo.RemoveAllTokens(user.ID); err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	return nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// Authenticate resolves a bearer token to its user. The token must verify
// and still be one of the user's active sessions.
func (s *AuthService) Authenticate(tokenString string) (*models.User, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		s.log.Debug("token rejected", slog.String("reason", err.Error()))
		return nil, ErrUnauthorized
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		s.log.Debug("token rejected", slog.String("reason", "missing user_id claim"))
		return nil, ErrUnauthorized
	}

	user, err := s.userRepo.GetByToken(userID, tokenString)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.log.Debug("token rejected", slog.String("reason", "session not active"), slog.String("user_id", userID))
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	return user, nil
}
