package handlers

import (
	"encoding/json"
	"log/slog"

	"taskmanager/internal/middleware"
	"taskmanager/internal/services"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles HTTP requests for accounts, sessions and avatars.
type UserHandler struct {
	authService *services.AuthService
	userService *services.UserService
	log         *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(authService *services.AuthService, userService *services.UserService, log *slog.Logger) *UserHandler {
	return &UserHandler{
		authService: authService,
		userService: userService,
		log:         log,
	}
}

// RegisterRoutes registers the user routes. auth guards the private
// routes; loginLimit, when not nil, throttles login attempts.
func (h *UserHandler) RegisterRoutes(router fiber.Router, auth, loginLimit fiber.Handler) {
	userRoutes := router.Group("/users")

	userRoutes.Post("/", h.HandleRegister)
	if loginLimit != nil {
		userRoutes.Post("/login", loginLimit, h.HandleLogin)
	} else {
		userRoutes.Post("/login", h.HandleLogin)
	}
	userRoutes.Post("/logout", auth, h.HandleLogout)
	userRoutes.Post("/logoutAll", auth, h.HandleLogoutAll)

	userRoutes.Get("/me", auth, h.HandleGetMe)
	userRoutes.Patch("/me", auth, h.HandleUpdateMe)
	userRoutes.Delete("/me", auth, h.HandleDeleteMe)

	userRoutes.Post("/me/avatar", auth, h.HandleUploadAvatar)
	userRoutes.Delete("/me/avatar", auth, h.HandleDeleteAvatar)
	userRoutes.Get("/:id/avatar", h.HandleGetAvatar)
}

// HandleRegister creates an account and returns it with its first token.
func (h *UserHandler) HandleRegister(c *fiber.Ctx) error {
	var input services.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return invalidBody(c)
	}

	user, token, err := h.authService.Register(input)
	if err != nil {
		return writeError(c, h.log, "register", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":  user,
		"token": token,
	})
}

// HandleLogin opens a new session for valid credentials.
func (h *UserHandler) HandleLogin(c *fiber.Ctx) error {
	var input services.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return writeError(c, h.log, "login", services.ErrInvalidCredentials)
	}

	user, token, err := h.authService.Login(input.Email, input.Password)
	if err != nil {
		return writeError(c, h.log, "login", err)
	}
	return c.JSON(fiber.Map{
		"user":  user,
		"token": token,
	})
}

// HandleLogout ends the session the request was made with.
func (h *UserHandler) HandleLogout(c *fiber.Ctx) error {
	if err := h.authService.RevokeToken(middleware.CurrentUser(c), middleware.CurrentToken(c)); err != nil {
		return writeError(c, h.log, "logout", err)
	}
	return emptyStatus(c, fiber.StatusOK)
}

// HandleLogoutAll ends every session of the user.
func (h *UserHandler) HandleLogoutAll(c *fiber.Ctx) error {
	if err := h.authService.RevokeAllTokens(middleware.CurrentUser(c)); err != nil {
		return writeError(c, h.log, "logout all", err)
	}
	return emptyStatus(c, fiber.StatusOK)
}

// HandleGetMe returns the authenticated user's profile.
func (h *UserHandler) HandleGetMe(c *fiber.Ctx) error {
	return c.JSON(middleware.CurrentUser(c))
}

// HandleUpdateMe applies a partial profile update.
func (h *UserHandler) HandleUpdateMe(c *fiber.Ctx) error {
	var updates map[string]json.RawMessage
	if err := c.BodyParser(&updates); err != nil {
		return invalidBody(c)
	}

	user, err := h.userService.UpdateProfile(middleware.CurrentUser(c), updates)
	if err != nil {
		return writeError(c, h.log, "update profile", err)
	}
	return c.JSON(user)
}

// HandleDeleteMe deletes the account and all of its tasks.
func (h *UserHandler) HandleDeleteMe(c *fiber.Ctx) error {
	user, err := h.userService.DeleteAccount(middleware.CurrentUser(c))
	if err != nil {
		return writeError(c, h.log, "delete account", err)
	}
	return c.JSON(user)
}

// HandleUploadAvatar stores the multipart file field "avatar" as the
// profile picture.
func (h *UserHandler) HandleUploadAvatar(c *fiber.Ctx) error {
	fh, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Please upload an image",
		})
	}

	f, err := fh.Open()
	if err != nil {
		return writeError(c, h.log, "open avatar upload", err)
	}
	defer f.Close()

	if err := h.userService.SetAvatar(middleware.CurrentUser(c), fh.Filename, fh.Size, f); err != nil {
		return writeError(c, h.log, "upload avatar", err)
	}
	return emptyStatus(c, fiber.StatusOK)
}

// HandleDeleteAvatar clears the profile picture.
func (h *UserHandler) HandleDeleteAvatar(c *fiber.Ctx) error {
	if err := h.userService.DeleteAvatar(middleware.CurrentUser(c)); err != nil {
		return writeError(c, h.log, "delete avatar", err)
	}
	return emptyStatus(c, fiber.StatusOK)
}

// HandleGetAvatar serves any user's profile picture without authentication.
func (h *UserHandler) HandleGetAvatar(c *fiber.Ctx) error {
	data, err := h.userService.Avatar(c.Params("id"))
	if err != nil {
		return writeError(c, h.log, "get avatar", err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(data)
}
