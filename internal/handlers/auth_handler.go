package handlers

import (
	"errors"
	"log/slog"

	"vouche/internal/models"
	"vouche/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
		logger:      logger,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, guards Guards) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Get("/me", guards.Auth, h.HandleMe)
	authRoutes.Get("/validate", guards.Auth, h.HandleValidate)
	authRoutes.Put("/profile", guards.Auth, h.HandleUpdateProfile)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"max=100"`
	Phone    string `json:"phone" validate:"max=20"`
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, h.logger, err)
	}
	if ok, err := validateBody(c, h.validate, req); !ok {
		return err
	}

	user := models.User{Username: req.Username, Email: req.Email, Password: req.Password, Name: req.Name, Phone: req.Phone}
	if err := h.authService.RegisterUser(c.UserContext(), &user); err != nil {
		if errors.Is(err, services.ErrAlreadyExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Registration failed",
				"error":   err.Error(),
			})
		}
		return fail(c, h.logger, "register user", err)
	}

	// For security, do not return the password hash
	user.Password = ""
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, h.logger, err)
	}
	if ok, err := validateBody(c, h.validate, req); !ok {
		return err
	}

	token, err := h.authService.LoginUser(c.UserContext(), req.Username, req.Password)
	if err != nil {
		h.logger.Info("login failed", "username", req.Username, "error", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authentication failed",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
	})
}

// HandleMe returns the profile of the authenticated user.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	user, err := h.authService.GetUser(c.UserContext(), userID)
	if err != nil {
		return fail(c, h.logger, "retrieve user", err)
	}
	return c.JSON(user)
}

// HandleValidate reports the identity carried by a still-valid token.
func (h *AuthHandler) HandleValidate(c *fiber.Ctx) error {
	userID, role := currentUser(c)
	return c.JSON(fiber.Map{
		"valid":    true,
		"user_id":  userID,
		"username": c.Locals("username"),
		"role":     role,
	})
}

// UpdateProfileRequest represents the request body for a profile update.
type UpdateProfileRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Phone string `json:"phone" validate:"max=20"`
}

// HandleUpdateProfile updates the name and phone number of the authenticated user.
func (h *AuthHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, h.logger, err)
	}
	if ok, err := validateBody(c, h.validate, req); !ok {
		return err
	}

	userID, _ := currentUser(c)
	user, err := h.authService.UpdateProfile(c.UserContext(), userID, req.Name, req.Phone)
	if err != nil {
		return fail(c, h.logger, "update profile", err)
	}
	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"user":    user,
	})
}
