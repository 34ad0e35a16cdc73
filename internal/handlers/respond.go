package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"vouche/internal/repositories"
	"vouche/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Guards are the route middlewares handlers attach to their protected routes.
type Guards struct {
	Auth       fiber.Handler
	Admin      fiber.Handler
	OrderLimit fiber.Handler
}

func badBody(c *fiber.Ctx, logger *slog.Logger, err error) error {
	logger.Debug("error parsing request body", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

// validateBody runs struct validation and writes the 400 response itself.
// It returns false when the request was rejected.
func validateBody(c *fiber.Ctx, validate *validator.Validate, body interface{}) (bool, error) {
	err := validate.Struct(body)
	if err == nil {
		return true, nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}
	errorMessages := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		errorMessages[field] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

// fail maps a service error to its HTTP response.
func fail(c *fiber.Ctx, logger *slog.Logger, action string, err error) error {
	var verr *services.ValidationError
	var stockErr *services.InsufficientStockError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  fiber.Map{verr.Field: verr.Message},
		})
	case errors.As(err, &stockErr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message":    "Insufficient stock",
			"error":      err.Error(),
			"product_id": stockErr.ProductID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		})
	case errors.Is(err, repositories.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Resource not found",
			"error":   err.Error(),
		})
	case errors.Is(err, repositories.ErrDuplicate), errors.Is(err, services.ErrAlreadyExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "Resource already exists",
			"error":   err.Error(),
		})
	}

	logger.Error("request failed", "action", action, "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Could not " + action,
		"error":   err.Error(),
	})
}

func currentUser(c *fiber.Ctx) (userID, role string) {
	userID, _ = c.Locals("user_id").(string)
	role, _ = c.Locals("role").(string)
	return userID, role
}
