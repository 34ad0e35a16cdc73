package handlers

import (
	"fmt"
	"log/slog"

	"vouche/internal/models"
	"vouche/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CategoryHandler handles HTTP requests for categories.
type CategoryHandler struct {
	service  *services.CategoryService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewCategoryHandler(service *services.CategoryService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes registers the category routes. Reads are public.
func (h *CategoryHandler) RegisterRoutes(router fiber.Router, guards Guards) {
	categoryRoutes := router.Group("/categories")
	categoryRoutes.Get("/", h.HandleGetCategories)
	categoryRoutes.Get("/:id", h.HandleGetCategoryByID)
	categoryRoutes.Post("/", guards.Auth, guards.Admin, h.HandleCreateCategory)
	categoryRoutes.Put("/:id", guards.Auth, guards.Admin, h.HandleUpdateCategory)
	categoryRoutes.Delete("/:id", guards.Auth, guards.Admin, h.HandleDeleteCategory)
}

// CategoryRequest is the body of category create and update calls.
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

func (h *CategoryHandler) HandleGetCategories(c *fiber.Ctx) error {
	categories, err := h.service.GetAllCategories(c.UserContext())
	if err != nil {
		return fail(c, h.logger, "retrieve categories", err)
	}
	return c.JSON(categories)
}

func (h *CategoryHandler) HandleGetCategoryByID(c *fiber.Ctx) error {
	category, err := h.service.GetCategoryByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, h.logger, "retrieve category", err)
	}
	return c.JSON(category)
}

func (h *CategoryHandler) HandleCreateCategory(c *fiber.Ctx) error {
	var req CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, h.logger, err)
	}
	if ok, err := validateBody(c, h.validate, req); !ok {
		return err
	}

	category := models.Category{Name: req.Name, Description: req.Description}
	if err := h.service.CreateCategory(c.UserContext(), &category); err != nil {
		return fail(c, h.logger, "create category", err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

func (h *CategoryHandler) HandleUpdateCategory(c *fiber.Ctx) error {
	var req CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, h.logger, err)
	}
	if ok, err := validateBody(c, h.validate, req); !ok {
		return err
	}

	category := models.Category{ID: c.Params("id"), Name: req.Name, Description: req.Description}
	if err := h.service.UpdateCategory(c.UserContext(), &category); err != nil {
		return fail(c, h.logger, "update category", err)
	}
	return c.JSON(category)
}

func (h *CategoryHandler) HandleDeleteCategory(c *fiber.Ctx) error {
	categoryID := c.Params("id")
	if err := h.service.DeleteCategory(c.UserContext(), categoryID); err != nil {
		return fail(c, h.logger, "delete category", err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Category with ID %s deleted successfully", categoryID),
	})
}
