package handlers

import (
	"fmt"
	"log/slog"
	"strings"

	"vouche/internal/models"
	"vouche/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// ProductHandler handles HTTP requests for products and their gift-code pools.
type ProductHandler struct {
	service   *services.ProductService
	inventory *services.InventoryService
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, inventory *services.InventoryService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service:   service,
		inventory: inventory,
		validate:  validator.New(),
		logger:    logger,
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, guards Guards) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/stock", h.HandleGetStockLevels)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Get("/:id/stock", h.HandleGetStock)
	productRoutes.Post("/", guards.Auth, guards.Admin, h.HandleCreateProduct)
	productRoutes.Put("/:id", guards.Auth, guards.Admin, h.HandleUpdateProduct)
	productRoutes.Delete("/:id", guards.Auth, guards.Admin, h.HandleDeleteProduct)
	productRoutes.Get("/:id/codes", guards.Auth, guards.Admin, h.HandleListCodes)
	productRoutes.Post("/:id/codes", guards.Auth, guards.Admin, h.HandleUploadCodes)
}

// ProductRequest is the body of product create and update calls. Stock is not accepted.
type ProductRequest struct {
	Name        string          `json:"name" validate:"required,min=3,max=100"`
	CategoryID  *string         `json:"category_id" validate:"omitempty,uuid"`
	Description string          `json:"description" validate:"omitempty,max=500"`
	Price       decimal.Decimal `json:"price"`
}

func (r ProductRequest) toModel(id string) models.Product {
	return models.Product{
		ID:          id,
		Name:        r.Name,
		CategoryID:  r.CategoryID,
		Description: r.Description,
		Price:       r.Price,
	}
}

// UploadCodesRequest is the body of a bulk code upload.
type UploadCodesRequest struct {
	Codes []string `json:"codes" validate:"required,min=1,dive,required"`
}

// HandleGetProducts retrieves all products with their current stock.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts(c.UserContext())
	if err != nil {
		return fail(c, h.logger, "retrieve products", err)
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, h.logger, "retrieve product", err)
	}
	return c.JSON(product)
}

// HandleGetStock returns the number of unsold codes of a product.
func (h *ProductHandler) HandleGetStock(c *fiber.Ctx) error {
	productID := c.Params("id")
	available, err := h.inventory.AvailableCount(c.UserContext(), productID)
	if err != nil {
		return fail(c, h.logger, "count stock", err)
	}
	return c.JSON(fiber.Map{
		"product_id": productID,
		"available":  available,
	})
}

// HandleGetStockLevels returns the stock of the products listed in ?ids=a,b,c.
func (h *ProductHandler) HandleGetStockLevels(c *fiber.Ctx) error {
	counts, err := h.inventory.AvailableCounts(c.UserContext(), strings.Split(c.Query("ids"), ","))
	if err != nil {
		return fail(c, h.logger, "count stock", err)
	}
	return c.JSON(counts)
}

// HandleCreateProduct creates a new product. Its stock starts at zero until codes are uploaded.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var req ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, h.logger, err)
	}
	if ok, err := validateBody(c, h.validate, req); !ok {
		return err
	}

	product := req.toModel("")
	if err := h.service.CreateProduct(c.UserContext(), &product); err != nil {
		return fail(c, h.logger, "create product", err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct updates an existing product and returns it with its current stock.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var req ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, h.logger, err)
	}
	if ok, err := validateBody(c, h.validate, req); !ok {
		return err
	}

	product := req.toModel(c.Params("id"))
	if err := h.service.UpdateProduct(c.UserContext(), &product); err != nil {
		return fail(c, h.logger, "update product", err)
	}

	updated, err := h.service.GetProductByID(c.UserContext(), product.ID)
	if err != nil {
		return fail(c, h.logger, "retrieve product", err)
	}
	return c.JSON(updated)
}

// HandleDeleteProduct soft-deletes a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	productID := c.Params("id")
	if err := h.service.DeleteProduct(c.UserContext(), productID); err != nil {
		return fail(c, h.logger, "delete product", err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Product with ID %s deleted successfully", productID),
	})
}

// HandleListCodes lists every code of a product, sold or not.
func (h *ProductHandler) HandleListCodes(c *fiber.Ctx) error {
	codes, err := h.inventory.ListCodes(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, h.logger, "list gift codes", err)
	}
	return c.JSON(codes)
}

// HandleUploadCodes loads a batch of new codes into a product's pool.
func (h *ProductHandler) HandleUploadCodes(c *fiber.Ctx) error {
	var req UploadCodesRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, h.logger, err)
	}
	if ok, err := validateBody(c, h.validate, req); !ok {
		return err
	}

	productID := c.Params("id")
	inserted, err := h.inventory.BulkInsertCodes(c.UserContext(), productID, req.Codes)
	if err != nil {
		return fail(c, h.logger, "upload gift codes", err)
	}

	available, err := h.inventory.AvailableCount(c.UserContext(), productID)
	if err != nil {
		return fail(c, h.logger, "count stock", err)
	}
	h.logger.Info("gift codes uploaded", "product_id", productID, "inserted", inserted, "available", available)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Gift codes uploaded successfully",
		"product_id": productID,
		"inserted":   inserted,
		"available":  available,
	})
}
