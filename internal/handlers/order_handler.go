package handlers

import (
	"fmt"
	"log/slog"

	"vouche/internal/models"
	"vouche/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes registers the order routes with the Fiber app. Every route requires a token.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, guards Guards) {
	orderRoutes := router.Group("/orders", guards.Auth)
	orderRoutes.Post("/", guards.OrderLimit, h.HandleCreateOrder)
	orderRoutes.Get("/me", h.HandleGetMyOrders)
	orderRoutes.Get("/user/:userId", h.HandleGetUserOrders)
	orderRoutes.Get("/", guards.Admin, h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Put("/:id/status", guards.Admin, h.HandleUpdateOrderStatus)
}

// OrderItemRequest is one cart line. Price is the unit price the client displayed.
type OrderItemRequest struct {
	ProductID     string           `json:"product_id" validate:"required"`
	Quantity      int              `json:"quantity" validate:"gt=0"`
	Price         *decimal.Decimal `json:"price"`
	PaymentMethod string           `json:"payment_method" validate:"omitempty,oneof=credit_card bank_transfer promptpay"`
}

// CreateOrderRequest is the cart submitted at checkout.
type CreateOrderRequest struct {
	Items      []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	TotalPrice *decimal.Decimal   `json:"total_price"`
}

// HandleCreateOrder places an order for the authenticated user and returns its gift codes.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, h.logger, err)
	}
	if ok, err := validateBody(c, h.validate, req); !ok {
		return err
	}

	input := services.PlaceOrderInput{
		Items:       make([]services.OrderLine, 0, len(req.Items)),
		ClientTotal: req.TotalPrice,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, services.OrderLine{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			UnitPrice:     item.Price,
			PaymentMethod: item.PaymentMethod,
		})
	}

	userID, _ := currentUser(c)
	result, err := h.service.PlaceOrder(c.UserContext(), userID, input)
	if err != nil {
		return fail(c, h.logger, "create order", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Order placed successfully",
		"order":   result,
	})
}

// HandleGetMyOrders lists the orders of the authenticated user.
func (h *OrderHandler) HandleGetMyOrders(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	return h.listUserOrders(c, userID)
}

// HandleGetUserOrders lists the orders of a user. Only the user themself or an admin may call it.
func (h *OrderHandler) HandleGetUserOrders(c *fiber.Ctx) error {
	target := c.Params("userId")
	userID, role := currentUser(c)
	if target != userID && role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "You can only view your own orders",
		})
	}
	return h.listUserOrders(c, target)
}

func (h *OrderHandler) listUserOrders(c *fiber.Ctx, userID string) error {
	orders, err := h.service.ListUserOrders(c.UserContext(), userID)
	if err != nil {
		return fail(c, h.logger, "retrieve orders", err)
	}
	return c.JSON(orders)
}

// HandleGetOrders retrieves all orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders(c.UserContext())
	if err != nil {
		return fail(c, h.logger, "retrieve orders", err)
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order with its gift codes.
// Another user's order is reported as not found.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	orderID := c.Params("id")
	order, err := h.service.GetOrder(c.UserContext(), orderID)
	if err != nil {
		return fail(c, h.logger, "retrieve order", err)
	}

	userID, role := currentUser(c)
	if order.UserID != userID && role != models.RoleAdmin {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("Order with ID %s not found", orderID),
		})
	}
	return c.JSON(order)
}

// HandleUpdateOrderStatus updates the status of an existing order.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	orderID := c.Params("id")
	var updateData struct {
		Status string `json:"status" validate:"required"`
	}
	if err := c.BodyParser(&updateData); err != nil {
		return badBody(c, h.logger, err)
	}
	if ok, err := validateBody(c, h.validate, updateData); !ok {
		return err
	}

	if err := h.service.UpdateOrderStatus(c.UserContext(), orderID, updateData.Status); err != nil {
		return fail(c, h.logger, "update order status", err)
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Order %s status updated successfully to %s", orderID, updateData.Status),
	})
}
