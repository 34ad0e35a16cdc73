package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"vouche/internal/events"
	"vouche/internal/models"
	"vouche/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment method tags accepted on a cart line.
const (
	PaymentCreditCard   = "credit_card"
	PaymentBankTransfer = "bank_transfer"
	PaymentPromptPay    = "promptpay"
)

var paymentMethods = map[string]bool{
	PaymentCreditCard:   true,
	PaymentBankTransfer: true,
	PaymentPromptPay:    true,
}

type allocationState string

const (
	statePending   allocationState = "pending"
	stateReserving allocationState = "reserving"
	stateCommitted allocationState = "committed"
	stateAborted   allocationState = "aborted"
)

// EventPublisher publishes an encoded event under a routing key.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// OrderLine is one cart line submitted by a customer.
type OrderLine struct {
	ProductID     string
	Quantity      int
	UnitPrice     *decimal.Decimal // Price the client displayed; compared, never persisted
	PaymentMethod string
}

// PlaceOrderInput is a cart submitted for fulfilment.
type PlaceOrderInput struct {
	Items       []OrderLine
	ClientTotal *decimal.Decimal // Total the client displayed; compared, never persisted
}

// ClaimedCode is a gift code allocated to an order.
type ClaimedCode struct {
	ProductID string `json:"product_id"`
	Code      string `json:"code"`
}

// OrderResult is returned by a successful PlaceOrder.
type OrderResult struct {
	OrderID       string             `json:"order_id"`
	Status        models.OrderStatus `json:"status"`
	TotalPrice    decimal.Decimal    `json:"total_price"`
	Codes         []ClaimedCode      `json:"codes"`
	PriceMismatch bool               `json:"price_mismatch"`
}

// pricedLine is a validated cart line carrying the catalog price.
type pricedLine struct {
	ProductID     string
	Quantity      int
	Price         decimal.Decimal
	PaymentMethod string
}

// OrderService handles business logic related to orders.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	transactor  repositories.Transactor
	publisher   EventPublisher
	logger      *slog.Logger
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(orderRepo repositories.OrderRepository, productRepo repositories.ProductRepository, transactor repositories.Transactor, publisher EventPublisher, logger *slog.Logger) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		transactor:  transactor,
		publisher:   publisher,
		logger:      logger,
	}
}

// PlaceOrder turns a cart into a completed order and allocates one gift code per unit.
//
// The order row, its items and every code transition are written in a single
// transaction: on any failure nothing is persisted. Once started the allocation
// is not cancelled by ctx.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, input PlaceOrderInput) (*OrderResult, error) {
	ctx = context.WithoutCancel(ctx)
	log := s.logger.With("user_id", userID)
	log.Debug("allocation started", "state", statePending, "lines", len(input.Items))

	lines, total, mismatch, err := s.priceLines(ctx, userID, input)
	if err != nil {
		log.Info("order rejected", "state", stateAborted, "error", err)
		return nil, err
	}

	order := &models.Order{
		ID:         uuid.New().String(),
		UserID:     userID,
		TotalPrice: total,
		Status:     models.OrderStatusCompleted,
	}
	var claimed []ClaimedCode

	err = s.transactor.Transaction(ctx, func(tx repositories.Tx) error {
		claimed = claimed[:0]
		log.Debug("reserving gift codes", "state", stateReserving, "order_id", order.ID)

		if err := tx.Orders().Create(ctx, order); err != nil {
			return storageErr("insert order", err)
		}

		// Claim in product-id order so two carts naming the same products in
		// opposite order lock their rows in the same sequence.
		perLine := make([][]ClaimedCode, len(lines))
		requested := make(map[string]int)
		for _, line := range lines {
			requested[line.ProductID] += line.Quantity
		}
		granted := make(map[string]int)
		for _, i := range claimOrder(lines) {
			line := lines[i]
			for unit := 0; unit < line.Quantity; unit++ {
				code, err := tx.Codes().ClaimOne(ctx, line.ProductID, order.ID)
				if errors.Is(err, repositories.ErrOutOfStock) {
					return &InsufficientStockError{
						ProductID: line.ProductID,
						Requested: requested[line.ProductID],
						Available: granted[line.ProductID],
					}
				}
				if err != nil {
					return storageErr("claim gift code", err)
				}
				granted[line.ProductID]++
				perLine[i] = append(perLine[i], ClaimedCode{ProductID: code.ProductID, Code: code.Code})
			}
		}
		for _, codes := range perLine {
			claimed = append(claimed, codes...)
		}

		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			items = append(items, models.OrderItem{
				OrderID:       order.ID,
				ProductID:     line.ProductID,
				Quantity:      line.Quantity,
				Price:         line.Price,
				PaymentMethod: line.PaymentMethod,
			})
		}
		if err := tx.Orders().AddItems(ctx, items); err != nil {
			return storageErr("insert order items", err)
		}
		return nil
	})
	if err != nil {
		log.Warn("order rolled back", "state", stateAborted, "order_id", order.ID, "error", err)
		if errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrStorage) {
			return nil, err
		}
		return nil, storageErr("commit order", err)
	}

	log.Info("order committed", "state", stateCommitted, "order_id", order.ID, "codes", len(claimed), "total_price", total.StringFixed(2))
	s.publishCompleted(order, lines, len(claimed))

	return &OrderResult{
		OrderID:       order.ID,
		Status:        order.Status,
		TotalPrice:    total,
		Codes:         claimed,
		PriceMismatch: mismatch,
	}, nil
}

// claimOrder returns the indexes of lines sorted by product id, keeping cart
// order between lines of the same product.
func claimOrder(lines []pricedLine) []int {
	order := make([]int, len(lines))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return lines[order[a]].ProductID < lines[order[b]].ProductID
	})
	return order
}

// priceLines validates the cart and prices it from the catalog.
func (s *OrderService) priceLines(ctx context.Context, userID string, input PlaceOrderInput) ([]pricedLine, decimal.Decimal, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, decimal.Zero, false, validationErr("user_id", "is required")
	}
	if len(input.Items) == 0 {
		return nil, decimal.Zero, false, validationErr("items", "at least one item is required")
	}

	catalog := make(map[string]*models.Product)
	lines := make([]pricedLine, 0, len(input.Items))
	total := decimal.Zero
	mismatch := false

	for i, item := range input.Items {
		field := fmt.Sprintf("items[%d]", i)
		productID := strings.TrimSpace(item.ProductID)
		if productID == "" {
			return nil, decimal.Zero, false, validationErr(field+".product_id", "is required")
		}
		if item.Quantity <= 0 {
			return nil, decimal.Zero, false, validationErr(field+".quantity", "must be greater than 0, got %d", item.Quantity)
		}
		method := item.PaymentMethod
		if method == "" {
			method = PaymentCreditCard
		}
		if !paymentMethods[method] {
			return nil, decimal.Zero, false, validationErr(field+".payment_method", "unsupported payment method %q", method)
		}

		product, ok := catalog[productID]
		if !ok {
			p, err := s.productRepo.GetByID(ctx, productID)
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, decimal.Zero, false, validationErr(field+".product_id", "unknown product %s", productID)
			}
			if err != nil {
				return nil, decimal.Zero, false, storageErr("load product", err)
			}
			catalog[productID] = p
			product = p
		}

		if item.UnitPrice != nil && !item.UnitPrice.Equal(product.Price) {
			mismatch = true
			s.logger.Warn("client unit price differs from catalog",
				"product_id", productID,
				"client_price", item.UnitPrice.String(),
				"catalog_price", product.Price.String(),
			)
		}

		lines = append(lines, pricedLine{
			ProductID:     productID,
			Quantity:      item.Quantity,
			Price:         product.Price,
			PaymentMethod: method,
		})
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	if input.ClientTotal != nil && !input.ClientTotal.Equal(total) {
		mismatch = true
		s.logger.Warn("client total differs from computed total",
			"client_total", input.ClientTotal.String(),
			"computed_total", total.String(),
		)
	}
	return lines, total, mismatch, nil
}

// publishCompleted announces a committed order. Failures are logged only:
// the order already exists and must not be undone.
func (s *OrderService) publishCompleted(order *models.Order, lines []pricedLine, codeCount int) {
	if s.publisher == nil {
		s.logger.Debug("no event publisher configured, skipping order event", "order_id", order.ID)
		return
	}

	items := make([]events.OrderCompletedItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, events.OrderCompletedItem{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	body, err := events.OrderCompleted{
		EventID:    uuid.New().String(),
		OrderID:    order.ID,
		UserID:     order.UserID,
		TotalPrice: order.TotalPrice.StringFixed(2),
		Items:      items,
		CodeCount:  codeCount,
		OccurredAt: time.Now().UTC(),
	}.Encode()
	if err != nil {
		s.logger.Error("failed to encode order event", "order_id", order.ID, "error", err)
		return
	}
	if err := s.publisher.Publish(events.RoutingKeyOrderCompleted, body); err != nil {
		s.logger.Warn("failed to publish order event", "order_id", order.ID, "error", err)
		return
	}
	s.logger.Debug("published order event", "order_id", order.ID)
}

// GetOrder retrieves a single order with its items and gift codes.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr("get order", err)
	}
	return order, nil
}

// ListUserOrders retrieves the orders of a user, newest first.
func (s *OrderService) ListUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageErr("list user orders", err)
	}
	return orders, nil
}

// ListOrders retrieves every order.
func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := s.orderRepo.GetAll(ctx)
	if err != nil {
		return nil, storageErr("list orders", err)
	}
	return orders, nil
}

// UpdateOrderStatus changes the status of an existing order.
// Cancelling an order never returns its codes to the pool.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id string, status string) error {
	next := models.OrderStatus(status)
	if next != models.OrderStatusCompleted && next != models.OrderStatusCancelled {
		return validationErr("status", "invalid order status: %s", status)
	}
	if err := s.orderRepo.UpdateStatus(ctx, id, next); err != nil {
		return lookupErr("update order status", err)
	}
	return nil
}

// lookupErr keeps not-found errors as they are and marks everything else as a storage failure.
func lookupErr(op string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return err
	}
	return storageErr(op, err)
}
