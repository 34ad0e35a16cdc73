package repositories

import (
	"context"

	"vouche/internal/models"
)

// OrderRepository defines the interface for the order ledger.
// Orders are append-only: only the status of an existing order can change.
type OrderRepository interface {
	GetAll(ctx context.Context) ([]models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	AddItems(ctx context.Context, items []models.OrderItem) error
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error
}
