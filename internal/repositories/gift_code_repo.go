package repositories

import (
	"context"

	"vouche/internal/models"
)

// GiftCodeRepository is the code pool of every product.
//
// ClaimOne hides the locking strategy: callers only learn whether a code was
// taken for them or the pool is exhausted.
type GiftCodeRepository interface {
	ClaimOne(ctx context.Context, productID, orderID string) (*models.GiftCode, error)
	BulkInsert(ctx context.Context, productID string, codes []string) (int, error)
	CountAvailable(ctx context.Context, productID string) (int64, error)
	CountAvailableByProduct(ctx context.Context, productIDs []string) (map[string]int64, error)
	ListByOrder(ctx context.Context, orderID string) ([]models.GiftCode, error)
	ListByProduct(ctx context.Context, productID string) ([]models.GiftCode, error)
}
