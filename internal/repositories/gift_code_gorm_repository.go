package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vouche/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const bulkInsertBatchSize = 500

// GORMGiftCodeRepository is a GORM implementation of GiftCodeRepository.
//
// A claim picks the lowest-id new code of the product and flips it with a
// conditional UPDATE ... WHERE id = ? AND status = 'new'. On PostgreSQL the
// pick skips rows already locked by other claimers. A claimer that loses its
// row sees zero rows affected and picks again; every lost round means another
// transaction committed that row, so the loop ends once the pool is empty.
type GORMGiftCodeRepository struct {
	db *gorm.DB
}

// NewGORMGiftCodeRepository creates a new instance of GORMGiftCodeRepository.
func NewGORMGiftCodeRepository(db *gorm.DB) *GORMGiftCodeRepository {
	return &GORMGiftCodeRepository{db: db}
}

// ClaimOne moves one new code of productID to active and binds it to orderID.
// It returns ErrOutOfStock only when the product has no new code left.
func (r *GORMGiftCodeRepository) ClaimOne(ctx context.Context, productID, orderID string) (*models.GiftCode, error) {
	db := r.db.WithContext(ctx)
	for {
		candidate, err := r.pick(db, productID)
		if err != nil {
			return nil, err
		}
		if candidate == nil {
			return nil, fmt.Errorf("product %s: %w", productID, ErrOutOfStock)
		}

		now := time.Now().UTC()
		res := db.Model(&models.GiftCode{}).
			Where("id = ? AND status = ?", candidate.ID, models.GiftCodeStatusNew).
			Updates(map[string]interface{}{
				"status":      models.GiftCodeStatusActive,
				"order_id":    orderID,
				"redeemed_at": now,
			})
		if res.Error != nil {
			return nil, fmt.Errorf("failed to claim gift code %d: %w", candidate.ID, res.Error)
		}
		if res.RowsAffected == 1 {
			candidate.Status = models.GiftCodeStatusActive
			candidate.OrderID = &orderID
			candidate.RedeemedAt = &now
			return candidate, nil
		}
	}
}

// pick returns the lowest-id new code of productID, or nil when there is none.
//
// On PostgreSQL it first locks an unclaimed row with FOR UPDATE SKIP LOCKED.
// When every remaining row is locked by other transactions it falls back to a
// plain read, so the conditional update waits for those transactions instead of
// reporting the product as sold out while their claims may still roll back.
func (r *GORMGiftCodeRepository) pick(db *gorm.DB, productID string) (*models.GiftCode, error) {
	if db.Dialector.Name() == "postgres" {
		candidate, err := r.first(db.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}), productID)
		if candidate != nil || err != nil {
			return candidate, err
		}
	}
	return r.first(db, productID)
}

func (r *GORMGiftCodeRepository) first(db *gorm.DB, productID string) (*models.GiftCode, error) {
	var candidate models.GiftCode
	err := db.Where("product_id = ? AND status = ?", productID, models.GiftCodeStatusNew).
		Order("id").
		Take(&candidate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select gift code for product %s: %w", productID, err)
	}
	return &candidate, nil
}

// BulkInsert loads codes into the pool of productID as new.
// The whole batch is rejected if any code is already present for the product.
func (r *GORMGiftCodeRepository) BulkInsert(ctx context.Context, productID string, codes []string) (int, error) {
	rows := make([]models.GiftCode, 0, len(codes))
	for _, code := range codes {
		rows = append(rows, models.GiftCode{
			ProductID: productID,
			Code:      code,
			Status:    models.GiftCodeStatusNew,
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []string
		for start := 0; start < len(codes); start += bulkInsertBatchSize {
			end := min(start+bulkInsertBatchSize, len(codes))
			var found []string
			if err := tx.Model(&models.GiftCode{}).
				Where("product_id = ? AND code IN ?", productID, codes[start:end]).
				Pluck("code", &found).Error; err != nil {
				return fmt.Errorf("failed to look up existing codes: %w", err)
			}
			existing = append(existing, found...)
		}
		if len(existing) > 0 {
			return &DuplicateCodesError{ProductID: productID, Codes: existing}
		}
		return tx.CreateInBatches(&rows, bulkInsertBatchSize).Error
	})
	if err != nil {
		var dup *DuplicateCodesError
		if errors.As(err, &dup) {
			return 0, err
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, fmt.Errorf("gift codes for product %s: %w", productID, ErrDuplicate)
		}
		return 0, fmt.Errorf("failed to insert gift codes for product %s: %w", productID, err)
	}
	return len(rows), nil
}

// CountAvailable returns the number of new codes of productID.
func (r *GORMGiftCodeRepository) CountAvailable(ctx context.Context, productID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.GiftCode{}).
		Where("product_id = ? AND status = ?", productID, models.GiftCodeStatusNew).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count gift codes for product %s: %w", productID, err)
	}
	return count, nil
}

// CountAvailableByProduct returns the number of new codes per product.
// Products without any new code are present with a zero count.
func (r *GORMGiftCodeRepository) CountAvailableByProduct(ctx context.Context, productIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(productIDs))
	if len(productIDs) == 0 {
		return counts, nil
	}
	for _, id := range productIDs {
		counts[id] = 0
	}

	var rows []struct {
		ProductID string
		Available int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.GiftCode{}).
		Select("product_id, COUNT(*) AS available").
		Where("product_id IN ? AND status = ?", productIDs, models.GiftCodeStatusNew).
		Group("product_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count gift codes: %w", err)
	}
	for _, row := range rows {
		counts[row.ProductID] = row.Available
	}
	return counts, nil
}

// ListByOrder returns the codes bound to orderID in claim order.
func (r *GORMGiftCodeRepository) ListByOrder(ctx context.Context, orderID string) ([]models.GiftCode, error) {
	var codes []models.GiftCode
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("redeemed_at, id").Find(&codes).Error; err != nil {
		return nil, fmt.Errorf("failed to list gift codes of order %s: %w", orderID, err)
	}
	return codes, nil
}

// ListByProduct returns every code of productID, sold or not.
func (r *GORMGiftCodeRepository) ListByProduct(ctx context.Context, productID string) ([]models.GiftCode, error) {
	var codes []models.GiftCode
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("id").Find(&codes).Error; err != nil {
		return nil, fmt.Errorf("failed to list gift codes of product %s: %w", productID, err)
	}
	return codes, nil
}
