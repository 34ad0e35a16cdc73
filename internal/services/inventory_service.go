package services

import (
	"context"
	"errors"
	"strings"

	"vouche/internal/models"
	"vouche/internal/repositories"
)

// maxCodeLength matches the gift_codes.code column.
const maxCodeLength = 255

// InventoryService owns the gift-code pools: derived stock and administrative loads.
type InventoryService struct {
	codeRepo    repositories.GiftCodeRepository
	productRepo repositories.ProductRepository
}

// NewInventoryService creates a new InventoryService.
func NewInventoryService(codeRepo repositories.GiftCodeRepository, productRepo repositories.ProductRepository) *InventoryService {
	return &InventoryService{
		codeRepo:    codeRepo,
		productRepo: productRepo,
	}
}

// AvailableCount returns the number of unsold codes of a product.
// It always reads the store; unknown products simply have none.
func (s *InventoryService) AvailableCount(ctx context.Context, productID string) (int64, error) {
	count, err := s.codeRepo.CountAvailable(ctx, productID)
	if err != nil {
		return 0, storageErr("count available codes", err)
	}
	return count, nil
}

// AvailableCounts returns the number of unsold codes of several products at once.
// Every requested id is present in the result.
func (s *InventoryService) AvailableCounts(ctx context.Context, productIDs []string) (map[string]int64, error) {
	ids := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, validationErr("ids", "at least one product id is required")
	}
	counts, err := s.codeRepo.CountAvailableByProduct(ctx, ids)
	if err != nil {
		return nil, storageErr("count available codes", err)
	}
	return counts, nil
}

// BulkInsertCodes loads new codes into a product's pool and returns how many were added.
//
// Surrounding whitespace is trimmed. The batch is rejected as a whole when it is
// empty, holds a blank entry, repeats a code, or contains a code the product
// already has.
func (s *InventoryService) BulkInsertCodes(ctx context.Context, productID string, codes []string) (int, error) {
	if len(codes) == 0 {
		return 0, validationErr("codes", "at least one code is required")
	}

	cleaned := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	var repeated []string
	for i, raw := range codes {
		code := strings.TrimSpace(raw)
		if code == "" {
			return 0, validationErr("codes", "entry %d is blank", i)
		}
		if len(code) > maxCodeLength {
			return 0, validationErr("codes", "entry %d is longer than %d characters", i, maxCodeLength)
		}
		if _, ok := seen[code]; ok {
			repeated = append(repeated, code)
			continue
		}
		seen[code] = struct{}{}
		cleaned = append(cleaned, code)
	}
	if len(repeated) > 0 {
		return 0, validationErr("codes", "batch repeats codes: %s", strings.Join(repeated, ", "))
	}

	if _, err := s.productRepo.GetByID(ctx, productID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return 0, validationErr("product_id", "unknown product %s", productID)
		}
		return 0, storageErr("load product", err)
	}

	inserted, err := s.codeRepo.BulkInsert(ctx, productID, cleaned)
	if err != nil {
		var dup *repositories.DuplicateCodesError
		if errors.As(err, &dup) {
			return 0, validationErr("codes", "product already has codes: %s", strings.Join(dup.Codes, ", "))
		}
		if errors.Is(err, repositories.ErrDuplicate) {
			return 0, validationErr("codes", "batch overlaps codes uploaded concurrently")
		}
		return 0, storageErr("insert codes", err)
	}
	return inserted, nil
}

// ListCodes returns every code of a product for administrators.
func (s *InventoryService) ListCodes(ctx context.Context, productID string) ([]models.GiftCode, error) {
	if _, err := s.productRepo.GetByID(ctx, productID); err != nil {
		return nil, lookupErr("load product", err)
	}
	codes, err := s.codeRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, storageErr("list codes", err)
	}
	return codes, nil
}
