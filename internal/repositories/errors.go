package repositories

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrOutOfStock is returned by ClaimOne when the product has no code left in state new.
	ErrOutOfStock = errors.New("no gift code available")
)

// DuplicateCodesError lists codes of an upload that already exist for the product.
type DuplicateCodesError struct {
	ProductID string
	Codes     []string
}

func (e *DuplicateCodesError) Error() string {
	return fmt.Sprintf("product %s already has codes: %s", e.ProductID, strings.Join(e.Codes, ", "))
}

func (e *DuplicateCodesError) Is(target error) bool {
	return target == ErrDuplicate
}
