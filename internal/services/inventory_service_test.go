package services_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"vouche/internal/repositories"
	"vouche/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryService_BulkInsertCodes(t *testing.T) {
	ctx := context.Background()
	s := newStorefront(t)
	gameCard := s.product(t, "GameCard", "10")

	inserted, err := s.inventory.BulkInsertCodes(ctx, gameCard.ID, []string{" A1 ", "A2", "A3"})
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)
	assert.EqualValues(t, 3, s.available(t, gameCard.ID))

	codes, err := s.inventory.ListCodes(ctx, gameCard.ID)
	require.NoError(t, err)
	require.Len(t, codes, 3)
	assert.Equal(t, "A1", codes[0].Code, "codes are stored trimmed")
}

func TestInventoryService_BulkInsertCodesRejectsWholeBatch(t *testing.T) {
	ctx := context.Background()
	s := newStorefront(t)
	gameCard := s.product(t, "GameCard", "10", "A1", "A2")

	tests := []struct {
		name    string
		product string
		codes   []string
		wantMsg string
	}{
		{name: "empty batch", product: gameCard.ID, codes: nil, wantMsg: "at least one code"},
		{name: "blank entry", product: gameCard.ID, codes: []string{"B1", "   "}, wantMsg: "entry 1 is blank"},
		{name: "too long", product: gameCard.ID, codes: []string{strings.Repeat("x", 256)}, wantMsg: "longer than 255"},
		{name: "repeated in batch", product: gameCard.ID, codes: []string{"B1", "B2", "B1"}, wantMsg: "repeats codes: B1"},
		{name: "already in pool", product: gameCard.ID, codes: []string{"B1", "A2"}, wantMsg: "already has codes: A2"},
		{name: "unknown product", product: "missing", codes: []string{"B1"}, wantMsg: "unknown product"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.inventory.BulkInsertCodes(ctx, tt.product, tt.codes)
			var verr *services.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Message, tt.wantMsg)
		})
	}

	// Nothing from the rejected batches reached the pool
	assert.EqualValues(t, 2, s.available(t, gameCard.ID))
}

func TestInventoryService_AvailableCountUnknownProduct(t *testing.T) {
	s := newStorefront(t)
	n, err := s.inventory.AvailableCount(context.Background(), "missing")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInventoryService_ListCodesUnknownProduct(t *testing.T) {
	s := newStorefront(t)
	_, err := s.inventory.ListCodes(context.Background(), "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestInventoryService_LargeBatch(t *testing.T) {
	ctx := context.Background()
	s := newStorefront(t)
	gameCard := s.product(t, "GameCard", "10")

	codes := make([]string, 1200)
	for i := range codes {
		codes[i] = fmt.Sprintf("GC-%05d", i)
	}
	inserted, err := s.inventory.BulkInsertCodes(ctx, gameCard.ID, codes)
	require.NoError(t, err)
	assert.Equal(t, len(codes), inserted)

	_, err = s.inventory.BulkInsertCodes(ctx, gameCard.ID, []string{"NEW-1", codes[1100]})
	assert.ErrorIs(t, err, services.ErrValidation)
	assert.EqualValues(t, len(codes), s.available(t, gameCard.ID))
}

func TestInventoryService_AvailableCounts(t *testing.T) {
	ctx := context.Background()
	s := newStorefront(t)
	a := s.product(t, "GameCard 50", "50", "A-1", "A-2")
	b := s.product(t, "GameCard 100", "100")

	counts, err := s.inventory.AvailableCounts(ctx, []string{a.ID, " ", b.ID})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{a.ID: 2, b.ID: 0}, counts)

	_, err = s.inventory.AvailableCounts(ctx, []string{""})
	assert.ErrorIs(t, err, services.ErrValidation)
}
