package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Tx exposes the repositories bound to one open database transaction.
type Tx interface {
	Orders() OrderRepository
	Codes() GiftCodeRepository
}

// Transactor runs fn inside a transaction. A non-nil error from fn rolls
// everything back and is returned unchanged.
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx Tx) error) error
}

// GORMTransactor is a GORM implementation of Transactor.
type GORMTransactor struct {
	db *gorm.DB
}

// NewGORMTransactor creates a new instance of GORMTransactor.
func NewGORMTransactor(db *gorm.DB) *GORMTransactor {
	return &GORMTransactor{db: db}
}

// Transaction opens a GORM transaction and hands fn repositories scoped to it.
func (t *GORMTransactor) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{
			orders: NewGORMOrderRepository(tx),
			codes:  NewGORMGiftCodeRepository(tx),
		})
	})
}

type gormTx struct {
	orders *GORMOrderRepository
	codes  *GORMGiftCodeRepository
}

func (t *gormTx) Orders() OrderRepository    { return t.orders }
func (t *gormTx) Codes() GiftCodeRepository { return t.codes }
