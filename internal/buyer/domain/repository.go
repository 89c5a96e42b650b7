package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, buyer *BuyerAccount) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*BuyerAccount, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]BuyerAccount, error)
	// Debit subtracts amount from the buyer's budget only if the full amount is
	// covered, returning the resulting balance. The conditional update is the
	// per-buyer serialization point for concurrent reservations.
	Debit(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, now time.Time) (int64, error)
	// Credit adds amount back to the buyer's budget and returns the resulting
	// balance.
	Credit(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, now time.Time) (int64, error)
}

var (
	ErrNotFound          = errors.New("buyer_not_found")
	ErrInvalidID         = errors.New("invalid_buyer_id")
	ErrInvalidRequest    = errors.New("invalid_buyer_request")
	ErrInsufficientFunds = errors.New("insufficient_funds")
)
