package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Service moves money against buyer budgets. ReserveAndDebit and Refund run
// inside the caller's transaction so a rolled-back assignment also rolls back
// its budget movement; TopUp manages its own transaction.
type Service interface {
	ReserveAndDebit(ctx context.Context, tx *gorm.DB, buyerID snowflake.ID, leadID *snowflake.ID, amount int64, description string, createdBy *string) (int64, error)
	Refund(ctx context.Context, tx *gorm.DB, buyerID snowflake.ID, leadID *snowflake.ID, amount int64, description string, createdBy *string) (int64, error)
	TopUp(ctx context.Context, buyerID snowflake.ID, amount int64, description string, createdBy *string) (int64, error)
	ListByBuyer(ctx context.Context, buyerID snowflake.ID, limit int) ([]BudgetTransaction, error)
}

var (
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrBuyerNotFound     = errors.New("buyer_not_found")
)
