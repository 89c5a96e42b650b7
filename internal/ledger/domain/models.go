package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// TransactionType classifies a budget movement.
type TransactionType string

const (
	TransactionTypeDebit  TransactionType = "debit"  // lead purchased
	TransactionTypeRefund TransactionType = "refund" // assignment reversed
	TransactionTypeTopUp  TransactionType = "top_up" // budget funded
)

// BudgetTransaction is the immutable record of one budget movement. Rows are
// never updated or deleted; together they reconcile a buyer's balance.
type BudgetTransaction struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	CompanyID       snowflake.ID    `gorm:"column:company_id;not null;index" json:"company_id"`
	LeadID          *snowflake.ID   `gorm:"column:lead_id;index" json:"lead_id,omitempty"`
	Amount          int64           `gorm:"not null" json:"amount"`
	BalanceBefore   int64           `gorm:"column:balance_before;not null" json:"balance_before"`
	BalanceAfter    int64           `gorm:"column:balance_after;not null" json:"balance_after"`
	TransactionType TransactionType `gorm:"column:transaction_type;type:text;not null;index" json:"transaction_type"`
	Description     string          `gorm:"type:text" json:"description,omitempty"`
	CreatedBy       *string         `gorm:"column:created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// TableName sets the database table name.
func (BudgetTransaction) TableName() string { return "company_budget_transactions" }
