package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// BuyerAccount is a company able to purchase leads. Monetary amounts are
// integer øre. CurrentBudget never goes negative through engine operations.
type BuyerAccount struct {
	ID                      snowflake.ID  `gorm:"primaryKey" json:"id"`
	CompanyName             string        `gorm:"column:company_name;not null" json:"company_name"`
	ContactEmail            string        `gorm:"column:contact_email;not null" json:"contact_email"`
	CurrentBudget           int64         `gorm:"column:current_budget;not null;default:0" json:"current_budget"`
	DailyBudget             *int64        `gorm:"column:daily_budget" json:"daily_budget,omitempty"`
	PauseWhenBudgetExceeded bool          `gorm:"column:pause_when_budget_exceeded;not null;default:false" json:"pause_when_budget_exceeded"`
	LeadCostPerUnit         int64         `gorm:"column:lead_cost_per_unit;not null;default:0" json:"lead_cost_per_unit"`
	CreatedAt               time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt               time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (BuyerAccount) TableName() string { return "buyer_accounts" }
