package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	CompanyName             string `json:"company_name"`
	ContactEmail            string `json:"contact_email"`
	CurrentBudget           int64  `json:"current_budget"`
	DailyBudget             *int64 `json:"daily_budget"`
	PauseWhenBudgetExceeded bool   `json:"pause_when_budget_exceeded"`
	LeadCostPerUnit         int64  `json:"lead_cost_per_unit"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*BuyerAccount, error)
	Get(ctx context.Context, id snowflake.ID) (*BuyerAccount, error)
}
