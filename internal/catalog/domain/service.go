package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CreatePackageRequest struct {
	Name          string `json:"name"`
	Category      string `json:"category"`
	PricePerLead  int64  `json:"price_per_lead"`
	PriorityLevel int    `json:"priority_level"`
	LeadCapPerDay *int   `json:"lead_cap_per_day"`
}

type SubscribeRequest struct {
	BuyerID   snowflake.ID
	PackageID snowflake.ID
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

type Service interface {
	CreatePackage(ctx context.Context, req CreatePackageRequest) (*LeadPackage, error)
	GetPackage(ctx context.Context, id snowflake.ID) (*LeadPackage, error)
	Subscribe(ctx context.Context, req SubscribeRequest) (*PackageSubscription, error)
}

var ErrInvalidPackage = errors.New("invalid_package")
