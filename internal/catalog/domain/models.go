package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// LeadPackage is a purchasable bundle scoping which lead category a buyer can
// receive and at what price. Price and category are immutable once an active
// subscription references the package; only IsActive may be toggled.
type LeadPackage struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Name          string       `gorm:"not null" json:"name"`
	Category      string       `gorm:"not null;index" json:"category"`
	PricePerLead  int64        `gorm:"column:price_per_lead;not null" json:"price_per_lead"`
	PriorityLevel int          `gorm:"column:priority_level;not null;default:0" json:"priority_level"`
	LeadCapPerDay *int         `gorm:"column:lead_cap_per_day" json:"lead_cap_per_day,omitempty"`
	IsActive      bool         `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (LeadPackage) TableName() string { return "lead_packages" }

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// PackageSubscription links a buyer to a lead package. Only active
// subscriptions make a buyer eligible.
type PackageSubscription struct {
	ID        snowflake.ID       `gorm:"primaryKey" json:"id"`
	BuyerID   snowflake.ID       `gorm:"column:buyer_id;not null;index" json:"buyer_id"`
	PackageID snowflake.ID       `gorm:"column:package_id;not null;index" json:"package_id"`
	Status    SubscriptionStatus `gorm:"type:text;not null;default:'active';index" json:"status"`
	StartDate *time.Time         `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate   *time.Time         `gorm:"column:end_date" json:"end_date,omitempty"`
	CreatedAt time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (PackageSubscription) TableName() string { return "buyer_package_subscriptions" }

// SubscribedPackage is the subscription × package join row the eligibility
// resolver works from.
type SubscribedPackage struct {
	SubscriptionID snowflake.ID `json:"subscription_id"`
	BuyerID        snowflake.ID `json:"buyer_id"`
	PackageID      snowflake.ID `json:"package_id"`
	PackageName    string       `json:"package_name"`
	Category       string       `json:"category"`
	PricePerLead   int64        `json:"price_per_lead"`
	PriorityLevel  int          `json:"priority_level"`
	LeadCapPerDay  *int         `json:"lead_cap_per_day,omitempty"`
}
