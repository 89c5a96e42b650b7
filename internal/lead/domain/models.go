package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// LeadStatus tracks a lead through its sales lifecycle.
type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "new"
	LeadStatusQualified   LeadStatus = "qualified"
	LeadStatusContacted   LeadStatus = "contacted"
	LeadStatusNegotiating LeadStatus = "negotiating"
	LeadStatusConverted   LeadStatus = "converted"
	LeadStatusLost        LeadStatus = "lost"
	LeadStatusPaused      LeadStatus = "paused"
)

// Lead is an inbound service request to be sold to exactly one buyer.
// CompanyID is nil until an assignment has succeeded.
type Lead struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	Category    string            `gorm:"not null;index" json:"category"`
	Status      LeadStatus        `gorm:"type:text;not null;default:'new';index" json:"status"`
	CompanyID   *snowflake.ID     `gorm:"column:company_id;index" json:"company_id,omitempty"`
	Title       string            `gorm:"not null" json:"title"`
	Description string            `gorm:"type:text" json:"description,omitempty"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Lead) TableName() string { return "leads" }

// CategoryCount is a per-category tally of queued leads.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}
