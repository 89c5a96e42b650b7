package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// AssignmentStatus tracks the buyer-facing state of an allocation.
type AssignmentStatus string

const (
	AssignmentStatusAssigned AssignmentStatus = "assigned"
	AssignmentStatusAccepted AssignmentStatus = "accepted"
	AssignmentStatusRejected AssignmentStatus = "rejected"
	AssignmentStatusExpired  AssignmentStatus = "expired"
)

// ActiveStatuses are the states in which an assignment still claims its lead.
// At most one assignment per lead may be in one of these states.
var ActiveStatuses = []AssignmentStatus{AssignmentStatusAssigned, AssignmentStatusAccepted}

// LeadAssignment is the allocation record. Cost is copied from the package
// price at assignment time and is immutable thereafter. Rows are never
// deleted, only transitioned through Status.
type LeadAssignment struct {
	ID              snowflake.ID     `gorm:"primaryKey" json:"id"`
	LeadID          snowflake.ID     `gorm:"column:lead_id;not null;index" json:"lead_id"`
	BuyerID         snowflake.ID     `gorm:"column:buyer_id;not null;index" json:"buyer_id"`
	PackageID       *snowflake.ID    `gorm:"column:package_id;index" json:"package_id,omitempty"`
	Cost            int64            `gorm:"not null" json:"cost"`
	Status          AssignmentStatus `gorm:"type:text;not null;default:'assigned';index" json:"status"`
	AssignedAt      time.Time        `gorm:"column:assigned_at;not null;index" json:"assigned_at"`
	AcceptedAt      *time.Time       `gorm:"column:accepted_at" json:"accepted_at,omitempty"`
	RejectionReason *string          `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (LeadAssignment) TableName() string { return "lead_assignments" }

// BuyerLastAssignment is the most recent assignment instant per buyer, used
// by the allocation selector's recency ordering.
type BuyerLastAssignment struct {
	BuyerID        snowflake.ID `json:"buyer_id"`
	LastAssignedAt time.Time    `json:"last_assigned_at"`
}
