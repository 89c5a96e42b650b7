package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Method records how a lead transition came about.
type Method string

const (
	MethodAuto         Method = "auto"
	MethodManual       Method = "manual"
	MethodStatusUpdate Method = "status_update"
)

// Entry is one append-only audit row. Entries are never updated or deleted;
// they are the system of record for what happened to a lead and why.
type Entry struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	LeadID         snowflake.ID      `gorm:"column:lead_id;not null;index" json:"lead_id"`
	AssignedTo     *snowflake.ID     `gorm:"column:assigned_to" json:"assigned_to,omitempty"`
	Method         Method            `gorm:"type:text;not null" json:"method"`
	PreviousStatus string            `gorm:"column:previous_status" json:"previous_status,omitempty"`
	NewStatus      string            `gorm:"column:new_status" json:"new_status,omitempty"`
	CreatedBy      *string           `gorm:"column:created_by" json:"created_by,omitempty"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "lead_history" }
