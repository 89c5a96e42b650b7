package domain

import "time"

// LeadSettings is a singleton row of global distribution switches.
// AutoDistribute gates the on-ingest distribution attempt; GloballyPaused
// stops every automatic path including the sweep. Manual assignment ignores
// both.
type LeadSettings struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	AutoDistribute bool      `gorm:"column:auto_distribute;not null" json:"auto_distribute"`
	GloballyPaused bool      `gorm:"column:globally_paused;not null" json:"globally_paused"`
	UpdatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (LeadSettings) TableName() string { return "lead_settings" }

// SingletonID is the fixed primary key of the one settings row.
const SingletonID int64 = 1

// Defaults applied when the singleton row has not been seeded yet.
func Defaults() LeadSettings {
	return LeadSettings{
		ID:             SingletonID,
		AutoDistribute: true,
		GloballyPaused: false,
	}
}
