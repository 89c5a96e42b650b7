package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// AppendRequest describes one transition to record.
type AppendRequest struct {
	LeadID         snowflake.ID
	AssignedTo     *snowflake.ID
	Method         Method
	PreviousStatus string
	NewStatus      string
	CreatedBy      *string
	Metadata       map[string]any
}

type ListRequest struct {
	LeadID    snowflake.ID
	PageToken string
	PageSize  int32
}

type ListResponse struct {
	Entries       []Entry `json:"entries"`
	NextPageToken string  `json:"next_page_token,omitempty"`
	HasMore       bool    `json:"has_more"`
}

// Service appends and reads the audit trail. Append failures must never fail
// the operation that triggered them; callers log and continue.
type Service interface {
	Append(ctx context.Context, req AppendRequest) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *Entry) error
	ListByLead(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Entry, error)
}

type ListFilter struct {
	LeadID snowflake.ID
	Cursor *Cursor
	Limit  int
}

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

var (
	ErrInvalidLead      = errors.New("invalid_lead")
	ErrInvalidMethod    = errors.New("invalid_method")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)
