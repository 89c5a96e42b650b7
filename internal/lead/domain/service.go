package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	Category    string         `json:"category"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
}

type UpdateStatusRequest struct {
	LeadID snowflake.ID
	Status LeadStatus
	Actor  *string
}

// Service owns lead intake and lifecycle transitions outside distribution.
// Distribution itself moves leads through assignment; this service covers
// everything else and keeps the audit trail complete.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Lead, error)
	Get(ctx context.Context, id snowflake.ID) (*Lead, error)
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*Lead, error)
}

var (
	ErrInvalidCategory = errors.New("invalid_category")
	ErrInvalidStatus   = errors.New("invalid_lead_status")
)
