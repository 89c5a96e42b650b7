package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, lead *Lead) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Lead, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Lead, error)
	MarkAssigned(ctx context.Context, db *gorm.DB, id, companyID snowflake.ID, status LeadStatus, now time.Time) error
	// MarkUnassigned returns a lead to the distribution pool.
	MarkUnassigned(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
	ListUnassigned(ctx context.Context, db *gorm.DB, limit int) ([]Lead, error)
	CountUnassignedByCategory(ctx context.Context, db *gorm.DB) ([]CategoryCount, error)
	OldestUnassignedCreatedAt(ctx context.Context, db *gorm.DB) (*time.Time, error)
}

var (
	ErrNotFound  = errors.New("lead_not_found")
	ErrInvalidID = errors.New("invalid_lead_id")
)
