package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, assignment *LeadAssignment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*LeadAssignment, error)
	// FindActiveByLeadID returns the assignment currently claiming the lead,
	// or ErrNoActiveAssignment.
	FindActiveByLeadID(ctx context.Context, db *gorm.DB, leadID snowflake.ID) (*LeadAssignment, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status AssignmentStatus, reason *string, now time.Time) error
	CountByBuyerPackageSince(ctx context.Context, db *gorm.DB, buyerID, packageID snowflake.ID, since time.Time) (int64, error)
	SumCostByBuyerSince(ctx context.Context, db *gorm.DB, buyerID snowflake.ID, since time.Time) (int64, error)
	LastAssignedByBuyers(ctx context.Context, db *gorm.DB, buyerIDs []snowflake.ID) ([]BuyerLastAssignment, error)
}

var (
	ErrNotFound           = errors.New("assignment_not_found")
	ErrNoActiveAssignment = errors.New("no_active_assignment")
	ErrLeadAlreadyAssigned = errors.New("lead_already_assigned")
	ErrInvalidTransition  = errors.New("invalid_assignment_transition")
)
