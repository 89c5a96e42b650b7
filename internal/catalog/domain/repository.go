package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertPackage(ctx context.Context, db *gorm.DB, pkg *LeadPackage) error
	InsertSubscription(ctx context.Context, db *gorm.DB, sub *PackageSubscription) error
	FindPackageByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*LeadPackage, error)
	// ListActiveByCategory returns all (subscription, package) pairs that are
	// active for the given category at the given instant.
	ListActiveByCategory(ctx context.Context, db *gorm.DB, category string, at time.Time) ([]SubscribedPackage, error)
	// FindActiveForBuyer returns the buyer's highest-priority active package
	// for the category, or ErrNoActivePackage.
	FindActiveForBuyer(ctx context.Context, db *gorm.DB, buyerID snowflake.ID, category string, at time.Time) (*SubscribedPackage, error)
}

var (
	ErrPackageNotFound = errors.New("package_not_found")
	ErrNoActivePackage = errors.New("no_active_package")
)
