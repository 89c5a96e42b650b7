package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/nordleads/leadflow/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() catalogdomain.Repository {
	return &repo{}
}

func (r *repo) InsertPackage(ctx context.Context, db *gorm.DB, pkg *catalogdomain.LeadPackage) error {
	return db.WithContext(ctx).Create(pkg).Error
}

func (r *repo) InsertSubscription(ctx context.Context, db *gorm.DB, sub *catalogdomain.PackageSubscription) error {
	return db.WithContext(ctx).Create(sub).Error
}

func (r *repo) FindPackageByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*catalogdomain.LeadPackage, error) {
	var pkg catalogdomain.LeadPackage
	err := db.WithContext(ctx).First(&pkg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, catalogdomain.ErrPackageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *repo) ListActiveByCategory(ctx context.Context, db *gorm.DB, category string, at time.Time) ([]catalogdomain.SubscribedPackage, error) {
	var rows []catalogdomain.SubscribedPackage
	err := activeJoin(db.WithContext(ctx), at).
		Where("lead_packages.category = ?", category).
		Order("lead_packages.priority_level DESC, buyer_package_subscriptions.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) FindActiveForBuyer(ctx context.Context, db *gorm.DB, buyerID snowflake.ID, category string, at time.Time) (*catalogdomain.SubscribedPackage, error) {
	var rows []catalogdomain.SubscribedPackage
	err := activeJoin(db.WithContext(ctx), at).
		Where("lead_packages.category = ? AND buyer_package_subscriptions.buyer_id = ?", category, buyerID).
		Order("lead_packages.priority_level DESC, buyer_package_subscriptions.id ASC").
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, catalogdomain.ErrNoActivePackage
	}
	return &rows[0], nil
}

func activeJoin(db *gorm.DB, at time.Time) *gorm.DB {
	return db.
		Table("buyer_package_subscriptions").
		Select(`buyer_package_subscriptions.id AS subscription_id,
			buyer_package_subscriptions.buyer_id AS buyer_id,
			lead_packages.id AS package_id,
			lead_packages.name AS package_name,
			lead_packages.category AS category,
			lead_packages.price_per_lead AS price_per_lead,
			lead_packages.priority_level AS priority_level,
			lead_packages.lead_cap_per_day AS lead_cap_per_day`).
		Joins("JOIN lead_packages ON lead_packages.id = buyer_package_subscriptions.package_id").
		Where("buyer_package_subscriptions.status = ?", catalogdomain.SubscriptionStatusActive).
		Where("lead_packages.is_active = ?", true).
		Where("(buyer_package_subscriptions.start_date IS NULL OR buyer_package_subscriptions.start_date <= ?)", at).
		Where("(buyer_package_subscriptions.end_date IS NULL OR buyer_package_subscriptions.end_date > ?)", at)
}
