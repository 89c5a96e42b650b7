package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	leaddomain "github.com/nordleads/leadflow/internal/lead/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() leaddomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, lead *leaddomain.Lead) error {
	return db.WithContext(ctx).Create(lead).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*leaddomain.Lead, error) {
	var lead leaddomain.Lead
	err := db.WithContext(ctx).First(&lead, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, leaddomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*leaddomain.Lead, error) {
	var lead leaddomain.Lead
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&lead, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, leaddomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *repo) MarkAssigned(ctx context.Context, db *gorm.DB, id, companyID snowflake.ID, status leaddomain.LeadStatus, now time.Time) error {
	result := db.WithContext(ctx).
		Model(&leaddomain.Lead{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"company_id": companyID,
			"status":     status,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return leaddomain.ErrNotFound
	}
	return nil
}

func (r *repo) MarkUnassigned(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	result := db.WithContext(ctx).
		Model(&leaddomain.Lead{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"company_id": nil,
			"status":     leaddomain.LeadStatusNew,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return leaddomain.ErrNotFound
	}
	return nil
}

func (r *repo) ListUnassigned(ctx context.Context, db *gorm.DB, limit int) ([]leaddomain.Lead, error) {
	var leads []leaddomain.Lead
	query := db.WithContext(ctx).
		Where("company_id IS NULL AND status = ?", leaddomain.LeadStatusNew).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&leads).Error; err != nil {
		return nil, err
	}
	return leads, nil
}

func (r *repo) CountUnassignedByCategory(ctx context.Context, db *gorm.DB) ([]leaddomain.CategoryCount, error) {
	var counts []leaddomain.CategoryCount
	err := db.WithContext(ctx).
		Model(&leaddomain.Lead{}).
		Select("category, COUNT(*) AS count").
		Where("company_id IS NULL AND status = ?", leaddomain.LeadStatusNew).
		Group("category").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *repo) OldestUnassignedCreatedAt(ctx context.Context, db *gorm.DB) (*time.Time, error) {
	var lead leaddomain.Lead
	err := db.WithContext(ctx).
		Where("company_id IS NULL AND status = ?", leaddomain.LeadStatusNew).
		Order("created_at ASC").
		First(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	createdAt := lead.CreatedAt
	return &createdAt, nil
}
