package repository

import (
	"context"

	"github.com/nordleads/leadflow/internal/history/domain"
	"gorm.io/gorm"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, db *gorm.DB, entry *domain.Entry) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByLead(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Entry, error) {
	query := db.WithContext(ctx).
		Model(&domain.Entry{}).
		Where("lead_id = ?", filter.LeadID).
		Order("created_at DESC, id DESC")

	if filter.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", filter.Cursor.CreatedAt, filter.Cursor.ID)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var entries []*domain.Entry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}
