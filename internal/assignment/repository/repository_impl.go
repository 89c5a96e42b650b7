package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	assignmentdomain "github.com/nordleads/leadflow/internal/assignment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() assignmentdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, assignment *assignmentdomain.LeadAssignment) error {
	return db.WithContext(ctx).Create(assignment).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*assignmentdomain.LeadAssignment, error) {
	var assignment assignmentdomain.LeadAssignment
	err := db.WithContext(ctx).First(&assignment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, assignmentdomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repo) FindActiveByLeadID(ctx context.Context, db *gorm.DB, leadID snowflake.ID) (*assignmentdomain.LeadAssignment, error) {
	var assignment assignmentdomain.LeadAssignment
	err := db.WithContext(ctx).
		Where("lead_id = ? AND status IN ?", leadID, assignmentdomain.ActiveStatuses).
		Order("assigned_at DESC").
		First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, assignmentdomain.ErrNoActiveAssignment
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status assignmentdomain.AssignmentStatus, reason *string, now time.Time) error {
	updates := map[string]any{
		"status":     status,
		"updated_at": now,
	}
	switch status {
	case assignmentdomain.AssignmentStatusAccepted:
		updates["accepted_at"] = now
	case assignmentdomain.AssignmentStatusRejected:
		updates["rejection_reason"] = reason
	}
	result := db.WithContext(ctx).
		Model(&assignmentdomain.LeadAssignment{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return assignmentdomain.ErrNotFound
	}
	return nil
}

func (r *repo) CountByBuyerPackageSince(ctx context.Context, db *gorm.DB, buyerID, packageID snowflake.ID, since time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&assignmentdomain.LeadAssignment{}).
		Where("buyer_id = ? AND package_id = ? AND assigned_at >= ? AND status IN ?",
			buyerID, packageID, since, assignmentdomain.ActiveStatuses).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) SumCostByBuyerSince(ctx context.Context, db *gorm.DB, buyerID snowflake.ID, since time.Time) (int64, error) {
	var total *int64
	err := db.WithContext(ctx).
		Model(&assignmentdomain.LeadAssignment{}).
		Select("SUM(cost)").
		Where("buyer_id = ? AND assigned_at >= ? AND status IN ?",
			buyerID, since, assignmentdomain.ActiveStatuses).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

// LastAssignedByBuyers returns each buyer's most recent assignment instant.
// The anti-join keeps the selected column a plain assigned_at, which every
// dialect scans as a time; an aggregate would come back untyped on sqlite.
func (r *repo) LastAssignedByBuyers(ctx context.Context, db *gorm.DB, buyerIDs []snowflake.ID) ([]assignmentdomain.BuyerLastAssignment, error) {
	if len(buyerIDs) == 0 {
		return nil, nil
	}

	type latestRow struct {
		BuyerID    snowflake.ID
		AssignedAt time.Time
	}
	var rows []latestRow
	err := db.WithContext(ctx).
		Model(&assignmentdomain.LeadAssignment{}).
		Select("buyer_id, assigned_at").
		Where("buyer_id IN ?", buyerIDs).
		Where("NOT EXISTS (SELECT 1 FROM lead_assignments newer WHERE newer.buyer_id = lead_assignments.buyer_id AND newer.assigned_at > lead_assignments.assigned_at)").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	// Equal timestamps for one buyer produce duplicate rows; keep one.
	seen := make(map[snowflake.ID]struct{}, len(rows))
	out := make([]assignmentdomain.BuyerLastAssignment, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.BuyerID]; ok {
			continue
		}
		seen[row.BuyerID] = struct{}{}
		out = append(out, assignmentdomain.BuyerLastAssignment{
			BuyerID:        row.BuyerID,
			LastAssignedAt: row.AssignedAt,
		})
	}
	return out, nil
}
