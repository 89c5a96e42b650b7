package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	buyerdomain "github.com/nordleads/leadflow/internal/buyer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() buyerdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, buyer *buyerdomain.BuyerAccount) error {
	return db.WithContext(ctx).Create(buyer).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*buyerdomain.BuyerAccount, error) {
	var buyer buyerdomain.BuyerAccount
	err := db.WithContext(ctx).First(&buyer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, buyerdomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &buyer, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]buyerdomain.BuyerAccount, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var buyers []buyerdomain.BuyerAccount
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&buyers).Error; err != nil {
		return nil, err
	}
	return buyers, nil
}

func (r *repo) Debit(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE buyer_accounts
		 SET current_budget = current_budget - ?, updated_at = ?
		 WHERE id = ? AND current_budget >= ?`,
		amount, now, id, amount,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		// Either the buyer is missing or the budget does not cover the amount.
		var count int64
		if err := db.WithContext(ctx).Model(&buyerdomain.BuyerAccount{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return 0, err
		}
		if count == 0 {
			return 0, buyerdomain.ErrNotFound
		}
		return 0, buyerdomain.ErrInsufficientFunds
	}
	return r.balance(ctx, db, id)
}

func (r *repo) Credit(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE buyer_accounts
		 SET current_budget = current_budget + ?, updated_at = ?
		 WHERE id = ?`,
		amount, now, id,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, buyerdomain.ErrNotFound
	}
	return r.balance(ctx, db, id)
}

func (r *repo) balance(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var balance int64
	err := db.WithContext(ctx).
		Model(&buyerdomain.BuyerAccount{}).
		Select("current_budget").
		Where("id = ?", id).
		Scan(&balance).Error
	if err != nil {
		return 0, err
	}
	return balance, nil
}
