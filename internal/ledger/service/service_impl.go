package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	buyerdomain "github.com/nordleads/leadflow/internal/buyer/domain"
	"github.com/nordleads/leadflow/internal/clock"
	ledgerdomain "github.com/nordleads/leadflow/internal/ledger/domain"
	obsmetrics "github.com/nordleads/leadflow/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	BuyerRepo  buyerdomain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	buyerRepo  buyerdomain.Repository
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		buyerRepo:  p.BuyerRepo,
		obsMetrics: p.ObsMetrics,
	}
}

// ReserveAndDebit atomically subtracts amount from the buyer's budget. The
// conditional update in the buyer repository is the per-buyer serialization
// point: two concurrent reservations cannot both succeed on the last unit of
// budget.
func (s *Service) ReserveAndDebit(ctx context.Context, tx *gorm.DB, buyerID snowflake.ID, leadID *snowflake.ID, amount int64, description string, createdBy *string) (int64, error) {
	if amount <= 0 {
		return 0, ledgerdomain.ErrInvalidAmount
	}

	balanceAfter, err := s.buyerRepo.Debit(ctx, tx, buyerID, amount, s.clock.Now())
	if err != nil {
		return 0, mapBuyerErr(err)
	}

	if err := s.record(ctx, tx, buyerID, leadID, -amount, balanceAfter+amount, balanceAfter, ledgerdomain.TransactionTypeDebit, description, createdBy); err != nil {
		return 0, err
	}

	s.obsMetrics.RecordBudgetMovement(string(ledgerdomain.TransactionTypeDebit))
	return balanceAfter, nil
}

// Refund reverses a previous debit.
func (s *Service) Refund(ctx context.Context, tx *gorm.DB, buyerID snowflake.ID, leadID *snowflake.ID, amount int64, description string, createdBy *string) (int64, error) {
	if amount <= 0 {
		return 0, ledgerdomain.ErrInvalidAmount
	}

	balanceAfter, err := s.buyerRepo.Credit(ctx, tx, buyerID, amount, s.clock.Now())
	if err != nil {
		return 0, mapBuyerErr(err)
	}

	if err := s.record(ctx, tx, buyerID, leadID, amount, balanceAfter-amount, balanceAfter, ledgerdomain.TransactionTypeRefund, description, createdBy); err != nil {
		return 0, err
	}

	s.obsMetrics.RecordBudgetMovement(string(ledgerdomain.TransactionTypeRefund))
	return balanceAfter, nil
}

// TopUp funds a buyer's budget outside any distribution attempt.
func (s *Service) TopUp(ctx context.Context, buyerID snowflake.ID, amount int64, description string, createdBy *string) (int64, error) {
	if amount <= 0 {
		return 0, ledgerdomain.ErrInvalidAmount
	}

	var balanceAfter int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		after, err := s.buyerRepo.Credit(ctx, tx, buyerID, amount, s.clock.Now())
		if err != nil {
			return mapBuyerErr(err)
		}
		balanceAfter = after
		return s.record(ctx, tx, buyerID, nil, amount, after-amount, after, ledgerdomain.TransactionTypeTopUp, description, createdBy)
	})
	if err != nil {
		return 0, err
	}

	s.obsMetrics.RecordBudgetMovement(string(ledgerdomain.TransactionTypeTopUp))
	return balanceAfter, nil
}

func (s *Service) ListByBuyer(ctx context.Context, buyerID snowflake.ID, limit int) ([]ledgerdomain.BudgetTransaction, error) {
	if limit <= 0 || limit > 250 {
		limit = 50
	}
	var transactions []ledgerdomain.BudgetTransaction
	err := s.db.WithContext(ctx).
		Where("company_id = ?", buyerID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (s *Service) record(ctx context.Context, tx *gorm.DB, buyerID snowflake.ID, leadID *snowflake.ID, amount, before, after int64, txType ledgerdomain.TransactionType, description string, createdBy *string) error {
	entry := ledgerdomain.BudgetTransaction{
		ID:              s.genID.Generate(),
		CompanyID:       buyerID,
		LeadID:          leadID,
		Amount:          amount,
		BalanceBefore:   before,
		BalanceAfter:    after,
		TransactionType: txType,
		Description:     description,
		CreatedBy:       createdBy,
		CreatedAt:       s.clock.Now(),
	}
	return tx.WithContext(ctx).Create(&entry).Error
}

func mapBuyerErr(err error) error {
	switch {
	case errors.Is(err, buyerdomain.ErrInsufficientFunds):
		return ledgerdomain.ErrInsufficientFunds
	case errors.Is(err, buyerdomain.ErrNotFound):
		return ledgerdomain.ErrBuyerNotFound
	default:
		return err
	}
}
