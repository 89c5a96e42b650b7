package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/nordleads/leadflow/internal/buyer/domain"
	"github.com/nordleads/leadflow/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("buyer.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.BuyerAccount, error) {
	if strings.TrimSpace(req.CompanyName) == "" {
		return nil, domain.ErrInvalidRequest
	}
	if req.CurrentBudget < 0 || req.LeadCostPerUnit < 0 {
		return nil, domain.ErrInvalidRequest
	}

	now := s.clock.Now()
	buyer := &domain.BuyerAccount{
		ID:                      s.genID.Generate(),
		CompanyName:             strings.TrimSpace(req.CompanyName),
		ContactEmail:            strings.TrimSpace(req.ContactEmail),
		CurrentBudget:           req.CurrentBudget,
		DailyBudget:             req.DailyBudget,
		PauseWhenBudgetExceeded: req.PauseWhenBudgetExceeded,
		LeadCostPerUnit:         req.LeadCostPerUnit,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if err := s.repo.Insert(ctx, s.db, buyer); err != nil {
		return nil, err
	}
	return buyer, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.BuyerAccount, error) {
	return s.repo.FindByID(ctx, s.db, id)
}
