package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	buyerdomain "github.com/nordleads/leadflow/internal/buyer/domain"
	"github.com/nordleads/leadflow/internal/catalog/domain"
	"github.com/nordleads/leadflow/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	BuyerRepo buyerdomain.Repository
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	buyerRepo buyerdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("catalog.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		buyerRepo: p.BuyerRepo,
	}
}

func (s *Service) CreatePackage(ctx context.Context, req domain.CreatePackageRequest) (*domain.LeadPackage, error) {
	name := strings.TrimSpace(req.Name)
	category := strings.TrimSpace(strings.ToLower(req.Category))
	if name == "" || category == "" || req.PricePerLead <= 0 {
		return nil, domain.ErrInvalidPackage
	}
	if req.LeadCapPerDay != nil && *req.LeadCapPerDay <= 0 {
		return nil, domain.ErrInvalidPackage
	}

	now := s.clock.Now()
	pkg := &domain.LeadPackage{
		ID:            s.genID.Generate(),
		Name:          name,
		Category:      category,
		PricePerLead:  req.PricePerLead,
		PriorityLevel: req.PriorityLevel,
		LeadCapPerDay: req.LeadCapPerDay,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.InsertPackage(ctx, s.db, pkg); err != nil {
		return nil, err
	}
	return pkg, nil
}

func (s *Service) GetPackage(ctx context.Context, id snowflake.ID) (*domain.LeadPackage, error) {
	return s.repo.FindPackageByID(ctx, s.db, id)
}

// Subscribe links a buyer to a package. The buyer and package must both
// exist; eligibility later re-checks activation windows on every resolve.
func (s *Service) Subscribe(ctx context.Context, req domain.SubscribeRequest) (*domain.PackageSubscription, error) {
	if _, err := s.buyerRepo.FindByID(ctx, s.db, req.BuyerID); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindPackageByID(ctx, s.db, req.PackageID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	sub := &domain.PackageSubscription{
		ID:        s.genID.Generate(),
		BuyerID:   req.BuyerID,
		PackageID: req.PackageID,
		Status:    domain.SubscriptionStatusActive,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertSubscription(ctx, s.db, sub); err != nil {
		return nil, err
	}
	return sub, nil
}
