package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	assignmentdomain "github.com/nordleads/leadflow/internal/assignment/domain"
	buyerdomain "github.com/nordleads/leadflow/internal/buyer/domain"
	catalogdomain "github.com/nordleads/leadflow/internal/catalog/domain"
	"github.com/nordleads/leadflow/internal/clock"
	"github.com/nordleads/leadflow/internal/eligibility/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	Clock          clock.Clock
	CatalogRepo    catalogdomain.Repository
	BuyerRepo      buyerdomain.Repository
	AssignmentRepo assignmentdomain.Repository
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	clock          clock.Clock
	catalogRepo    catalogdomain.Repository
	buyerRepo      buyerdomain.Repository
	assignmentRepo assignmentdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("eligibility.service"),
		clock:          p.Clock,
		catalogRepo:    p.CatalogRepo,
		buyerRepo:      p.BuyerRepo,
		assignmentRepo: p.AssignmentRepo,
	}
}

// Resolve joins active subscriptions to active packages for the category,
// then filters buyers on budget policy and daily limits. The daily window is
// the UTC calendar day.
func (s *Service) Resolve(ctx context.Context, category string) (domain.Resolution, error) {
	now := s.clock.Now()
	resolution := domain.Resolution{
		Category:   category,
		ResolvedAt: now,
		Candidates: []domain.Candidate{},
		Excluded:   []domain.Exclusion{},
	}

	subscribed, err := s.catalogRepo.ListActiveByCategory(ctx, s.db, category, now)
	if err != nil {
		return domain.Resolution{}, err
	}
	if len(subscribed) == 0 {
		return resolution, nil
	}

	buyerIDs := make([]snowflake.ID, 0, len(subscribed))
	seen := make(map[snowflake.ID]struct{}, len(subscribed))
	for _, sub := range subscribed {
		if _, ok := seen[sub.BuyerID]; ok {
			continue
		}
		seen[sub.BuyerID] = struct{}{}
		buyerIDs = append(buyerIDs, sub.BuyerID)
	}

	buyers, err := s.buyerRepo.FindByIDs(ctx, s.db, buyerIDs)
	if err != nil {
		return domain.Resolution{}, err
	}
	buyerByID := make(map[snowflake.ID]buyerdomain.BuyerAccount, len(buyers))
	for _, b := range buyers {
		buyerByID[b.ID] = b
	}

	lastAssigned, err := s.assignmentRepo.LastAssignedByBuyers(ctx, s.db, buyerIDs)
	if err != nil {
		return domain.Resolution{}, err
	}
	lastByBuyer := make(map[snowflake.ID]time.Time, len(lastAssigned))
	for _, la := range lastAssigned {
		lastByBuyer[la.BuyerID] = la.LastAssignedAt
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	// Dedupe by buyer keeping the highest-priority package; the join already
	// orders by priority_level descending.
	claimed := make(map[snowflake.ID]struct{}, len(subscribed))
	for _, sub := range subscribed {
		if _, ok := claimed[sub.BuyerID]; ok {
			continue
		}
		claimed[sub.BuyerID] = struct{}{}

		buyer, ok := buyerByID[sub.BuyerID]
		if !ok {
			continue
		}

		if buyer.PauseWhenBudgetExceeded && buyer.CurrentBudget < sub.PricePerLead {
			resolution.Excluded = append(resolution.Excluded, domain.Exclusion{
				BuyerID:     buyer.ID,
				CompanyName: buyer.CompanyName,
				PackageID:   sub.PackageID,
				Reason:      domain.ExclusionBudgetPaused,
			})
			continue
		}

		if buyer.DailyBudget != nil {
			spent, err := s.assignmentRepo.SumCostByBuyerSince(ctx, s.db, buyer.ID, startOfDay)
			if err != nil {
				return domain.Resolution{}, err
			}
			if spent+sub.PricePerLead > *buyer.DailyBudget {
				resolution.Excluded = append(resolution.Excluded, domain.Exclusion{
					BuyerID:     buyer.ID,
					CompanyName: buyer.CompanyName,
					PackageID:   sub.PackageID,
					Reason:      domain.ExclusionDailyBudgetReached,
				})
				continue
			}
		}

		if sub.LeadCapPerDay != nil {
			count, err := s.assignmentRepo.CountByBuyerPackageSince(ctx, s.db, buyer.ID, sub.PackageID, startOfDay)
			if err != nil {
				return domain.Resolution{}, err
			}
			if count >= int64(*sub.LeadCapPerDay) {
				resolution.Excluded = append(resolution.Excluded, domain.Exclusion{
					BuyerID:     buyer.ID,
					CompanyName: buyer.CompanyName,
					PackageID:   sub.PackageID,
					Reason:      domain.ExclusionDailyCapReached,
				})
				continue
			}
		}

		candidate := domain.Candidate{
			BuyerID:       buyer.ID,
			CompanyName:   buyer.CompanyName,
			PackageID:     sub.PackageID,
			PackageName:   sub.PackageName,
			Price:         sub.PricePerLead,
			PriorityLevel: sub.PriorityLevel,
			CurrentBudget: buyer.CurrentBudget,
		}
		if last, ok := lastByBuyer[buyer.ID]; ok {
			at := last
			candidate.LastAssignedAt = &at
		}
		resolution.Candidates = append(resolution.Candidates, candidate)
	}

	return resolution, nil
}
