package service

import (
	"context"
	"strconv"
	"time"

	"github.com/nordleads/leadflow/internal/clock"
	leaddomain "github.com/nordleads/leadflow/internal/lead/domain"
	"github.com/nordleads/leadflow/internal/stats/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	LeadRepo leaddomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	leadRepo leaddomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("stats.service"),
		clock:    p.Clock,
		leadRepo: p.LeadRepo,
	}
}

const topBuyerLimit = 10

func (s *Service) GetDistributionStats(ctx context.Context, from, to time.Time) (domain.DistributionStats, error) {
	if to.Before(from) {
		return domain.DistributionStats{}, domain.ErrInvalidRange
	}

	stats := domain.DistributionStats{
		From:       from,
		To:         to,
		ByStatus:   map[string]int64{},
		ByCategory: map[string]int64{},
		TopBuyers:  []domain.BuyerStat{},
	}

	type statusRow struct {
		Status string
		Count  int64
		Cost   int64
	}
	var statusRows []statusRow
	err := s.db.WithContext(ctx).
		Table("lead_assignments").
		Select("status, COUNT(*) AS count, COALESCE(SUM(cost), 0) AS cost").
		Where("assigned_at >= ? AND assigned_at < ?", from, to).
		Group("status").
		Scan(&statusRows).Error
	if err != nil {
		return domain.DistributionStats{}, err
	}
	for _, row := range statusRows {
		stats.ByStatus[row.Status] = row.Count
		stats.TotalAssignments += row.Count
		switch row.Status {
		case "assigned", "accepted":
			stats.TotalRevenue += row.Cost
		case "rejected":
			stats.TotalRefunded += row.Cost
		}
	}

	type categoryRow struct {
		Category string
		Count    int64
	}
	var categoryRows []categoryRow
	err = s.db.WithContext(ctx).
		Table("lead_assignments").
		Select("leads.category AS category, COUNT(*) AS count").
		Joins("JOIN leads ON leads.id = lead_assignments.lead_id").
		Where("lead_assignments.assigned_at >= ? AND lead_assignments.assigned_at < ?", from, to).
		Group("leads.category").
		Scan(&categoryRows).Error
	if err != nil {
		return domain.DistributionStats{}, err
	}
	for _, row := range categoryRows {
		stats.ByCategory[row.Category] = row.Count
	}

	type buyerRow struct {
		BuyerID     int64
		CompanyName string
		Count       int64
		Revenue     int64
	}
	var buyerRows []buyerRow
	err = s.db.WithContext(ctx).
		Table("lead_assignments").
		Select("lead_assignments.buyer_id AS buyer_id, buyer_accounts.company_name AS company_name, COUNT(*) AS count, COALESCE(SUM(lead_assignments.cost), 0) AS revenue").
		Joins("JOIN buyer_accounts ON buyer_accounts.id = lead_assignments.buyer_id").
		Where("lead_assignments.assigned_at >= ? AND lead_assignments.assigned_at < ?", from, to).
		Where("lead_assignments.status IN ?", []string{"assigned", "accepted"}).
		Group("lead_assignments.buyer_id, buyer_accounts.company_name").
		Order("revenue DESC").
		Limit(topBuyerLimit).
		Scan(&buyerRows).Error
	if err != nil {
		return domain.DistributionStats{}, err
	}
	for _, row := range buyerRows {
		stats.TopBuyers = append(stats.TopBuyers, domain.BuyerStat{
			BuyerID:     strconv.FormatInt(row.BuyerID, 10),
			CompanyName: row.CompanyName,
			Assignments: row.Count,
			Revenue:     row.Revenue,
		})
	}

	return stats, nil
}

func (s *Service) GetQueueStatus(ctx context.Context) (domain.QueueStatus, error) {
	status := domain.QueueStatus{ByCategory: map[string]int64{}}

	counts, err := s.leadRepo.CountUnassignedByCategory(ctx, s.db)
	if err != nil {
		return domain.QueueStatus{}, err
	}
	for _, c := range counts {
		status.ByCategory[c.Category] = c.Count
		status.Unassigned += c.Count
	}

	oldest, err := s.leadRepo.OldestUnassignedCreatedAt(ctx, s.db)
	if err != nil {
		return domain.QueueStatus{}, err
	}
	if oldest != nil {
		age := s.clock.Now().Sub(*oldest).Seconds()
		status.OldestAge = &age
	}

	return status, nil
}
