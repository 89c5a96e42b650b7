package domain

import (
	"context"
	"errors"
	"time"
)

// DistributionStats is the read-only rollup over a date range. It is computed
// on demand and never cached; it has no write authority.
type DistributionStats struct {
	From             time.Time        `json:"from"`
	To               time.Time        `json:"to"`
	TotalAssignments int64            `json:"total_assignments"`
	TotalRevenue     int64            `json:"total_revenue"`
	TotalRefunded    int64            `json:"total_refunded"`
	ByStatus         map[string]int64 `json:"by_status"`
	ByCategory       map[string]int64 `json:"by_category"`
	TopBuyers        []BuyerStat      `json:"top_buyers"`
}

type BuyerStat struct {
	BuyerID     string `json:"buyer_id"`
	CompanyName string `json:"company_name"`
	Assignments int64  `json:"assignments"`
	Revenue     int64  `json:"revenue"`
}

// QueueStatus describes the unassigned backlog waiting for the sweep.
type QueueStatus struct {
	Unassigned int64            `json:"unassigned"`
	OldestAge  *float64         `json:"oldest_age_seconds,omitempty"`
	ByCategory map[string]int64 `json:"by_category"`
}

type Service interface {
	GetDistributionStats(ctx context.Context, from, to time.Time) (DistributionStats, error)
	GetQueueStatus(ctx context.Context) (QueueStatus, error)
}

var ErrInvalidRange = errors.New("invalid_date_range")
