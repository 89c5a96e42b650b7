package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Candidate is one (buyer, package, price) tuple eligible to receive a lead
// of a given category right now. The budget and recency fields ride along for
// the allocation selector's ordering.
type Candidate struct {
	BuyerID        snowflake.ID  `json:"buyer_id"`
	CompanyName    string        `json:"company_name"`
	PackageID      snowflake.ID  `json:"package_id"`
	PackageName    string        `json:"package_name"`
	Price          int64         `json:"price"`
	PriorityLevel  int           `json:"priority_level"`
	CurrentBudget  int64         `json:"current_budget"`
	LastAssignedAt *time.Time    `json:"last_assigned_at,omitempty"`
}

// ExclusionReason explains why a subscribed buyer did not make the candidate
// list. Surfaced verbatim by the eligibility diagnostics endpoint.
type ExclusionReason string

const (
	ExclusionBudgetPaused       ExclusionReason = "budget_paused"
	ExclusionDailyBudgetReached ExclusionReason = "daily_budget_reached"
	ExclusionDailyCapReached    ExclusionReason = "daily_cap_reached"
)

// Exclusion pairs a filtered-out buyer with the first rule that removed it.
type Exclusion struct {
	BuyerID     snowflake.ID    `json:"buyer_id"`
	CompanyName string          `json:"company_name"`
	PackageID   snowflake.ID    `json:"package_id"`
	Reason      ExclusionReason `json:"reason"`
}

// Resolution is the full output of one eligibility pass, kept for diagnostics
// so admin tooling can answer "why was this buyer not chosen".
type Resolution struct {
	Category   string      `json:"category"`
	ResolvedAt time.Time   `json:"resolved_at"`
	Candidates []Candidate `json:"candidates"`
	Excluded   []Exclusion `json:"excluded"`
}
