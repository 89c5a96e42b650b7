package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Outcome is the terminal state of one distribution attempt. Everything short
// of a storage failure resolves to one of these; callers distinguish "no
// buyer wanted it" from "system error" by the error return being nil.
type Outcome string

const (
	// OutcomeAssigned means a buyer was charged and the assignment committed.
	OutcomeAssigned Outcome = "assigned"
	// OutcomeAlreadyAssigned means the lead already had an active assignment;
	// the existing one is returned and no budget moved.
	OutcomeAlreadyAssigned Outcome = "already_assigned"
	// OutcomeNoBuyer means no eligible buyer could take the lead. The lead
	// stays unassigned for the scheduled sweep to retry.
	OutcomeNoBuyer Outcome = "no_buyer"
	// OutcomeDisabled means distribution is switched off globally.
	OutcomeDisabled Outcome = "disabled"
)

// Result reports what one attempt did.
type Result struct {
	Outcome      Outcome       `json:"outcome"`
	LeadID       snowflake.ID  `json:"lead_id"`
	AssignmentID *snowflake.ID `json:"assignment_id,omitempty"`
	BuyerID      *snowflake.ID `json:"buyer_id,omitempty"`
	Cost         *int64        `json:"cost,omitempty"`
	// CandidatesTried counts how many ranked candidates were attempted before
	// the outcome settled.
	CandidatesTried int `json:"candidates_tried"`
}

// Service is the distribution entry point.
type Service interface {
	// Distribute runs the automatic allocation chain for one lead. Calling it
	// on an already-assigned lead is a no-op returning the existing
	// assignment.
	Distribute(ctx context.Context, leadID snowflake.ID) (Result, error)
	// AssignManually bypasses eligibility and selection but still moves money
	// through the ledger and writes the audit trail. A prior active
	// assignment is rejected and refunded first.
	AssignManually(ctx context.Context, req ManualAssignRequest) (Result, error)
}

type ManualAssignRequest struct {
	LeadID  snowflake.ID
	BuyerID snowflake.ID
	Actor   string
}

var (
	ErrInvalidActor = errors.New("invalid_actor")
)
