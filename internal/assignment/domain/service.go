package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Service drives the buyer-facing lifecycle of an allocation. Accept confirms
// the purchase; Reject reverses it, refunding the buyer and returning the
// lead to the distribution pool.
type Service interface {
	Accept(ctx context.Context, req AcceptRequest) (*LeadAssignment, error)
	Reject(ctx context.Context, req RejectRequest) (*LeadAssignment, error)
	Get(ctx context.Context, id snowflake.ID) (*LeadAssignment, error)
}

type AcceptRequest struct {
	AssignmentID snowflake.ID
	Actor        *string
}

type RejectRequest struct {
	AssignmentID snowflake.ID
	Reason       *string
	Actor        *string
}
