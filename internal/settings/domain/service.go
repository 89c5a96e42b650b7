package domain

import "context"

// UpdateRequest carries partial updates; nil fields keep their current value.
type UpdateRequest struct {
	AutoDistribute *bool   `json:"auto_distribute"`
	GloballyPaused *bool   `json:"globally_paused"`
	Actor          *string `json:"-"`
}

// Service reads and mutates the global distribution switches. Snapshot never
// fails on a missing row; it falls back to Defaults so distribution keeps a
// consistent view even before seeding ran.
type Service interface {
	Snapshot(ctx context.Context) (LeadSettings, error)
	Update(ctx context.Context, req UpdateRequest) (LeadSettings, error)
}
