package domain

import "context"

// Service computes the set of buyers allowed to receive a lead of a category
// at this instant. An empty candidate list is an expected outcome, never an
// error.
type Service interface {
	Resolve(ctx context.Context, category string) (Resolution, error)
}
