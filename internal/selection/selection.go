// Package selection picks exactly one winner from an eligibility candidate
// list. Ranking is pure: the same candidates in any input order produce the
// same winner, with no wall-clock or random input.
package selection

import (
	"sort"

	eligibilitydomain "github.com/nordleads/leadflow/internal/eligibility/domain"
)

// Criterion is one ordering rule applied in sequence until a tie breaks.
type Criterion string

const (
	// ByPriority prefers the higher package priority level.
	ByPriority Criterion = "priority"
	// ByRecency prefers the buyer assigned least recently; never-assigned
	// buyers rank first.
	ByRecency Criterion = "recency"
	// ByHeadroom prefers the buyer with the least remaining budget, spreading
	// volume toward buyers about to run out.
	ByHeadroom Criterion = "headroom"
)

// Policy is the ordered list of criteria. Ties surviving every criterion are
// broken by buyer ID ascending so results are reproducible.
type Policy struct {
	Criteria []Criterion
}

// DefaultPolicy orders by priority, then assignment recency, then budget
// headroom.
func DefaultPolicy() Policy {
	return Policy{Criteria: []Criterion{ByPriority, ByRecency, ByHeadroom}}
}

// Rank returns the candidates ordered best-first under the policy. The input
// slice is not modified.
func Rank(policy Policy, candidates []eligibilitydomain.Candidate) []eligibilitydomain.Candidate {
	ranked := make([]eligibilitydomain.Candidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		for _, criterion := range policy.Criteria {
			switch criterion {
			case ByPriority:
				if a.PriorityLevel != b.PriorityLevel {
					return a.PriorityLevel > b.PriorityLevel
				}
			case ByRecency:
				if c := compareRecency(a, b); c != 0 {
					return c < 0
				}
			case ByHeadroom:
				if a.CurrentBudget != b.CurrentBudget {
					return a.CurrentBudget < b.CurrentBudget
				}
			}
		}
		return a.BuyerID < b.BuyerID
	})

	return ranked
}

// Select returns the single winner, or false when the list is empty.
func Select(policy Policy, candidates []eligibilitydomain.Candidate) (eligibilitydomain.Candidate, bool) {
	if len(candidates) == 0 {
		return eligibilitydomain.Candidate{}, false
	}
	return Rank(policy, candidates)[0], true
}

func compareRecency(a, b eligibilitydomain.Candidate) int {
	switch {
	case a.LastAssignedAt == nil && b.LastAssignedAt == nil:
		return 0
	case a.LastAssignedAt == nil:
		return -1
	case b.LastAssignedAt == nil:
		return 1
	case a.LastAssignedAt.Before(*b.LastAssignedAt):
		return -1
	case b.LastAssignedAt.Before(*a.LastAssignedAt):
		return 1
	default:
		return 0
	}
}
