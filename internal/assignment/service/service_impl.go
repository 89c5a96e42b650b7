package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/nordleads/leadflow/internal/assignment/domain"
	"github.com/nordleads/leadflow/internal/clock"
	historydomain "github.com/nordleads/leadflow/internal/history/domain"
	leaddomain "github.com/nordleads/leadflow/internal/lead/domain"
	ledgerdomain "github.com/nordleads/leadflow/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     domain.Repository
	LeadRepo leaddomain.Repository
	Ledger   ledgerdomain.Service
	History  historydomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     domain.Repository
	leadRepo leaddomain.Repository
	ledger   ledgerdomain.Service
	history  historydomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("assignment.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		leadRepo: p.LeadRepo,
		ledger:   p.Ledger,
		history:  p.History,
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.LeadAssignment, error) {
	return s.repo.FindByID(ctx, s.db, id)
}

// Accept confirms an assignment. Only the "assigned" state can move to
// "accepted"; the charge was already taken at assignment time, so nothing
// moves on the ledger.
func (s *Service) Accept(ctx context.Context, req domain.AcceptRequest) (*domain.LeadAssignment, error) {
	var assignment *domain.LeadAssignment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindByID(ctx, tx, req.AssignmentID)
		if err != nil {
			return err
		}
		if found.Status != domain.AssignmentStatusAssigned {
			return domain.ErrInvalidTransition
		}
		if err := s.repo.UpdateStatus(ctx, tx, found.ID, domain.AssignmentStatusAccepted, nil, s.clock.Now()); err != nil {
			return err
		}
		assignment = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	assignment.Status = domain.AssignmentStatusAccepted
	assignment.AcceptedAt = &now
	assignment.UpdatedAt = now

	s.appendHistory(ctx, historydomain.AppendRequest{
		LeadID:         assignment.LeadID,
		AssignedTo:     &assignment.BuyerID,
		Method:         historydomain.MethodStatusUpdate,
		PreviousStatus: string(domain.AssignmentStatusAssigned),
		NewStatus:      string(domain.AssignmentStatusAccepted),
		CreatedBy:      req.Actor,
		Metadata: map[string]any{
			"assignment_id": assignment.ID.String(),
		},
	})

	return assignment, nil
}

// Reject reverses an active assignment: the status flips to "rejected", the
// full cost is refunded to the buyer, and the lead returns to the unassigned
// pool so the next distribution run can pick it up. All three writes share
// one transaction.
func (s *Service) Reject(ctx context.Context, req domain.RejectRequest) (*domain.LeadAssignment, error) {
	var (
		assignment *domain.LeadAssignment
		prevStatus leaddomain.LeadStatus
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindByID(ctx, tx, req.AssignmentID)
		if err != nil {
			return err
		}
		if found.Status != domain.AssignmentStatusAssigned && found.Status != domain.AssignmentStatusAccepted {
			return domain.ErrInvalidTransition
		}

		lead, err := s.leadRepo.FindByIDForUpdate(ctx, tx, found.LeadID)
		if err != nil {
			return err
		}
		prevStatus = lead.Status

		if err := s.repo.UpdateStatus(ctx, tx, found.ID, domain.AssignmentStatusRejected, req.Reason, s.clock.Now()); err != nil {
			return err
		}

		description := fmt.Sprintf("refund for rejected lead %s", found.LeadID)
		if _, err := s.ledger.Refund(ctx, tx, found.BuyerID, &found.LeadID, found.Cost, description, req.Actor); err != nil {
			return err
		}

		if err := s.leadRepo.MarkUnassigned(ctx, tx, found.LeadID, s.clock.Now()); err != nil {
			return err
		}

		assignment = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	assignment.Status = domain.AssignmentStatusRejected
	assignment.RejectionReason = req.Reason
	assignment.UpdatedAt = s.clock.Now()

	metadata := map[string]any{
		"assignment_id": assignment.ID.String(),
		"refunded":      assignment.Cost,
	}
	if req.Reason != nil {
		metadata["reason"] = *req.Reason
	}
	s.appendHistory(ctx, historydomain.AppendRequest{
		LeadID:         assignment.LeadID,
		AssignedTo:     &assignment.BuyerID,
		Method:         historydomain.MethodStatusUpdate,
		PreviousStatus: string(prevStatus),
		NewStatus:      string(leaddomain.LeadStatusNew),
		CreatedBy:      req.Actor,
		Metadata:       metadata,
	})

	return assignment, nil
}

// appendHistory records the transition best effort. A missing audit row is
// logged, never surfaced, so the state change itself stands.
func (s *Service) appendHistory(ctx context.Context, req historydomain.AppendRequest) {
	if err := s.history.Append(ctx, req); err != nil {
		s.log.Warn("failed to append lead history",
			zap.Int64("lead_id", int64(req.LeadID)),
			zap.Error(err),
		)
	}
}
