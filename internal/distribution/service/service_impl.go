package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	assignmentdomain "github.com/nordleads/leadflow/internal/assignment/domain"
	buyerdomain "github.com/nordleads/leadflow/internal/buyer/domain"
	catalogdomain "github.com/nordleads/leadflow/internal/catalog/domain"
	"github.com/nordleads/leadflow/internal/clock"
	"github.com/nordleads/leadflow/internal/distribution/domain"
	eligibilitydomain "github.com/nordleads/leadflow/internal/eligibility/domain"
	historydomain "github.com/nordleads/leadflow/internal/history/domain"
	leaddomain "github.com/nordleads/leadflow/internal/lead/domain"
	ledgerdomain "github.com/nordleads/leadflow/internal/ledger/domain"
	obsmetrics "github.com/nordleads/leadflow/internal/observability/metrics"
	"github.com/nordleads/leadflow/internal/retry"
	"github.com/nordleads/leadflow/internal/selection"
	settingsdomain "github.com/nordleads/leadflow/internal/settings/domain"
	pkgdb "github.com/nordleads/leadflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Settings       settingsdomain.Service
	Eligibility    eligibilitydomain.Service
	Ledger         ledgerdomain.Service
	History        historydomain.Service
	LeadRepo       leaddomain.Repository
	BuyerRepo      buyerdomain.Repository
	CatalogRepo    catalogdomain.Repository
	AssignmentRepo assignmentdomain.Repository
	ObsMetrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	settings       settingsdomain.Service
	eligibility    eligibilitydomain.Service
	ledger         ledgerdomain.Service
	history        historydomain.Service
	leadRepo       leaddomain.Repository
	buyerRepo      buyerdomain.Repository
	catalogRepo    catalogdomain.Repository
	assignmentRepo assignmentdomain.Repository
	obsMetrics     *obsmetrics.Metrics
	policy         selection.Policy
	readRetry      retry.Policy
}

func New(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("distribution.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		settings:       p.Settings,
		eligibility:    p.Eligibility,
		ledger:         p.Ledger,
		history:        p.History,
		leadRepo:       p.LeadRepo,
		buyerRepo:      p.BuyerRepo,
		catalogRepo:    p.CatalogRepo,
		assignmentRepo: p.AssignmentRepo,
		obsMetrics:     p.ObsMetrics,
		policy:         selection.DefaultPolicy(),
		readRetry:      retry.DefaultPolicy(),
	}
}

// Distribute runs the allocation chain for one lead: settings check,
// eligibility, selection, then per-candidate reserve-and-commit. Candidates
// that fail on funds or lose the assignment race fall through to the next
// one; exhausting the list is the no_buyer outcome, not an error.
func (s *Service) Distribute(ctx context.Context, leadID snowflake.ID) (domain.Result, error) {
	started := s.clock.Now()
	result := domain.Result{Outcome: domain.OutcomeNoBuyer, LeadID: leadID}

	snapshot, err := s.settings.Snapshot(ctx)
	if err != nil {
		return result, err
	}
	if snapshot.GloballyPaused || !snapshot.AutoDistribute {
		result.Outcome = domain.OutcomeDisabled
		s.recordOutcome(result.Outcome, "auto", started)
		return result, nil
	}

	var lead *leaddomain.Lead
	err = retry.Do(ctx, s.readRetry, isTransient, func(ctx context.Context) error {
		var err error
		lead, err = s.leadRepo.FindByID(ctx, s.db, leadID)
		return err
	})
	if err != nil {
		return result, err
	}

	// Idempotence: an already-claimed lead returns its existing assignment
	// without touching the ledger.
	if lead.CompanyID != nil {
		return s.existingAssignment(ctx, lead, started, "auto")
	}

	var resolution eligibilitydomain.Resolution
	err = retry.Do(ctx, s.readRetry, isTransient, func(ctx context.Context) error {
		var err error
		resolution, err = s.eligibility.Resolve(ctx, lead.Category)
		return err
	})
	if err != nil {
		return result, err
	}

	ranked := selection.Rank(s.policy, resolution.Candidates)
	for _, candidate := range ranked {
		result.CandidatesTried++

		assignment, err := s.commitAssignment(ctx, lead, candidate.BuyerID, &candidate.PackageID, candidate.Price, nil)
		switch {
		case err == nil:
			result.Outcome = domain.OutcomeAssigned
			result.AssignmentID = &assignment.ID
			result.BuyerID = &assignment.BuyerID
			result.Cost = &assignment.Cost

			s.appendHistory(ctx, historydomain.AppendRequest{
				LeadID:         lead.ID,
				AssignedTo:     &assignment.BuyerID,
				Method:         historydomain.MethodAuto,
				PreviousStatus: string(lead.Status),
				NewStatus:      string(leaddomain.LeadStatusQualified),
				Metadata: map[string]any{
					"assignment_id": assignment.ID.String(),
					"cost":          assignment.Cost,
				},
			})
			s.recordOutcome(result.Outcome, "auto", started)
			s.log.Info("lead distributed",
				zap.Int64("lead_id", int64(lead.ID)),
				zap.Int64("buyer_id", int64(assignment.BuyerID)),
				zap.Int64("cost", assignment.Cost),
				zap.Int("candidates_tried", result.CandidatesTried),
			)
			return result, nil

		case errors.Is(err, ledgerdomain.ErrInsufficientFunds):
			// Another attempt drained this buyer between resolve and reserve.
			s.log.Debug("candidate fell through on funds",
				zap.Int64("lead_id", int64(lead.ID)),
				zap.Int64("buyer_id", int64(candidate.BuyerID)),
			)
			continue

		case errors.Is(err, assignmentdomain.ErrLeadAlreadyAssigned):
			// A concurrent writer claimed the lead; its assignment stands.
			return s.existingAssignment(ctx, lead, started, "auto")

		default:
			return result, err
		}
	}

	s.recordOutcome(domain.OutcomeNoBuyer, "auto", started)
	return result, nil
}

// AssignManually rejects and refunds any prior active assignment, then
// charges the chosen buyer at its active package price for the lead's
// category, falling back to the account's per-unit cost.
func (s *Service) AssignManually(ctx context.Context, req domain.ManualAssignRequest) (domain.Result, error) {
	started := s.clock.Now()
	result := domain.Result{Outcome: domain.OutcomeNoBuyer, LeadID: req.LeadID}

	if req.Actor == "" {
		return result, domain.ErrInvalidActor
	}
	actor := req.Actor

	lead, err := s.leadRepo.FindByID(ctx, s.db, req.LeadID)
	if err != nil {
		return result, err
	}
	buyer, err := s.buyerRepo.FindByID(ctx, s.db, req.BuyerID)
	if err != nil {
		return result, err
	}

	cost := buyer.LeadCostPerUnit
	var packageID *snowflake.ID
	subscribed, err := s.catalogRepo.FindActiveForBuyer(ctx, s.db, buyer.ID, lead.Category, s.clock.Now())
	switch {
	case err == nil:
		cost = subscribed.PricePerLead
		packageID = &subscribed.PackageID
	case errors.Is(err, catalogdomain.ErrNoActivePackage):
	default:
		return result, err
	}

	var (
		prior      *assignmentdomain.LeadAssignment
		assignment *assignmentdomain.LeadAssignment
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.leadRepo.FindByIDForUpdate(ctx, tx, lead.ID)
		if err != nil {
			return err
		}

		existing, err := s.assignmentRepo.FindActiveByLeadID(ctx, tx, lead.ID)
		if err != nil && !errors.Is(err, assignmentdomain.ErrNoActiveAssignment) {
			return err
		}
		if existing != nil {
			reason := "superseded by manual assignment"
			if err := s.assignmentRepo.UpdateStatus(ctx, tx, existing.ID, assignmentdomain.AssignmentStatusRejected, &reason, s.clock.Now()); err != nil {
				return err
			}
			description := fmt.Sprintf("refund for reassigned lead %s", lead.ID)
			if _, err := s.ledger.Refund(ctx, tx, existing.BuyerID, &lead.ID, existing.Cost, description, &actor); err != nil {
				return err
			}
			prior = existing
		}

		created, err := s.insertAssignment(ctx, tx, locked, buyer.ID, packageID, cost, &actor)
		if err != nil {
			return err
		}
		assignment = created
		return nil
	})
	if err != nil {
		return result, err
	}

	if prior != nil {
		s.appendHistory(ctx, historydomain.AppendRequest{
			LeadID:         lead.ID,
			AssignedTo:     &prior.BuyerID,
			Method:         historydomain.MethodManual,
			PreviousStatus: string(assignmentdomain.AssignmentStatusAssigned),
			NewStatus:      string(assignmentdomain.AssignmentStatusRejected),
			CreatedBy:      &actor,
			Metadata: map[string]any{
				"assignment_id": prior.ID.String(),
				"refunded":      prior.Cost,
			},
		})
	}
	s.appendHistory(ctx, historydomain.AppendRequest{
		LeadID:         lead.ID,
		AssignedTo:     &assignment.BuyerID,
		Method:         historydomain.MethodManual,
		PreviousStatus: string(lead.Status),
		NewStatus:      string(leaddomain.LeadStatusQualified),
		CreatedBy:      &actor,
		Metadata: map[string]any{
			"assignment_id": assignment.ID.String(),
			"cost":          assignment.Cost,
		},
	})

	result.Outcome = domain.OutcomeAssigned
	result.AssignmentID = &assignment.ID
	result.BuyerID = &assignment.BuyerID
	result.Cost = &assignment.Cost
	result.CandidatesTried = 1
	s.recordOutcome(result.Outcome, "manual", started)
	s.log.Info("lead assigned manually",
		zap.Int64("lead_id", int64(lead.ID)),
		zap.Int64("buyer_id", int64(buyer.ID)),
		zap.String("actor", actor),
		zap.Bool("superseded_prior", prior != nil),
	)
	return result, nil
}

// commitAssignment is one candidate's reserve-and-commit transaction: lock
// the lead row, re-check it is still unclaimed, debit the buyer, insert the
// assignment, flip the lead. Rolling back the transaction reverses the debit,
// so no refund bookkeeping is needed on failure.
func (s *Service) commitAssignment(ctx context.Context, lead *leaddomain.Lead, buyerID snowflake.ID, packageID *snowflake.ID, cost int64, actor *string) (*assignmentdomain.LeadAssignment, error) {
	var assignment *assignmentdomain.LeadAssignment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.leadRepo.FindByIDForUpdate(ctx, tx, lead.ID)
		if err != nil {
			return err
		}
		if locked.CompanyID != nil {
			return assignmentdomain.ErrLeadAlreadyAssigned
		}

		created, err := s.insertAssignment(ctx, tx, locked, buyerID, packageID, cost, actor)
		if err != nil {
			return err
		}
		assignment = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *Service) insertAssignment(ctx context.Context, tx *gorm.DB, lead *leaddomain.Lead, buyerID snowflake.ID, packageID *snowflake.ID, cost int64, actor *string) (*assignmentdomain.LeadAssignment, error) {
	now := s.clock.Now()

	description := fmt.Sprintf("lead purchase %s", lead.ID)
	if _, err := s.ledger.ReserveAndDebit(ctx, tx, buyerID, &lead.ID, cost, description, actor); err != nil {
		return nil, err
	}

	assignment := &assignmentdomain.LeadAssignment{
		ID:         s.genID.Generate(),
		LeadID:     lead.ID,
		BuyerID:    buyerID,
		PackageID:  packageID,
		Cost:       cost,
		Status:     assignmentdomain.AssignmentStatusAssigned,
		AssignedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.assignmentRepo.Insert(ctx, tx, assignment); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, assignmentdomain.ErrLeadAlreadyAssigned
		}
		return nil, err
	}

	if err := s.leadRepo.MarkAssigned(ctx, tx, lead.ID, buyerID, leaddomain.LeadStatusQualified, now); err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *Service) existingAssignment(ctx context.Context, lead *leaddomain.Lead, started time.Time, method string) (domain.Result, error) {
	result := domain.Result{Outcome: domain.OutcomeAlreadyAssigned, LeadID: lead.ID}

	existing, err := s.assignmentRepo.FindActiveByLeadID(ctx, s.db, lead.ID)
	if err != nil && !errors.Is(err, assignmentdomain.ErrNoActiveAssignment) {
		return result, err
	}
	if existing != nil {
		result.AssignmentID = &existing.ID
		result.BuyerID = &existing.BuyerID
		result.Cost = &existing.Cost
	}

	s.recordOutcome(result.Outcome, method, started)
	return result, nil
}

func (s *Service) appendHistory(ctx context.Context, req historydomain.AppendRequest) {
	if err := s.history.Append(ctx, req); err != nil {
		s.log.Warn("failed to append lead history",
			zap.Int64("lead_id", int64(req.LeadID)),
			zap.Error(err),
		)
	}
}

func (s *Service) recordOutcome(outcome domain.Outcome, method string, started time.Time) {
	s.obsMetrics.RecordOutcome(string(outcome), method, s.clock.Now().Sub(started).Seconds())
}

// isTransient allows another read attempt only for failures that can heal on
// their own: dropped connections, network errors, and lock or serialization
// contention. Domain sentinels, missing rows, and malformed-query or scan
// errors surface immediately.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Contention errors carry no sentinel across drivers; match their text.
	msg := err.Error()
	for _, marker := range []string{
		"database is locked",
		"deadlock detected",
		"could not serialize access",
		"connection reset",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
