package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/nordleads/leadflow/internal/clock"
	historydomain "github.com/nordleads/leadflow/internal/history/domain"
	"github.com/nordleads/leadflow/internal/lead/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	History historydomain.Service
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	history historydomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("lead.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		history: p.History,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Lead, error) {
	category := strings.TrimSpace(strings.ToLower(req.Category))
	if category == "" {
		return nil, domain.ErrInvalidCategory
	}

	now := s.clock.Now()
	lead := &domain.Lead{
		ID:          s.genID.Generate(),
		Category:    category,
		Status:      domain.LeadStatusNew,
		Title:       req.Title,
		Description: req.Description,
		Metadata:    req.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, lead); err != nil {
		return nil, err
	}
	return lead, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Lead, error) {
	return s.repo.FindByID(ctx, s.db, id)
}

var validStatuses = map[domain.LeadStatus]struct{}{
	domain.LeadStatusNew:         {},
	domain.LeadStatusQualified:   {},
	domain.LeadStatusContacted:   {},
	domain.LeadStatusNegotiating: {},
	domain.LeadStatusConverted:   {},
	domain.LeadStatusLost:        {},
	domain.LeadStatusPaused:      {},
}

// UpdateStatus moves a lead through its sales lifecycle without touching the
// assignment. Every transition lands in the audit trail.
func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (*domain.Lead, error) {
	if _, ok := validStatuses[req.Status]; !ok {
		return nil, domain.ErrInvalidStatus
	}

	var lead *domain.Lead
	var previous domain.LeadStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindByIDForUpdate(ctx, tx, req.LeadID)
		if err != nil {
			return err
		}
		previous = found.Status

		now := s.clock.Now()
		if err := tx.Model(&domain.Lead{}).
			Where("id = ?", found.ID).
			Updates(map[string]any{"status": req.Status, "updated_at": now}).Error; err != nil {
			return err
		}
		found.Status = req.Status
		found.UpdatedAt = now
		lead = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	if previous != req.Status {
		if err := s.history.Append(ctx, historydomain.AppendRequest{
			LeadID:         lead.ID,
			AssignedTo:     lead.CompanyID,
			Method:         historydomain.MethodStatusUpdate,
			PreviousStatus: string(previous),
			NewStatus:      string(req.Status),
			CreatedBy:      req.Actor,
		}); err != nil {
			s.log.Warn("failed to append lead history",
				zap.Int64("lead_id", int64(lead.ID)),
				zap.Error(err),
			)
		}
	}
	return lead, nil
}
