package service

import (
	"context"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nordleads/leadflow/internal/clock"
	"github.com/nordleads/leadflow/internal/history/domain"
	"github.com/nordleads/leadflow/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("history.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Append(ctx context.Context, req domain.AppendRequest) error {
	if req.LeadID == 0 {
		return domain.ErrInvalidLead
	}

	switch req.Method {
	case domain.MethodAuto, domain.MethodManual, domain.MethodStatusUpdate:
	default:
		return domain.ErrInvalidMethod
	}

	entry := domain.Entry{
		ID:             s.genID.Generate(),
		LeadID:         req.LeadID,
		AssignedTo:     req.AssignedTo,
		Method:         req.Method,
		PreviousStatus: req.PreviousStatus,
		NewStatus:      req.NewStatus,
		CreatedBy:      req.CreatedBy,
		Metadata:       req.Metadata,
		CreatedAt:      s.clock.Now(),
	}

	return s.repo.Insert(ctx, s.db, &entry)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	limit := req.PageSize
	if limit <= 0 || limit > 250 {
		limit = 25
	}

	filter := domain.ListFilter{
		LeadID: req.LeadID,
		Limit:  int(limit) + 1,
	}

	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		id, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		filter.Cursor = &domain.Cursor{ID: snowflake.ID(id), CreatedAt: createdAt}
	}

	rows, err := s.repo.ListByLead(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(rows, limit, func(e *domain.Entry) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{
			ID:        e.ID.String(),
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		return token
	})

	rows = pagination.Trim(rows, limit)
	entries := make([]domain.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, *row)
	}

	resp := domain.ListResponse{Entries: entries, HasMore: pageInfo.HasMore}
	if pageInfo.HasMore {
		resp.NextPageToken = pageInfo.NextPageToken
	}
	return resp, nil
}
