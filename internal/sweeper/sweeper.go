// Package sweeper retries distribution for leads that ended a previous
// attempt unassigned. It is the recovery path for the no_buyer outcome: new
// budget, new subscriptions, or a settings flip make yesterday's orphans
// distributable today.
package sweeper

import (
	"context"
	"errors"
	"time"

	"github.com/nordleads/leadflow/internal/clock"
	distributiondomain "github.com/nordleads/leadflow/internal/distribution/domain"
	leaddomain "github.com/nordleads/leadflow/internal/lead/domain"
	obsmetrics "github.com/nordleads/leadflow/internal/observability/metrics"
	settingsdomain "github.com/nordleads/leadflow/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("invalid_sweeper_config")

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	LeadRepo     leaddomain.Repository
	Distribution distributiondomain.Service
	Settings     settingsdomain.Service
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
	Config       Config              `optional:"true"`
}

type Sweeper struct {
	db           *gorm.DB
	log          *zap.Logger
	cfg          Config
	clock        clock.Clock
	leadRepo     leaddomain.Repository
	distribution distributiondomain.Service
	settings     settingsdomain.Service
	obsMetrics   *obsmetrics.Metrics
}

func New(p Params) (*Sweeper, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.LeadRepo == nil || p.Distribution == nil || p.Settings == nil {
		return nil, ErrInvalidConfig
	}
	return &Sweeper{
		db:           p.DB,
		log:          p.Log.Named("sweeper"),
		cfg:          p.Config.withDefaults(),
		clock:        p.Clock,
		leadRepo:     p.LeadRepo,
		distribution: p.Distribution,
		settings:     p.Settings,
		obsMetrics:   p.ObsMetrics,
	}, nil
}

func (s *Sweeper) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Warn("sweep run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce distributes one batch of unassigned leads. Each lead is an
// independent attempt; a hard failure on one does not stop the batch. The
// settings snapshot is checked up front so a paused system costs one read,
// not a batch of no-ops.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	snapshot, err := s.settings.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	if snapshot.GloballyPaused || !snapshot.AutoDistribute {
		return 0, nil
	}

	leads, err := s.leadRepo.ListUnassigned(ctx, s.db, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(leads) == 0 {
		return 0, nil
	}

	assigned := 0
	var lastErr error
	for _, lead := range leads {
		if ctx.Err() != nil {
			break
		}

		result, err := s.distribution.Distribute(ctx, lead.ID)
		if err != nil {
			lastErr = err
			s.log.Warn("sweep distribution failed",
				zap.Int64("lead_id", int64(lead.ID)),
				zap.Error(err),
			)
			continue
		}
		if result.Outcome == distributiondomain.OutcomeAssigned {
			assigned++
		}
		if result.Outcome == distributiondomain.OutcomeDisabled {
			// Settings flipped mid-batch; the rest would no-op too.
			break
		}
	}

	s.obsMetrics.RecordSweep(assigned)
	if assigned > 0 {
		s.log.Info("sweep completed",
			zap.Int("scanned", len(leads)),
			zap.Int("assigned", assigned),
		)
	}
	return assigned, lastErr
}
