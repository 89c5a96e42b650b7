package service

import (
	"context"
	"errors"

	"github.com/nordleads/leadflow/internal/clock"
	"github.com/nordleads/leadflow/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("settings.service"),
		clock: p.Clock,
	}
}

func (s *Service) Snapshot(ctx context.Context) (domain.LeadSettings, error) {
	var settings domain.LeadSettings
	err := s.db.WithContext(ctx).First(&settings, domain.SingletonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Defaults(), nil
	}
	if err != nil {
		return domain.LeadSettings{}, err
	}
	return settings, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (domain.LeadSettings, error) {
	var settings domain.LeadSettings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&settings, domain.SingletonID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			settings = domain.Defaults()
		} else if err != nil {
			return err
		}

		if req.AutoDistribute != nil {
			settings.AutoDistribute = *req.AutoDistribute
		}
		if req.GloballyPaused != nil {
			settings.GloballyPaused = *req.GloballyPaused
		}
		settings.UpdatedAt = s.clock.Now()

		return tx.Save(&settings).Error
	})
	if err != nil {
		return domain.LeadSettings{}, err
	}

	s.log.Info("lead settings updated",
		zap.Bool("auto_distribute", settings.AutoDistribute),
		zap.Bool("globally_paused", settings.GloballyPaused),
	)
	return settings, nil
}
