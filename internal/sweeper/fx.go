package sweeper

import (
	"context"

	"github.com/nordleads/leadflow/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("sweeper",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(RunSweeper),
)

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:     cfg.SweepEnabled,
		RunInterval: cfg.SweepInterval,
		BatchSize:   cfg.SweepBatchSize,
	}.withDefaults()
}

func RunSweeper(lc fx.Lifecycle, cfg Config, sweeper *Sweeper) {
	if !cfg.Enabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go sweeper.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
