package stats

import (
	"github.com/nordleads/leadflow/internal/stats/service"
	"go.uber.org/fx"
)

var Module = fx.Module("stats",
	fx.Provide(service.New),
)
