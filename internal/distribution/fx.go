package distribution

import (
	"github.com/nordleads/leadflow/internal/distribution/service"
	"go.uber.org/fx"
)

var Module = fx.Module("distribution",
	fx.Provide(service.New),
)
