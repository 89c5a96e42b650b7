package settings

import (
	"github.com/nordleads/leadflow/internal/settings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settings",
	fx.Provide(service.New),
)
