package lead

import (
	"github.com/nordleads/leadflow/internal/lead/repository"
	"github.com/nordleads/leadflow/internal/lead/service"
	"go.uber.org/fx"
)

var Module = fx.Module("lead",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
