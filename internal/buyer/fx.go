package buyer

import (
	"github.com/nordleads/leadflow/internal/buyer/repository"
	"github.com/nordleads/leadflow/internal/buyer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("buyer",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
