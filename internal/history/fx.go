package history

import (
	"github.com/nordleads/leadflow/internal/history/repository"
	"github.com/nordleads/leadflow/internal/history/service"
	"go.uber.org/fx"
)

var Module = fx.Module("history",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
