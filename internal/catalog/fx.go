package catalog

import (
	"github.com/nordleads/leadflow/internal/catalog/repository"
	"github.com/nordleads/leadflow/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
