package assignment

import (
	"github.com/nordleads/leadflow/internal/assignment/repository"
	"github.com/nordleads/leadflow/internal/assignment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("assignment",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
