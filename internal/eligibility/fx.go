package eligibility

import (
	"github.com/nordleads/leadflow/internal/eligibility/service"
	"go.uber.org/fx"
)

var Module = fx.Module("eligibility",
	fx.Provide(service.New),
)
