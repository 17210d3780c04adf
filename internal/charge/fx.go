package charge

import (
	"github.com/plantelhq/plantel/internal/charge/mora"
	"github.com/plantelhq/plantel/internal/charge/repository"
	"github.com/plantelhq/plantel/internal/charge/service"
	"go.uber.org/fx"
)

var Module = fx.Module("charge",
	fx.Provide(repository.Provide),
	fx.Provide(func() mora.Strategy { return mora.DailySimple{} }),
	fx.Provide(service.NewGenerator),
	fx.Provide(service.NewSnapshot),
	fx.Provide(service.NewWorkflow),
	fx.Provide(service.NewQuery),
)
