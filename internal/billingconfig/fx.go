package billingconfig

import (
	"github.com/plantelhq/plantel/internal/billingconfig/repository"
	"github.com/plantelhq/plantel/internal/billingconfig/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billingconfig",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
