package enrollment

import (
	"github.com/plantelhq/plantel/internal/enrollment/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("enrollment",
	fx.Provide(repository.Provide),
)
