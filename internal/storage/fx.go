package storage

import (
	"github.com/plantelhq/plantel/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("storage",
	fx.Provide(func(cfg *config.Config) (FileStore, error) {
		return NewLocalStore(cfg.Storage.Dir)
	}),
)
