package api

import (
	"github.com/JaimeStill/vitalis/internal/config"
	"github.com/JaimeStill/vitalis/internal/infrastructure"
	"github.com/JaimeStill/vitalis/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Config     *config.Config
	Pagination pagination.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Telemetry: infra.Telemetry,
			Database:  infra.Database,
			Storage:   infra.Storage,
			Cache:     infra.Cache,
			Model:     infra.Model,
		},
		Config:     cfg,
		Pagination: cfg.API.Pagination,
	}
}
