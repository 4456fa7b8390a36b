// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/JaimeStill/vitalis/internal/config"
	"github.com/JaimeStill/vitalis/internal/infrastructure"
	"github.com/JaimeStill/vitalis/pkg/middleware"
	"github.com/JaimeStill/vitalis/pkg/module"
	"github.com/JaimeStill/vitalis/pkg/openapi"
)

// API is the assembled module together with its serialized OpenAPI document.
type API struct {
	Module *module.Module
	Spec   []byte
}

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*API, error) {
	runtime := NewRuntime(cfg, infra)
	domain, err := NewDomain(runtime)
	if err != nil {
		return nil, err
	}

	var verifier middleware.TokenVerifier
	if cfg.Auth.Enabled {
		verifier, err = middleware.NewOIDCVerifier(context.Background(), cfg.Auth.IssuerURL, cfg.Auth.ClientID)
		if err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
	}

	groups := routeGroups(domain)

	mux := http.NewServeMux()
	registerRoutes(mux, groups)

	spec, err := openapi.MarshalJSON(BuildSpec(cfg, groups))
	if err != nil {
		return nil, fmt.Errorf("openapi: %w", err)
	}

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.RequestID())
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.Auth(&cfg.Auth, verifier, runtime.Logger))

	return &API{Module: m, Spec: spec}, nil
}
