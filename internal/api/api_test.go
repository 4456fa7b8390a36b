package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/vitalis/internal/api"
	"github.com/JaimeStill/vitalis/internal/config"
	"github.com/JaimeStill/vitalis/internal/infrastructure"
	"github.com/JaimeStill/vitalis/pkg/database"
	"github.com/JaimeStill/vitalis/pkg/middleware"
	"github.com/JaimeStill/vitalis/pkg/openapi"
	"github.com/JaimeStill/vitalis/pkg/pagination"
	"github.com/JaimeStill/vitalis/pkg/routes"
	"github.com/JaimeStill/vitalis/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func validConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     "1m",
			WriteTimeout:    "15m",
			ShutdownTimeout: "30s",
		},
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "vitalis",
			User:            "vitalis",
			Password:        "vitalis",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Storage: storage.Config{
			Provider:         storage.ProviderAzure,
			ContainerName:    "uploads",
			ConnectionString: azuriteConnString,
		},
		API: config.APIConfig{
			BasePath:      "/api",
			MaxUploadSize: "10MB",
			CORS: middleware.CORSConfig{
				Enabled: false,
			},
			Pagination: pagination.Config{
				DefaultPageSize: 20,
				MaxPageSize:     100,
			},
		},
		Auth: middleware.AuthConfig{UserHeader: "X-User-ID"},
		AI: config.AIConfig{
			APIKey: "test-key",
			Model:  "gemini-2.5-flash",
		},
		Pipeline: config.PipelineConfig{
			ClassifyTimeout:       "1m",
			AnalyzeTimeout:        "3m",
			CorrelateTimeout:      "1m",
			SideEffectTimeout:     "45s",
			SideEffectConcurrency: 4,
			MaxConflictRetries:    3,
		},
		OpenAPI: openapi.Config{
			Title:       "Vitalis API",
			Description: "test",
		},
		ShutdownTimeout: "30s",
		Version:         "0.1.0",
	}
}

func setupInfra(t *testing.T) *infrastructure.Infrastructure {
	t.Helper()
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	return infra
}

func TestNewModule(t *testing.T) {
	cfg := validConfig()
	infra := setupInfra(t)

	a, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	if a.Module.Prefix() != "/api" {
		t.Errorf("prefix: got %s, want /api", a.Module.Prefix())
	}

	var spec openapi.Spec
	if err := json.Unmarshal(a.Spec, &spec); err != nil {
		t.Fatalf("spec is not valid JSON: %v", err)
	}
	for _, path := range []string{"/uploads", "/documents/{id}/retry", "/profile", "/findings", "/correlations/{id}/dismiss"} {
		if _, ok := spec.Paths[path]; !ok {
			t.Errorf("spec missing path %s", path)
		}
	}
}

func TestModuleRequiresUser(t *testing.T) {
	cfg := validConfig()
	infra := setupInfra(t)

	a, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/profile", nil)
	a.Module.Serve(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestNewRuntime(t *testing.T) {
	cfg := validConfig()
	infra := setupInfra(t)

	runtime := api.NewRuntime(cfg, infra)

	if runtime.Pagination.DefaultPageSize != 20 {
		t.Errorf("pagination default page size: got %d, want 20", runtime.Pagination.DefaultPageSize)
	}
	if runtime.Logger == nil {
		t.Error("runtime logger is nil")
	}
	if runtime.Database == nil {
		t.Error("runtime database is nil")
	}
	if runtime.Cache == nil {
		t.Error("runtime cache is nil")
	}
	if runtime.Model == nil {
		t.Error("runtime model is nil")
	}
	if runtime.Config != cfg {
		t.Error("runtime config not retained")
	}
}

func TestNewDomain(t *testing.T) {
	cfg := validConfig()
	infra := setupInfra(t)
	runtime := api.NewRuntime(cfg, infra)

	domain, err := api.NewDomain(runtime)
	if err != nil {
		t.Fatalf("NewDomain() error = %v", err)
	}
	if domain.Pipeline == nil || domain.Profile == nil || domain.Correlations == nil {
		t.Fatal("NewDomain() left systems unset")
	}
}

func TestNewDomainBadRulesFile(t *testing.T) {
	cfg := validConfig()
	cfg.Correlations.RulesFile = "/nonexistent/rules.yaml"
	runtime := api.NewRuntime(cfg, setupInfra(t))

	if _, err := api.NewDomain(runtime); err == nil {
		t.Fatal("expected error for missing rules file")
	}
}

func TestBuildSpec(t *testing.T) {
	noop := func(w http.ResponseWriter, r *http.Request) {}
	groups := []routes.Group{
		{
			Prefix: "/documents",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "", Handler: noop},
				{Method: "GET", Pattern: "/{id}", Handler: noop},
				{Method: "POST", Pattern: "/{id}/retry", Handler: noop},
			},
		},
	}

	spec := api.BuildSpec(validConfig(), groups)

	if spec.Info.Title != "Vitalis API" {
		t.Errorf("title = %s, want Vitalis API", spec.Info.Title)
	}
	if len(spec.Servers) != 1 || spec.Servers[0].URL != "/api" {
		t.Errorf("servers = %v, want [/api]", spec.Servers)
	}

	item, ok := spec.Paths["/documents/{id}/retry"]
	if !ok || item.Post == nil {
		t.Fatal("retry path missing POST operation")
	}
	if len(item.Post.Parameters) != 1 || item.Post.Parameters[0].Name != "id" {
		t.Errorf("retry parameters = %v, want [id]", item.Post.Parameters)
	}
	if item.Post.Tags[0] != "documents" {
		t.Errorf("tag = %s, want documents", item.Post.Tags[0])
	}
	if spec.Paths["/documents"].Get == nil {
		t.Error("list path missing GET operation")
	}
	if r := item.Post.Responses[http.StatusUnprocessableEntity]; r == nil || r.Ref != "#/components/responses/PipelineFailed" {
		t.Errorf("retry 422 response = %+v, want PipelineFailed ref", r)
	}
	if _, ok := spec.Paths["/documents/{id}"].Get.Responses[http.StatusConflict]; ok {
		t.Error("GET operation documents a 409")
	}
}

func TestBuildSpecStageParameter(t *testing.T) {
	noop := func(w http.ResponseWriter, r *http.Request) {}
	groups := []routes.Group{{
		Prefix: "/prompts",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{stage}/instructions", Handler: noop},
			{Method: "DELETE", Pattern: "/{id}", Handler: noop},
		},
	}}

	spec := api.BuildSpec(validConfig(), groups)

	stage := spec.Paths["/prompts/{stage}/instructions"].Get.Parameters[0]
	if stage.Schema.Format != "" {
		t.Errorf("stage format = %q, want plain string", stage.Schema.Format)
	}

	del := spec.Paths["/prompts/{id}"].Delete
	if del.Parameters[0].Schema.Format != "uuid" {
		t.Errorf("id format = %q, want uuid", del.Parameters[0].Schema.Format)
	}
	if _, ok := del.Responses[http.StatusNoContent]; !ok {
		t.Error("DELETE operation missing 204")
	}
}
