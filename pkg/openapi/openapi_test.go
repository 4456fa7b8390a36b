package openapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/vitalis/pkg/openapi"
)

func TestNewSpec(t *testing.T) {
	spec := openapi.NewSpec("Vitalis API", "0.3.0")
	spec.SetDescription("ingestion")
	spec.AddServer("/api")

	if spec.OpenAPI != "3.1.0" || spec.Info.Title != "Vitalis API" || spec.Info.Version != "0.3.0" {
		t.Errorf("header = %s %+v", spec.OpenAPI, spec.Info)
	}
	if spec.Info.Description != "ingestion" {
		t.Errorf("description = %q", spec.Info.Description)
	}
	if len(spec.Servers) != 1 || spec.Servers[0].URL != "/api" {
		t.Errorf("servers = %v", spec.Servers)
	}
	if _, ok := spec.Components.Schemas["Error"]; !ok {
		t.Error("Error schema missing")
	}
}

func TestPathAndSet(t *testing.T) {
	spec := openapi.NewSpec("t", "1")
	get := &openapi.Operation{Summary: "list"}
	post := &openapi.Operation{Summary: "search"}

	spec.Path("/documents").Set(http.MethodGet, get)
	spec.Path("/documents").Set(http.MethodPost, post)
	spec.Path("/documents").Set(http.MethodPatch, &openapi.Operation{})

	item := spec.Paths["/documents"]
	if len(spec.Paths) != 1 || item.Get != get || item.Post != post {
		t.Errorf("path item = %+v", item)
	}
	if item.Put != nil || item.Delete != nil {
		t.Error("unsupported method was attached")
	}
}

func TestErrorResponse(t *testing.T) {
	spec := openapi.NewSpec("t", "1")

	tests := []struct {
		status int
		ref    string
	}{
		{http.StatusBadRequest, "BadRequest"},
		{http.StatusUnauthorized, "Unauthorized"},
		{http.StatusNotFound, "NotFound"},
		{http.StatusConflict, "Conflict"},
		{http.StatusRequestEntityTooLarge, "TooLarge"},
		{http.StatusUnprocessableEntity, "PipelineFailed"},
		{http.StatusServiceUnavailable, "Unavailable"},
	}

	for _, tt := range tests {
		got := openapi.ErrorResponse(tt.status)
		if got == nil || got.Ref != "#/components/responses/"+tt.ref {
			t.Errorf("ErrorResponse(%d) = %+v, want ref %s", tt.status, got, tt.ref)
			continue
		}
		if _, ok := spec.Components.Responses[tt.ref]; !ok {
			t.Errorf("component response %s missing", tt.ref)
		}
	}

	if got := openapi.ErrorResponse(http.StatusTeapot); got != nil {
		t.Errorf("ErrorResponse(418) = %+v, want nil", got)
	}
}

func TestPathParam(t *testing.T) {
	tests := []struct {
		name   string
		format string
	}{
		{"id", "uuid"},
		{"documentID", "uuid"},
		{"stage", ""},
	}

	for _, tt := range tests {
		p := openapi.PathParam(tt.name)
		if p.In != "path" || !p.Required || p.Schema.Type != "string" || p.Schema.Format != tt.format {
			t.Errorf("PathParam(%q) = %+v / %+v", tt.name, p, p.Schema)
		}
	}
}

func TestServeSpec(t *testing.T) {
	spec := openapi.NewSpec("t", "1")
	spec.Path("/profile").Set(http.MethodGet, &openapi.Operation{
		Responses: map[int]*openapi.Response{http.StatusNotFound: openapi.ErrorResponse(http.StatusNotFound)},
	})

	doc, err := openapi.MarshalJSON(spec)
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	rec := httptest.NewRecorder()
	openapi.ServeSpec(doc)(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/json; charset=utf-8" {
		t.Fatalf("response = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}

	var parsed struct {
		OpenAPI string `json:"openapi"`
		Paths   map[string]map[string]struct {
			Responses map[string]map[string]string `json:"responses"`
		} `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("body: %v", err)
	}
	if got := parsed.Paths["/profile"]["get"].Responses["404"]["$ref"]; got != "#/components/responses/NotFound" {
		t.Errorf("404 ref = %q", got)
	}
}

func TestConfig(t *testing.T) {
	var cfg openapi.Config
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if cfg.Title != "Vitalis API" || cfg.Description == "" {
		t.Errorf("defaults = %+v", cfg)
	}

	t.Setenv("VITALIS_TEST_OPENAPI_TITLE", "Vitalis Staging")
	env := &openapi.ConfigEnv{Title: "VITALIS_TEST_OPENAPI_TITLE", Description: "VITALIS_TEST_UNSET"}
	cfg = openapi.Config{Description: "kept"}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if cfg.Title != "Vitalis Staging" || cfg.Description != "kept" {
		t.Errorf("env = %+v", cfg)
	}

	cfg.Merge(&openapi.Config{Description: "overlay"})
	if cfg.Title != "Vitalis Staging" || cfg.Description != "overlay" {
		t.Errorf("merge = %+v", cfg)
	}
}
