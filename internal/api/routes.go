package api

import (
	"net/http"
	"strings"

	"github.com/JaimeStill/vitalis/internal/config"
	"github.com/JaimeStill/vitalis/pkg/openapi"
	"github.com/JaimeStill/vitalis/pkg/routes"
)

func routeGroups(domain *Domain) []routes.Group {
	return []routes.Group{
		domain.Pipeline.Handler().Routes(),
		domain.Documents.Handler().Routes(),
		domain.Findings.Handler().Routes(),
		domain.Correlations.Handler().Routes(),
		domain.Profile.Handler().Routes(),
		domain.Prompts.Handler().Routes(),
	}
}

func registerRoutes(mux *http.ServeMux, groups []routes.Group) {
	routes.Register(mux, groups...)
}

// BuildSpec describes every registered route as an OpenAPI document rooted
// at the API base path.
func BuildSpec(cfg *config.Config, groups []routes.Group) *openapi.Spec {
	spec := openapi.NewSpec(cfg.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)

	routes.Walk(groups, func(prefix string, r routes.Route) {
		path := openapiPath(prefix + r.Pattern)
		spec.Path(path).Set(r.Method, &openapi.Operation{
			Summary:    r.Method + " " + path,
			Tags:       []string{tag(prefix, r.Pattern)},
			Parameters: pathParams(path),
			Responses:  responses(r.Method, path),
		})
	})
	return spec
}

// responses lists the statuses a route can produce. Every API route sits
// behind caller identity; writes can conflict; pipeline routes can end in
// the failed state or be cancelled.
func responses(method, path string) map[int]*openapi.Response {
	success := http.StatusOK
	if method == http.MethodDelete {
		success = http.StatusNoContent
	}

	statuses := []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound}
	if method == http.MethodPost || method == http.MethodPut {
		statuses = append(statuses, http.StatusConflict)
	}
	if path == "/uploads" || strings.HasSuffix(path, "/retry") {
		statuses = append(statuses, http.StatusUnprocessableEntity, http.StatusServiceUnavailable)
	}
	if path == "/uploads" {
		statuses = append(statuses, http.StatusRequestEntityTooLarge)
	}

	out := map[int]*openapi.Response{success: {Description: http.StatusText(success)}}
	for _, s := range statuses {
		out[s] = openapi.ErrorResponse(s)
	}
	return out
}

func openapiPath(pattern string) string {
	if pattern == "" {
		return "/"
	}
	return strings.ReplaceAll(pattern, "...}", "}")
}

func pathParams(path string) []*openapi.Parameter {
	var params []*openapi.Parameter
	for seg := range strings.SplitSeq(path, "/") {
		if name, ok := strings.CutPrefix(seg, "{"); ok {
			name = strings.TrimSuffix(name, "}")
			params = append(params, openapi.PathParam(name))
		}
	}
	return params
}

func tag(prefix, pattern string) string {
	if prefix == "" {
		prefix = pattern
	}
	seg, _, _ := strings.Cut(strings.TrimPrefix(prefix, "/"), "/")
	return seg
}
