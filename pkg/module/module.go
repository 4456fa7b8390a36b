// Package module mounts self-contained HTTP handlers under single-segment
// path prefixes such as /api and /scalar.
package module

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/JaimeStill/vitalis/pkg/middleware"
)

// Module serves requests under prefix through its own middleware stack. The
// inner handler sees paths with the prefix removed.
type Module struct {
	prefix     string
	router     http.Handler
	middleware middleware.System
}

// New panics when prefix is not a single segment like "/api"; prefixes are
// fixed at startup.
func New(prefix string, router http.Handler) *Module {
	if err := validatePrefix(prefix); err != nil {
		panic(err)
	}
	return &Module{prefix: prefix, router: router, middleware: middleware.New()}
}

func (m *Module) Prefix() string {
	return m.prefix
}

func (m *Module) Use(mw func(http.Handler) http.Handler) {
	m.middleware.Use(mw)
}

// Handler wraps the inner router with the middleware registered so far.
func (m *Module) Handler() http.Handler {
	return m.middleware.Apply(m.router)
}

// Serve dispatches req with the prefix stripped. The original request is
// left untouched.
func (m *Module) Serve(w http.ResponseWriter, req *http.Request) {
	path := strings.TrimPrefix(req.URL.Path, m.prefix)
	if path == "" {
		path = "/"
	}

	inner := new(http.Request)
	*inner = *req
	u := *req.URL
	u.Path, u.RawPath = path, ""
	inner.URL = &u

	m.Handler().ServeHTTP(w, inner)
}

func validatePrefix(prefix string) error {
	switch {
	case prefix == "":
		return fmt.Errorf("module prefix cannot be empty")
	case !strings.HasPrefix(prefix, "/"):
		return fmt.Errorf("module prefix must start with /: %s", prefix)
	case strings.Count(prefix, "/") != 1:
		return fmt.Errorf("module prefix must be single-level sub-path: %s", prefix)
	}
	return nil
}

