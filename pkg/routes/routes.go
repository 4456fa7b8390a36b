// Package routes declares HTTP endpoints as nested prefix groups so a
// handler can publish its routes once for both the mux and the API spec.
package routes

import "net/http"

// Route binds a method and a pattern, relative to its group, to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group shares Prefix across its Routes and Children.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Walk calls fn for every route in groups with the route's full prefix,
// parents before children.
func Walk(groups []Group, fn func(prefix string, r Route)) {
	var walk func(parent string, g Group)
	walk = func(parent string, g Group) {
		prefix := parent + g.Prefix
		for _, r := range g.Routes {
			fn(prefix, r)
		}
		for _, child := range g.Children {
			walk(prefix, child)
		}
	}
	for _, g := range groups {
		walk("", g)
	}
}

// Register adds every route in groups to mux as "METHOD /prefix/pattern".
func Register(mux *http.ServeMux, groups ...Group) {
	Walk(groups, func(prefix string, r Route) {
		mux.HandleFunc(r.Method+" "+prefix+r.Pattern, r.Handler)
	})
}
