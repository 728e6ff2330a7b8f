package routes

import "net/http"

// Route binds a method and a pattern relative to its group to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Full returns the ServeMux pattern for r under prefix.
func (r Route) Full(prefix string) string {
	return r.Method + " " + prefix + r.Pattern
}
