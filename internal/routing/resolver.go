// Package routing picks a destination calendar from hashtags in an event
// description.
package routing

import (
	"strings"
)

// NoTag is reported when no hashtag matched and the default was used.
const NoTag = "none"

// Route maps a hashtag to a destination calendar or sub-calendar.
type Route struct {
	Tag    string `yaml:"tag" json:"tag"`
	Target string `yaml:"target" json:"target"`
	Name   string `yaml:"name" json:"name"`
}

// Resolver matches descriptions against an ordered list of routes.
type Resolver struct {
	routes        []Route
	defaultTarget string
	defaultName   string
}

// NewResolver creates a resolver. Routes are tried in the given order.
func NewResolver(routes []Route, defaultTarget, defaultName string) *Resolver {
	rs := make([]Route, len(routes))
	for i, r := range routes {
		r.Tag = strings.ToLower(strings.TrimSpace(r.Tag))
		rs[i] = r
	}
	return &Resolver{
		routes:        rs,
		defaultTarget: defaultTarget,
		defaultName:   defaultName,
	}
}

// Resolve returns the first route whose hashtag appears anywhere in the
// description, by declaration order rather than position in the text.
// Routes without a configured target are ignored. With no match the default
// target is returned with tag NoTag; it may be empty.
func (r *Resolver) Resolve(description string) (tag, target string) {
	lower := strings.ToLower(description)
	for _, route := range r.routes {
		if route.Target == "" || route.Tag == "" {
			continue
		}
		if strings.Contains(lower, route.Tag) {
			return route.Tag, route.Target
		}
	}
	return NoTag, r.defaultTarget
}

// NameFor returns the display name of a target, or "Unknown Calendar".
func (r *Resolver) NameFor(target string) string {
	for _, route := range r.routes {
		if route.Target != "" && route.Target == target && route.Name != "" {
			return route.Name
		}
	}
	if target != "" && target == r.defaultTarget && r.defaultName != "" {
		return r.defaultName
	}
	return "Unknown Calendar"
}

// Routes returns a copy of the configured routes.
func (r *Resolver) Routes() []Route {
	out := make([]Route, len(r.routes))
	copy(out, r.routes)
	return out
}

// Default returns the fallback target.
func (r *Resolver) Default() string {
	return r.defaultTarget
}

// HasTargets reports whether any route or the default is configured.
func (r *Resolver) HasTargets() bool {
	if r.defaultTarget != "" {
		return true
	}
	for _, route := range r.routes {
		if route.Target != "" {
			return true
		}
	}
	return false
}
