// Package composer turns a template plus a set of user responses into a
// concrete list of agent specs.
package composer

import (
	"fmt"
	"sort"
	"sync"
)

// RoleHandler describes one known agent role: the tools it defaults to
// and the config keys it understands. Composition fails a rule whose role
// has no registered handler instead of surprising the scheduler later.
type RoleHandler struct {
	// Role is the role name the handler serves.
	Role string
	// DefaultTools are granted when a rule declares no tool list.
	DefaultTools []string
	// ConfigKeys lists the config keys the role's runtime prompt reads.
	// Keys outside this list are rejected at composition time.
	ConfigKeys []string
}

// Registry is the closed map of known roles, built at startup.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]RoleHandler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]RoleHandler)}
}

// DefaultRegistry returns a registry populated with the built-in analysis
// roles.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, h := range []RoleHandler{
		{
			Role:         "security",
			DefaultTools: []string{"dependency_scan", "secret_scan", "static_analysis"},
			ConfigKeys:   []string{"target", "severity_floor", "scan_dependencies"},
		},
		{
			Role:         "coverage",
			DefaultTools: []string{"test_runner", "coverage_profile"},
			ConfigKeys:   []string{"target", "min_coverage", "include_integration"},
		},
		{
			Role:         "quality",
			DefaultTools: []string{"linter", "type_checker"},
			ConfigKeys:   []string{"target", "strict", "max_lint_errors"},
		},
		{
			Role:         "docs",
			DefaultTools: []string{"doc_counter"},
			ConfigKeys:   []string{"target", "min_doc_coverage"},
		},
		{
			Role:         "test_runner",
			DefaultTools: []string{"test_runner"},
			ConfigKeys:   []string{"target", "suite"},
		},
		{
			Role:         "publisher",
			DefaultTools: []string{"doc_writer"},
			ConfigKeys:   []string{"target", "format", "audience"},
		},
		{
			Role:         "reviewer",
			DefaultTools: []string{"doc_reader"},
			ConfigKeys:   []string{"target", "rubric"},
		},
	} {
		r.Register(h)
	}
	return r
}

// Register adds or replaces a role handler.
func (r *Registry) Register(h RoleHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Role] = h
}

// Lookup returns the handler for a role.
func (r *Registry) Lookup(role string) (RoleHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[role]
	return h, ok
}

// Known reports whether a role has a registered handler.
func (r *Registry) Known(role string) bool {
	_, ok := r.Lookup(role)
	return ok
}

// Roles returns the registered role names in sorted order.
func (r *Registry) Roles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roles := make([]string, 0, len(r.handlers))
	for role := range r.handlers {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// ValidateConfig rejects config keys the role's handler does not declare.
func (h RoleHandler) ValidateConfig(cfg map[string]any) error {
	allowed := make(map[string]bool, len(h.ConfigKeys))
	for _, k := range h.ConfigKeys {
		allowed[k] = true
	}
	for k := range cfg {
		if !allowed[k] {
			return fmt.Errorf("role %s does not read config key %q", h.Role, k)
		}
	}
	return nil
}
