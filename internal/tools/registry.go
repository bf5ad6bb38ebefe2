package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/lectern/lectern/internal/course"
)

// Registry holds the tools available to one query and accumulates the
// sources their executions produce. A fresh Registry is built per query so
// concurrent queries never see each other's sources.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	tools   map[string]Tool
	order   []string
	sources []course.Source
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a second tool under the same name is a
// programming error and is rejected.
func (r *Registry) Register(t Tool) error {
	def := t.Definition()
	if def.Name == "" {
		return fmt.Errorf("tool has no name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool %q already registered", def.Name)
	}
	r.tools[def.Name] = t
	r.order = append(r.order, def.Name)
	return nil
}

// Definitions returns all tool definitions in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.Lock()
	defer r.mu.Unlock()

	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute runs the named tool and accumulates its sources. An unknown name
// yields an explanatory string, not an error, so the model sees what went
// wrong and can recover.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) string {
	r.mu.Lock()
	t, ok := r.tools[name]
	r.mu.Unlock()
	if !ok {
		return fmt.Sprintf("Tool '%s' not found", name)
	}

	result, sources := t.Execute(ctx, args)

	r.mu.Lock()
	r.sources = append(r.sources, sources...)
	r.mu.Unlock()
	return result
}

// DrainSources returns all sources accumulated since the last drain and
// clears them. Draining twice yields nothing the second time.
func (r *Registry) DrainSources() []course.Source {
	r.mu.Lock()
	defer r.mu.Unlock()

	sources := r.sources
	r.sources = nil
	return sources
}
