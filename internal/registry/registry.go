// Package registry is the single source of truth for which workflows
// exist and what input shape they require.
package registry

import (
	"context"
	"errors"
	"fmt"

	"codegate/pkg/models"
)

var (
	// ErrDuplicateName is returned when a workflow name is registered twice.
	ErrDuplicateName = errors.New("workflow name already registered")
	// ErrNotFound is returned when resolving an unregistered workflow.
	ErrNotFound = errors.New("workflow not found")
)

// Result is what a workflow handler produces on success: a structured
// output object plus the resource usage the handler reported.
type Result struct {
	Output     map[string]any
	TokensUsed int
}

// Handler executes a workflow against validated input. It must honor
// context cancellation; the dispatcher bounds it with a timeout.
type Handler func(ctx context.Context, input map[string]any) (*Result, error)

// Entry pairs a workflow definition with its handler capability.
type Entry struct {
	Definition models.WorkflowDefinition
	Handler    Handler
}

// Registry maps workflow names to entries. It is populated during
// startup, before the server accepts requests, and read-only afterward,
// so lookups need no locking.
type Registry struct {
	order   []string
	entries map[string]*Entry
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register adds a workflow. Startup only; not safe to call concurrently
// with lookups.
func (r *Registry) Register(def models.WorkflowDefinition, handler Handler) error {
	if def.Name == "" {
		return errors.New("workflow name must not be empty")
	}
	if handler == nil {
		return fmt.Errorf("workflow %q has no handler", def.Name)
	}
	if _, exists := r.entries[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, def.Name)
	}
	r.entries[def.Name] = &Entry{Definition: def, Handler: handler}
	r.order = append(r.order, def.Name)
	return nil
}

// List returns all definitions in registration order.
func (r *Registry) List() []models.WorkflowDefinition {
	defs := make([]models.WorkflowDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.entries[name].Definition)
	}
	return defs
}

// Resolve looks up a workflow by name.
func (r *Registry) Resolve(name string) (*Entry, error) {
	entry, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return entry, nil
}

// Len reports how many workflows are registered.
func (r *Registry) Len() int {
	return len(r.order)
}
