// Package registry holds named, schema-described capabilities.
//
// A Registry is filled once at startup and read concurrently afterwards.
// Register is not safe to call while other goroutines use the registry.
package registry

import (
	"context"

	"github.com/morikuni/failure/v2"
)

// HandlerFunc serves one invocation with already validated arguments.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

// Spec is one registered capability. D is the descriptor advertised to
// clients by List.
type Spec[D any] struct {
	Name       string
	Descriptor D
	Schema     Schema
	Handler    HandlerFunc
}

// Registry maps unique names to specs and remembers registration order.
type Registry[D any] struct {
	order   []string
	entries map[string]Spec[D]
}

// New returns an empty registry.
func New[D any]() *Registry[D] {
	return &Registry[D]{entries: make(map[string]Spec[D])}
}

// Register adds spec under spec.Name.
func (r *Registry[D]) Register(spec Spec[D]) error {
	if spec.Name == "" {
		return failure.New(InvalidSpec, failure.Message("capability name must not be empty"))
	}
	if spec.Handler == nil {
		return failure.New(InvalidSpec,
			failure.Message("capability has no handler"),
			failure.Context{"name": spec.Name},
		)
	}
	if _, ok := r.entries[spec.Name]; ok {
		return failure.New(DuplicateName,
			failure.Message("capability already registered"),
			failure.Context{"name": spec.Name},
		)
	}
	r.order = append(r.order, spec.Name)
	r.entries[spec.Name] = spec
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry[D]) MustRegister(spec Spec[D]) {
	if err := r.Register(spec); err != nil {
		panic(err)
	}
}

// List returns descriptors in registration order.
func (r *Registry[D]) List() []D {
	out := make([]D, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].Descriptor)
	}
	return out
}

// Len returns the number of registered specs.
func (r *Registry[D]) Len() int {
	return len(r.order)
}

// Lookup returns the spec registered under name.
func (r *Registry[D]) Lookup(name string) (Spec[D], bool) {
	spec, ok := r.entries[name]
	return spec, ok
}

// Invoke validates args against the schema of name and calls its handler.
func (r *Registry[D]) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	spec, ok := r.entries[name]
	if !ok {
		return nil, failure.New(NotFound,
			failure.Message("unknown capability: "+name),
			failure.Context{"name": name},
		)
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := spec.Schema.Validate(args); err != nil {
		return nil, err
	}
	return spec.Handler(ctx, args)
}
