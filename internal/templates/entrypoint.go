// Package templates gives a schema to the parameters a pipeline passes to
// the template it extends.
package templates

import (
	"fmt"
	"maps"
	"slices"

	"pipecheck/internal/core"
)

// Entrypoint turns the opaque extends.parameters of a pipeline into typed
// entrypoint parameters.
type Entrypoint interface {
	Name() string
	Parse(p *core.Pipeline) (*core.ExtendsParameters, error)
}

// Stages is the standard entrypoint: its parameters carry the stage list.
type Stages struct{}

func (Stages) Name() string { return "stages" }

func (Stages) Parse(p *core.Pipeline) (*core.ExtendsParameters, error) {
	return core.DecodeExtendsParameters(p.Extends.Parameters)
}

// Registry picks an entrypoint by the template a pipeline extends.
type Registry struct {
	fallback Entrypoint
	byName   map[string]Entrypoint
}

// NewRegistry returns a registry that uses fallback for unknown templates.
func NewRegistry(fallback Entrypoint) *Registry {
	return &Registry{fallback: fallback, byName: make(map[string]Entrypoint)}
}

// Register binds template to e, replacing any earlier binding.
func (r *Registry) Register(template string, e Entrypoint) {
	r.byName[template] = e
}

// Templates lists the registered template names in sorted order.
func (r *Registry) Templates() []string {
	return slices.Sorted(maps.Keys(r.byName))
}

// Lookup returns the entrypoint for template.
func (r *Registry) Lookup(template string) (Entrypoint, error) {
	if e, ok := r.byName[template]; ok {
		return e, nil
	}
	if r.fallback == nil {
		return nil, fmt.Errorf("no entrypoint registered for template %q", template)
	}
	return r.fallback, nil
}

func (r *Registry) Name() string { return "registry" }

// Parse dispatches on p.Extends.Template.
func (r *Registry) Parse(p *core.Pipeline) (*core.ExtendsParameters, error) {
	e, err := r.Lookup(p.Extends.Template)
	if err != nil {
		return nil, err
	}
	return e.Parse(p)
}
