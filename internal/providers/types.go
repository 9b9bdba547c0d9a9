package providers

import (
	"context"

	"github.com/ocula-lovable/creative-forge/internal/domain"
)

// Request describes a normalized generation request passed to any provider.
type Request struct {
	JobID       string
	ProviderRef string
	Prompt      string
	Style       string
	Duration    int
	AspectRatio string
	Locale      string
}

// Result is the single outcome a provider produces for a request.
type Result struct {
	URL      string
	Metadata map[string]any
}

// Generator is the contract implemented by all generation providers. Generate
// terminates with exactly one outcome per invocation and honors context
// cancellation; the orchestrator enforces the deadline.
type Generator interface {
	AssetType() domain.AssetType
	Generate(ctx context.Context, req Request) (*Result, error)
}

// Registry maps asset types to their generator. Adding an asset type is a
// registration, not a new branch in the orchestrator.
type Registry struct {
	generators map[domain.AssetType]Generator
}

// NewRegistry builds a registry from the given generators.
func NewRegistry(gens ...Generator) *Registry {
	r := &Registry{generators: make(map[domain.AssetType]Generator, len(gens))}
	for _, g := range gens {
		r.Register(g)
	}
	return r
}

// Register adds or replaces the generator for its asset type.
func (r *Registry) Register(g Generator) {
	r.generators[g.AssetType()] = g
}

// Lookup returns the generator registered for the asset type.
func (r *Registry) Lookup(t domain.AssetType) (Generator, bool) {
	g, ok := r.generators[t]
	return g, ok
}
